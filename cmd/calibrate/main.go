// ABOUTME: Command-line calibration runner for verification thresholds
// ABOUTME: Evaluates a YAML trial manifest against a scratch store and exports JSON results

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/harper/voiceauth/benchmarks/calibration"
	"github.com/harper/voiceauth/internal/config"
	"github.com/harper/voiceauth/internal/core"
)

type options struct {
	manifestPath string
	configPath   string
	outputPath   string
	maxEER       float64
}

func main() {
	var opts options
	flag.StringVar(&opts.manifestPath, "manifest", "", "Calibration manifest (YAML)")
	flag.StringVar(&opts.configPath, "config", "", "YAML config file for the provider settings")
	flag.StringVar(&opts.outputPath, "output", "calibration_results.json", "Output path for JSON results")
	flag.Float64Var(&opts.maxEER, "max-eer", 1, "Exit non-zero when the equal-error rate exceeds this")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	log.SetOutput(os.Stderr)
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, opts, os.Stdout)
	stop()
	if err != nil {
		log.Error("calibration failed", "err", err)
		os.Exit(1)
	}
}

// run evaluates the manifest and writes the report. Any error, including an
// equal-error rate above the limit, means the process should exit non-zero.
func run(ctx context.Context, opts options, out io.Writer) error {
	if opts.manifestPath == "" {
		return errors.New("-manifest is required")
	}

	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	manifest, err := calibration.LoadManifest(opts.manifestPath)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	// Enrollment overwrites voiceprints, so never touch the configured store
	scratch, err := os.MkdirTemp("", "voiceauth-calibration-*")
	if err != nil {
		return fmt.Errorf("failed to create scratch store: %w", err)
	}
	defer os.RemoveAll(scratch)
	cfg.Store = config.StoreConfig{Backend: config.BackendFile, Dir: scratch}

	svc, err := core.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer svc.Close()

	fmt.Fprintln(out, "========================================")
	fmt.Fprintf(out, "voiceauth calibration: %s\n", manifest.Name)
	fmt.Fprintln(out, "========================================")

	report, err := calibration.NewRunner(svc).Run(ctx, manifest)
	if err != nil {
		return fmt.Errorf("failed to run trials: %w", err)
	}

	fmt.Fprintf(out, "\nEnrolled:   %d of %d speakers\n", len(report.Enrolled), len(manifest.Speakers))
	fmt.Fprintf(out, "Trials:     %d (%d could not be evaluated)\n", len(report.Trials), report.Errors)
	fmt.Fprintf(out, "Genuine:    n=%d mean=%.3f sd=%.3f min=%.3f\n",
		report.Genuine.Count, report.Genuine.Mean, report.Genuine.StdDev, report.Genuine.Min)
	fmt.Fprintf(out, "Impostor:   n=%d mean=%.3f sd=%.3f max=%.3f\n",
		report.Impostor.Count, report.Impostor.Mean, report.Impostor.StdDev, report.Impostor.Max)
	fmt.Fprintf(out, "Threshold:  %.3f  FAR=%.3f FRR=%.3f\n", report.Threshold, report.FAR, report.FRR)
	fmt.Fprintf(out, "EER:        %.3f at threshold %.3f\n", report.EER, report.EERThreshold)

	if err := calibration.ExportReport(report, opts.outputPath); err != nil {
		return fmt.Errorf("failed to export results: %w", err)
	}
	fmt.Fprintf(out, "\nResults exported to: %s\n", opts.outputPath)

	if report.EER > opts.maxEER {
		return fmt.Errorf("equal-error rate %.3f above limit %.3f", report.EER, opts.maxEER)
	}
	return nil
}
