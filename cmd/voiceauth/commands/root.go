// ABOUTME: Root CLI command, global flags, and the JSON record writer
// ABOUTME: Every invocation prints exactly one JSON record on stdout
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/voiceauth/internal/config"
	"github.com/harper/voiceauth/internal/core"
	"github.com/harper/voiceauth/internal/models"
)

var (
	verbose     bool
	quiet       bool
	pretty      bool
	configPath  string
	speakerFlag string
)

// commandNames is echoed back in the usage record
var commandNames = []string{"enroll", "verify", "check", "delete", "list", "mcp", "sync", "version"}

const banner = `
██╗   ██╗ ██████╗ ██╗ ██████╗███████╗ █████╗ ██╗   ██╗████████╗██╗  ██╗
██║   ██║██╔═══██╗██║██╔════╝██╔════╝██╔══██╗██║   ██║╚══██╔══╝██║  ██║
██║   ██║██║   ██║██║██║     █████╗  ███████║██║   ██║   ██║   ███████║
╚██╗ ██╔╝██║   ██║██║██║     ██╔══╝  ██╔══██║██║   ██║   ██║   ██╔══██║
 ╚████╔╝ ╚██████╔╝██║╚██████╗███████╗██║  ██║╚██████╔╝   ██║   ██║  ██║
  ╚═══╝   ╚═════╝ ╚═╝ ╚═════╝╚══════╝╚═╝  ╚═╝ ╚═════╝    ╚═╝   ╚═╝  ╚═╝`

// setupError marks failures that happen before any operation runs, such
// as an invalid config file or an unreachable store
type setupError struct {
	err error
}

func (e *setupError) Error() string { return e.err.Error() }
func (e *setupError) Unwrap() error { return e.err }

// failureRecord is printed for setup errors
type failureRecord struct {
	Success bool `json:"success"`
	*models.Failure
}

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voiceauth",
		Short: "Speaker enrollment and verification",
		Long: banner + `

Enroll a speaker from a few audio samples, then verify whether a new
sample was spoken by them. Templates are stored per speaker id; the id
defaults to "owner".

Each command prints one JSON record on stdout. Logs go to stderr.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(cmd.ErrOrStderr(), "")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.New("no command given")
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging on stderr")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	cmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Indent JSON output")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $XDG_CONFIG_HOME/voiceauth/config.yaml)")
	cmd.PersistentFlags().StringVar(&speakerFlag, "speaker-id", "", "Speaker id (default from VOICEAUTH_DEFAULT_SPEAKER)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewEnrollCmd())
	cmd.AddCommand(NewVerifyCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewDeleteCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command. Malformed invocations and setup errors
// print a failure record and are returned; domain failures are not errors.
func Execute() error {
	root := NewRootCmd()
	return run(root, os.Args[1:])
}

func run(root *cobra.Command, args []string) error {
	// A nil slice makes cobra fall back to os.Args
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return nil
	}

	out := root.OutOrStdout()
	var se *setupError
	if errors.As(err, &se) {
		log.Error("setup failed", "err", se.err)
		_ = writeRecord(out, &failureRecord{Failure: &models.Failure{
			Error: se.err.Error(),
			Kind:  models.KindOf(se.err),
		}})
		return err
	}

	_ = writeRecord(out, &models.UsageResponse{
		Error:    err.Error(),
		Commands: commandNames,
	})
	return err
}

// configureLogging routes log output to w. Flags win over the configured level.
func configureLogging(w io.Writer, level string) {
	log.SetOutput(w)
	switch {
	case verbose:
		log.SetLevel(log.DebugLevel)
	case quiet:
		log.SetLevel(log.ErrorLevel)
	case level != "":
		if lvl, err := log.ParseLevel(level); err == nil {
			log.SetLevel(lvl)
		}
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// loadConfig reads .env, then the config file and environment
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", "err", err)
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return nil, &setupError{fmt.Errorf("failed to load config: %w", err)}
	}
	configureLogging(cmd.ErrOrStderr(), cfg.LogLevel)
	return cfg, nil
}

// openService loads configuration and builds the service. The returned
// context carries the configured operation timeout.
func openService(cmd *cobra.Command) (*core.Service, context.Context, context.CancelFunc, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	svc, err := core.NewService(cfg)
	if err != nil {
		return nil, nil, nil, &setupError{err}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.OperationTimeout <= 0 {
		opCtx, cancel := context.WithCancel(ctx)
		return svc, opCtx, cancel, nil
	}
	opCtx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout)
	return svc, opCtx, cancel, nil
}

// closeService releases the service, logging rather than failing the command
func closeService(svc *core.Service) {
	if err := svc.Close(); err != nil {
		log.Warn("failed to close service", "err", err)
	}
}

// speakerArg picks a positional id, then --speaker-id, then "" for the
// configured default
func speakerArg(args []string, idx int) string {
	if len(args) > idx && args[idx] != "" {
		return args[idx]
	}
	return speakerFlag
}

// writeRecord prints v as a single line of JSON, or indented with --pretty
func writeRecord(w io.Writer, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
