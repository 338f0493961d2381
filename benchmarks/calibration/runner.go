// ABOUTME: Calibration runner: enrolls every speaker, runs every trial, scores the result
// ABOUTME: Trials that cannot be evaluated are counted separately from rejections
package calibration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/voiceauth/internal/core"
	"github.com/harper/voiceauth/internal/models"
)

// TrialResult is the outcome of one trial
type TrialResult struct {
	Speaker    string           `json:"speaker"`
	Sample     string           `json:"sample"`
	Genuine    bool             `json:"genuine"`
	Similarity *float64         `json:"similarity,omitempty"`
	Verified   bool             `json:"verified"`
	Error      string           `json:"error,omitempty"`
	Kind       models.ErrorKind `json:"kind,omitempty"`
}

// Report is the exported result of a calibration run
type Report struct {
	Name         string        `json:"name"`
	Timestamp    string        `json:"timestamp"`
	Threshold    float64       `json:"threshold"`
	Genuine      ScoreStats    `json:"genuine"`
	Impostor     ScoreStats    `json:"impostor"`
	FAR          float64       `json:"far"`
	FRR          float64       `json:"frr"`
	EER          float64       `json:"eer"`
	EERThreshold float64       `json:"eer_threshold"`
	Enrolled     []string      `json:"enrolled"`
	EnrollErrors []string      `json:"enroll_errors,omitempty"`
	Errors       int           `json:"errors"`
	Trials       []TrialResult `json:"trials"`
}

// Runner drives a Service through a manifest
type Runner struct {
	svc *core.Service
	now func() time.Time
}

// NewRunner creates a runner over svc. The service's store should be a
// scratch store: enrolling overwrites existing voiceprints.
func NewRunner(svc *core.Service) *Runner {
	return &Runner{svc: svc, now: time.Now}
}

// Run enrolls every speaker, then evaluates every trial against the
// manifest threshold, or the service default if the manifest has none
func (r *Runner) Run(ctx context.Context, m *Manifest) (*Report, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	threshold := r.svc.Threshold()
	if m.Threshold != nil {
		threshold = *m.Threshold
	}

	report := &Report{
		Name:      m.Name,
		Timestamp: r.now().Format(time.RFC3339),
		Threshold: threshold,
		Enrolled:  []string{},
		Trials:    make([]TrialResult, 0, len(m.Trials)),
	}

	enrolled := make(map[string]bool, len(m.Speakers))
	for _, s := range m.Speakers {
		resp := r.svc.Enroll(ctx, s.ID, s.Enroll)
		if !resp.Success {
			log.Warn("enrollment failed", "speaker", s.ID, "kind", resp.Kind, "err", resp.Failure.Error)
			report.EnrollErrors = append(report.EnrollErrors, fmt.Sprintf("%s: %s", s.ID, resp.Failure.Error))
			continue
		}
		log.Debug("enrolled", "speaker", s.ID, "samples", resp.SamplesUsed)
		enrolled[s.ID] = true
		report.Enrolled = append(report.Enrolled, s.ID)
	}

	var genuine, impostor []float64
	for _, t := range m.Trials {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := TrialResult{Speaker: t.Speaker, Sample: t.Sample, Genuine: t.Genuine}
		if !enrolled[t.Speaker] {
			result.Error = "speaker enrollment failed"
			result.Kind = models.KindSpeakerNotEnrolled
			report.Errors++
			report.Trials = append(report.Trials, result)
			continue
		}

		resp := r.svc.Verify(ctx, t.Speaker, t.Sample, &threshold)
		if !resp.Success {
			result.Error = resp.Failure.Error
			result.Kind = resp.Kind
			report.Errors++
			report.Trials = append(report.Trials, result)
			continue
		}

		result.Similarity = resp.Similarity
		result.Verified = resp.Verified
		if t.Genuine {
			genuine = append(genuine, *resp.Similarity)
		} else {
			impostor = append(impostor, *resp.Similarity)
		}
		report.Trials = append(report.Trials, result)
	}

	report.Genuine = Summarize(genuine)
	report.Impostor = Summarize(impostor)
	report.FAR, report.FRR = ErrorRates(genuine, impostor, threshold)
	report.EER, report.EERThreshold = EqualErrorRate(genuine, impostor)

	return report, nil
}

// ExportReport writes the report as indented JSON
func ExportReport(report *Report, outputPath string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}
