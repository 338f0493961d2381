// ABOUTME: Operation boundary for enroll, verify, check, delete, and list
// ABOUTME: Converts every outcome, success or failure, into one structured response record
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harper/voiceauth/internal/audio"
	"github.com/harper/voiceauth/internal/config"
	"github.com/harper/voiceauth/internal/embedding"
	"github.com/harper/voiceauth/internal/models"
	"github.com/harper/voiceauth/internal/storage"
)

// Options wires a Service from already-built collaborators
type Options struct {
	Provider         embedding.Provider
	Store            storage.Store
	Loader           *audio.Loader
	DefaultSpeakerID string
	Threshold        float64
	MaxSamples       int
}

// Service is the single entry point used by the CLI and the MCP server.
// Its methods never return errors: failures become the Failure variant of
// the response record.
type Service struct {
	provider         embedding.Provider
	store            storage.Store
	enroller         *Enroller
	verifier         *Verifier
	registry         *Registry
	defaultSpeakerID string
	threshold        float64
}

// NewService builds the store, the sample loader, and a lazily
// initialized provider from configuration. The provider is not touched
// until the first enroll or verify.
func NewService(cfg *config.Config) (*Service, error) {
	store, err := storage.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open voiceprint store: %w", err)
	}

	return NewServiceWith(Options{
		Provider:         embedding.New(cfg.Provider),
		Store:            store,
		Loader:           audio.NewLoader(LimitsFromConfig(cfg.Audio)),
		DefaultSpeakerID: cfg.DefaultSpeakerID,
		Threshold:        cfg.Verification.Threshold,
		MaxSamples:       cfg.Enrollment.MaxSamples,
	}), nil
}

// NewServiceWith wires a Service from explicit collaborators. Threshold
// is used as given, including 0.
func NewServiceWith(opts Options) *Service {
	if opts.Loader == nil {
		opts.Loader = audio.NewLoader(audio.DefaultLimits())
	}
	if opts.DefaultSpeakerID == "" {
		opts.DefaultSpeakerID = models.DefaultSpeakerID
	}
	return &Service{
		provider:         opts.Provider,
		store:            opts.Store,
		enroller:         NewEnroller(opts.Provider, opts.Store, opts.Loader, opts.MaxSamples),
		verifier:         NewVerifier(opts.Provider, opts.Store, opts.Loader),
		registry:         NewRegistry(opts.Store),
		defaultSpeakerID: opts.DefaultSpeakerID,
		threshold:        opts.Threshold,
	}
}

// LimitsFromConfig maps audio configuration onto loader limits
func LimitsFromConfig(cfg config.AudioConfig) audio.Limits {
	return audio.Limits{
		MinEnrollSeconds: cfg.MinEnrollSeconds,
		MinVerifySeconds: cfg.MinVerifySeconds,
		MaxSeconds:       cfg.MaxSampleSeconds,
		TruncateLong:     cfg.LongSamplePolicy != config.PolicyReject,
	}
}

// SpeakerID resolves an empty id to the configured default
func (s *Service) SpeakerID(id string) string {
	if strings.TrimSpace(id) == "" {
		return s.defaultSpeakerID
	}
	return id
}

// Threshold returns the configured default threshold
func (s *Service) Threshold() float64 {
	return s.threshold
}

// Store returns the voiceprint store
func (s *Service) Store() storage.Store {
	return s.store
}

// Enroll builds and stores a template for speakerID
func (s *Service) Enroll(ctx context.Context, speakerID string, refs []string) *models.EnrollResponse {
	speakerID = s.SpeakerID(speakerID)

	res, err := s.enroller.Enroll(ctx, speakerID, refs)
	if err != nil {
		logFailure("enroll", speakerID, err)
		return &models.EnrollResponse{Failure: models.NewFailure(err)}
	}

	return &models.EnrollResponse{
		Success:        true,
		SpeakerID:      res.SpeakerID,
		SamplesUsed:    res.SamplesUsed,
		VoiceprintPath: res.StorageLocation,
		Message:        fmt.Sprintf("Voiceprint for speaker '%s' enrolled from %d sample(s)", res.SpeakerID, res.SamplesUsed),
	}
}

// Verify compares ref against speakerID's template. A nil threshold uses
// the configured default.
func (s *Service) Verify(ctx context.Context, speakerID, ref string, threshold *float64) *models.VerifyResponse {
	speakerID = s.SpeakerID(speakerID)
	t := s.threshold
	if threshold != nil {
		t = *threshold
	}

	out, err := s.verifier.Verify(ctx, speakerID, ref, t)
	if err != nil {
		logFailure("verify", speakerID, err)
		return &models.VerifyResponse{Failure: models.NewFailure(err)}
	}

	msg := "Speaker not verified"
	if out.Verified {
		msg = "Speaker verified"
	}
	sim, thr := out.Similarity, out.Threshold
	return &models.VerifyResponse{
		Success:    true,
		Verified:   out.Verified,
		Similarity: &sim,
		Threshold:  &thr,
		SpeakerID:  out.SpeakerID,
		Message:    msg,
	}
}

// Check reports whether speakerID is enrolled
func (s *Service) Check(speakerID string) *models.CheckResponse {
	speakerID = s.SpeakerID(speakerID)

	status, err := s.registry.Check(speakerID)
	if err != nil {
		logFailure("check", speakerID, err)
		return &models.CheckResponse{SpeakerID: speakerID, Failure: models.NewFailure(err)}
	}

	resp := &models.CheckResponse{
		Success:   true,
		Enrolled:  status.Enrolled,
		SpeakerID: status.SpeakerID,
	}
	if status.Enrolled {
		loc := status.Location
		resp.VoiceprintPath = &loc
	}
	return resp
}

// Delete removes speakerID's template
func (s *Service) Delete(speakerID string) *models.DeleteResponse {
	speakerID = s.SpeakerID(speakerID)

	if err := s.registry.Delete(speakerID); err != nil {
		logFailure("delete", speakerID, err)
		f := models.NewFailure(err)
		// Deleting nothing does not call for enrollment
		f.NeedsEnrollment = false
		return &models.DeleteResponse{Failure: f}
	}

	return &models.DeleteResponse{
		Success:   true,
		SpeakerID: speakerID,
		Message:   fmt.Sprintf("Voiceprint for speaker '%s' deleted", speakerID),
	}
}

// List returns every enrolled speaker id
func (s *Service) List() *models.ListResponse {
	ids, err := s.registry.List()
	if err != nil {
		logFailure("list", "", err)
		return &models.ListResponse{Speakers: []string{}, Failure: models.NewFailure(err)}
	}
	return &models.ListResponse{Success: true, Speakers: ids, Count: len(ids)}
}

// Close releases the provider and the store
func (s *Service) Close() error {
	var errs []error
	if s.provider != nil {
		errs = append(errs, s.provider.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}

func logFailure(op, speakerID string, err error) {
	switch models.KindOf(err) {
	case models.KindInternal, models.KindStorageFailure, models.KindProviderUnavailable, models.KindDimensionMismatch:
		log.Error(op+" failed", "speaker", speakerID, "kind", models.KindOf(err), "err", err)
	default:
		log.Debug(op+" failed", "speaker", speakerID, "kind", models.KindOf(err), "err", err)
	}
}
