// ABOUTME: Verification engine: compares a fresh sample against an enrolled template
// ABOUTME: Reports the similarity on every completed comparison, verified or not
package core

import (
	"context"
	"math"

	"github.com/charmbracelet/log"

	"github.com/harper/voiceauth/internal/audio"
	"github.com/harper/voiceauth/internal/embedding"
	"github.com/harper/voiceauth/internal/models"
	"github.com/harper/voiceauth/internal/storage"
)

// DefaultThreshold is the similarity at or above which a sample verifies
const DefaultThreshold = 0.75

// Verifier decides whether a sample matches an enrolled speaker
type Verifier struct {
	provider embedding.Provider
	store    storage.Store
	loader   *audio.Loader
}

// NewVerifier creates a Verifier
func NewVerifier(provider embedding.Provider, store storage.Store, loader *audio.Loader) *Verifier {
	return &Verifier{provider: provider, store: store, loader: loader}
}

// ValidateThreshold rejects thresholds that are not finite or lie outside [-1, 1]
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < -1 || threshold > 1 {
		return models.NewError(models.KindInvalidThreshold, "threshold must be a number within [-1, 1], got %v", threshold)
	}
	return nil
}

// Verify checks ref against the template for speakerID. The template is
// loaded before the sample is touched, so an unenrolled speaker is
// reported as such whatever the sample.
func (v *Verifier) Verify(ctx context.Context, speakerID, ref string, threshold float64) (*models.VerificationOutcome, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	vp, err := v.store.Load(speakerID)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sample, err := v.loader.Load(ref, audio.ForVerification)
	if err != nil {
		return nil, models.WithSample(err, ref, 0)
	}
	if sample.Truncated {
		log.Warn("verification sample truncated", "sample", ref, "max_seconds", v.loader.Limits().MaxSeconds)
	}

	fresh, err := v.provider.Embed(ctx, sample)
	if err != nil {
		return nil, models.WithSample(err, ref, 0)
	}
	if err := vp.ValidateDimension(len(fresh)); err != nil {
		return nil, err
	}

	similarity, err := CosineSimilarity(vp.Vector, fresh)
	if err != nil {
		return nil, err
	}

	outcome := &models.VerificationOutcome{
		SpeakerID:  speakerID,
		Verified:   similarity >= threshold,
		Similarity: similarity,
		Threshold:  threshold,
	}
	log.Info("verification complete", "speaker", speakerID, "verified", outcome.Verified,
		"similarity", similarity, "threshold", threshold)
	return outcome, nil
}
