// ABOUTME: Enrollment manager: builds a speaker template from one or more samples
// ABOUTME: Validates every sample, averages the embeddings, and replaces the stored voiceprint
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/floats"

	"github.com/harper/voiceauth/internal/audio"
	"github.com/harper/voiceauth/internal/embedding"
	"github.com/harper/voiceauth/internal/models"
	"github.com/harper/voiceauth/internal/storage"
)

// DefaultMaxSamples bounds a single enrollment request
const DefaultMaxSamples = 20

// Enroller turns enrollment samples into a stored voiceprint
type Enroller struct {
	provider   embedding.Provider
	store      storage.Store
	loader     *audio.Loader
	maxSamples int
	now        func() time.Time
}

// NewEnroller creates an Enroller. A maxSamples below 1 uses DefaultMaxSamples.
func NewEnroller(provider embedding.Provider, store storage.Store, loader *audio.Loader, maxSamples int) *Enroller {
	if maxSamples < 1 {
		maxSamples = DefaultMaxSamples
	}
	return &Enroller{
		provider:   provider,
		store:      store,
		loader:     loader,
		maxSamples: maxSamples,
		now:        time.Now,
	}
}

// Enroll validates and embeds each sample in order, averages the
// embeddings into a template, and stores it under speakerID, replacing
// any previous template. The first failing sample aborts the whole
// enrollment and nothing is written.
func (e *Enroller) Enroll(ctx context.Context, speakerID string, refs []string) (*models.EnrollmentResult, error) {
	if len(refs) == 0 {
		return nil, &models.Error{
			Kind:      models.KindNoSamplesProvided,
			Op:        "enroll",
			SpeakerID: speakerID,
			Msg:       "at least one audio sample is required (3 or more recommended)",
		}
	}
	if len(refs) > e.maxSamples {
		return nil, &models.Error{
			Kind:      models.KindTooManySamples,
			Op:        "enroll",
			SpeakerID: speakerID,
			Msg:       fmt.Sprintf("%d samples exceeds the limit of %d", len(refs), e.maxSamples),
		}
	}

	vectors := make([][]float64, 0, len(refs))
	for i, ref := range refs {
		vec, err := e.embedSample(ctx, ref)
		if err != nil {
			return nil, models.WithSample(err, ref, i+1)
		}
		if len(vectors) > 0 && len(vec) != len(vectors[0]) {
			return nil, models.WithSample(models.NewError(models.KindDimensionMismatch,
				"dimension mismatch: expected %d, got %d", len(vectors[0]), len(vec)), ref, i+1)
		}
		if !finite(vec) {
			return nil, models.WithSample(models.NewError(models.KindDegenerateEmbedding,
				"embedding contains non-finite values"), ref, i+1)
		}
		vectors = append(vectors, vec)
	}

	template := Mean(vectors)
	if floats.Norm(template, 2) == 0 {
		return nil, &models.Error{
			Kind:      models.KindDegenerateEmbedding,
			Op:        "enroll",
			SpeakerID: speakerID,
			Msg:       "averaged template has zero norm",
		}
	}

	vp := &models.Voiceprint{SpeakerID: speakerID, Vector: template, UpdatedAt: e.now()}
	location, err := e.store.Save(vp)
	if err != nil {
		return nil, err
	}

	log.Info("speaker enrolled", "speaker", speakerID, "samples", len(refs), "dim", len(template))
	return &models.EnrollmentResult{
		SpeakerID:       speakerID,
		SamplesUsed:     len(refs),
		StorageLocation: location,
		Dimension:       len(template),
	}, nil
}

func (e *Enroller) embedSample(ctx context.Context, ref string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sample, err := e.loader.Load(ref, audio.ForEnrollment)
	if err != nil {
		return nil, err
	}
	if sample.Truncated {
		log.Warn("enrollment sample truncated", "sample", ref, "max_seconds", e.loader.Limits().MaxSeconds)
	}
	log.Debug("embedding enrollment sample", "sample", sample)
	return e.provider.Embed(ctx, sample)
}
