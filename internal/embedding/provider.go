// ABOUTME: Embedding provider contract and lazy, once-only initialization
// ABOUTME: Maps provider failures onto the voiceauth error taxonomy
package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/harper/voiceauth/internal/audio"
	"github.com/harper/voiceauth/internal/config"
	"github.com/harper/voiceauth/internal/models"
)

// Provider turns one validated audio sample into a fixed-length speaker
// embedding. Implementations must be safe for concurrent use.
type Provider interface {
	Embed(ctx context.Context, s *audio.Sample) ([]float64, error)
	// Dimension reports D, or 0 if the provider only learns it from output.
	Dimension() int
	Close() error
}

// Factory builds a ready provider. It runs until it succeeds once.
type Factory func(ctx context.Context) (Provider, error)

// Lazy defers provider construction until the first Embed call. A failed
// construction is remembered and reported as ProviderUnavailable on every
// later call, unless it failed only because the caller's context ended.
type Lazy struct {
	factory Factory
	pinned  int

	initMu sync.Mutex
	done   bool
	p      Provider
	err    error

	mu  sync.Mutex
	dim int
}

// NewLazy wraps factory. A non-zero dimension pins D: any vector of a
// different length is a dimension mismatch.
func NewLazy(factory Factory, dimension int) *Lazy {
	return &Lazy{factory: factory, pinned: dimension, dim: dimension}
}

// New selects a provider implementation from configuration.
func New(cfg config.ProviderConfig) *Lazy {
	var factory Factory
	switch cfg.Kind {
	case config.ProviderOpenAI:
		factory = func(ctx context.Context) (Provider, error) {
			p, err := NewOpenAIProvider(ctx, OpenAIConfigFrom(cfg))
			if err != nil {
				return nil, err
			}
			return p, nil
		}
	default:
		factory = func(ctx context.Context) (Provider, error) {
			p, err := NewSherpaProvider(cfg.ModelPath, cfg.NumThreads, cfg.Device)
			if err != nil {
				return nil, err
			}
			return p, nil
		}
	}
	return NewLazy(factory, cfg.Dimension)
}

func (l *Lazy) init(ctx context.Context) (Provider, error) {
	l.initMu.Lock()
	defer l.initMu.Unlock()
	if l.done {
		return l.p, l.err
	}

	p, err := l.factory(ctx)
	if err != nil {
		wrapped := models.WrapError(models.KindProviderUnavailable, err, "embedding provider unavailable")
		// A cancelled or expired caller says nothing about the provider
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn("embedding provider initialization interrupted", "err", err)
			return nil, wrapped
		}
		log.Error("embedding provider initialization failed", "err", err)
		l.done, l.err = true, wrapped
		return nil, l.err
	}

	if d := p.Dimension(); d > 0 {
		if l.pinned > 0 && d != l.pinned {
			_ = p.Close()
			l.done = true
			l.err = models.NewError(models.KindProviderUnavailable,
				"embedding provider reports dimension %d, configured %d", d, l.pinned)
			return nil, l.err
		}
		l.setDim(d)
	}
	log.Debug("embedding provider ready", "dimension", p.Dimension())
	l.done, l.p = true, p
	return p, nil
}

// Embed initializes the provider if needed and extracts one embedding.
// Extraction is never retried.
func (l *Lazy) Embed(ctx context.Context, s *audio.Sample) ([]float64, error) {
	p, err := l.init(ctx)
	if err != nil {
		return nil, err
	}

	vec, err := p.Embed(ctx, s)
	if err != nil {
		var me *models.Error
		if errors.As(err, &me) {
			return nil, err
		}
		return nil, models.WrapError(models.KindEmbeddingExtractionFailed, err, "embedding extraction failed for %s", s.Ref)
	}
	if len(vec) == 0 {
		return nil, models.NewError(models.KindEmbeddingExtractionFailed, "provider returned an empty embedding for %s", s.Ref)
	}

	if want := l.Dimension(); want > 0 && len(vec) != want {
		return nil, models.NewError(models.KindDimensionMismatch,
			"dimension mismatch: expected %d, got %d", want, len(vec))
	}
	l.setDim(len(vec))
	return vec, nil
}

// Dimension returns the pinned or observed D, or 0 before the first embedding.
func (l *Lazy) Dimension() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dim
}

func (l *Lazy) setDim(d int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dim == 0 {
		l.dim = d
	}
}

// Close releases the provider if it was ever built.
func (l *Lazy) Close() error {
	l.initMu.Lock()
	defer l.initMu.Unlock()
	if l.p == nil {
		return nil
	}
	if err := l.p.Close(); err != nil {
		return fmt.Errorf("closing embedding provider: %w", err)
	}
	return nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
