//go:build cgo

// ABOUTME: Local speaker embedding provider backed by sherpa-onnx
// ABOUTME: Only built with cgo; calls into the extractor are serialized
package embedding

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/harper/voiceauth/internal/audio"
	"github.com/harper/voiceauth/internal/models"
)

// SherpaProvider runs a local ONNX speaker embedding model through
// sherpa-onnx. The extractor is not reentrant, so calls are serialized.
type SherpaProvider struct {
	mu   sync.Mutex
	impl *sherpa.SpeakerEmbeddingExtractor
	dim  int
}

// NewSherpaProvider loads the model at modelPath.
func NewSherpaProvider(modelPath string, numThreads int, device string) (*SherpaProvider, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("speaker model %s: %w", modelPath, err)
	}
	if numThreads < 1 {
		numThreads = 1
	}
	if device == "" {
		device = "cpu"
	}

	impl := sherpa.NewSpeakerEmbeddingExtractor(&sherpa.SpeakerEmbeddingExtractorConfig{
		Model:      modelPath,
		NumThreads: numThreads,
		Debug:      0,
		Provider:   device,
	})
	if impl == nil {
		return nil, fmt.Errorf("failed to load speaker model %s", modelPath)
	}

	log.Info("speaker model loaded", "model", modelPath, "dim", impl.Dim(), "threads", numThreads)
	return &SherpaProvider{impl: impl, dim: impl.Dim()}, nil
}

// Embed computes the embedding for one sample. sherpa-onnx resamples
// internally, so the sample's native rate is passed through.
func (p *SherpaProvider) Embed(ctx context.Context, s *audio.Sample) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.impl == nil {
		return nil, models.NewError(models.KindProviderUnavailable, "speaker model is closed")
	}

	stream := p.impl.CreateStream()
	if stream == nil {
		return nil, fmt.Errorf("failed to create embedding stream")
	}
	defer sherpa.DeleteOnlineStream(stream)

	stream.AcceptWaveform(s.SampleRate, s.Data)
	stream.InputFinished()

	if !p.impl.IsReady(stream) {
		return nil, fmt.Errorf("model needs more audio than %s provides", s)
	}
	return toFloat64(p.impl.Compute(stream)), nil
}

// Dimension reports the model's embedding size.
func (p *SherpaProvider) Dimension() int {
	return p.dim
}

// Close frees the native extractor.
func (p *SherpaProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.impl != nil {
		sherpa.DeleteSpeakerEmbeddingExtractor(p.impl)
		p.impl = nil
	}
	return nil
}
