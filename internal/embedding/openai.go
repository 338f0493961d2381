// ABOUTME: Speaker embeddings from an OpenAI-compatible embeddings endpoint
// ABOUTME: Sends each sample as a base64 WAV data URI; probes the endpoint once at startup
package embedding

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/harper/voiceauth/internal/audio"
	"github.com/harper/voiceauth/internal/config"
	"github.com/harper/voiceauth/internal/util"
)

// DefaultEmbeddingModel is the model name sent when none is configured
const DefaultEmbeddingModel = "speaker-embedding"

// OpenAIConfig holds configuration for the OpenAI-compatible provider
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// OpenAIConfigFrom maps provider configuration onto OpenAIConfig
func OpenAIConfigFrom(cfg config.ProviderConfig) OpenAIConfig {
	return OpenAIConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.InitRetries,
		RetryDelay: cfg.InitRetryDelay,
	}
}

// OpenAIProvider wraps the go-openai client for audio embeddings
type OpenAIProvider struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	timeout time.Duration
}

// NewOpenAIProvider creates the client and checks the endpoint is
// reachable, retrying with backoff. Only this probe is retried.
func NewOpenAIProvider(ctx context.Context, cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedding base URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	p := &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   openai.EmbeddingModel(cfg.Model),
		timeout: cfg.Timeout,
	}

	err := util.Retry(ctx, cfg.MaxRetries, cfg.RetryDelay,
		func(attempt int, delay time.Duration, err error) {
			log.Warn("embedding endpoint not ready, retrying", "attempt", attempt, "delay", delay, "err", err)
		},
		func(ctx context.Context) error {
			readyCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
			_, err := p.client.ListModels(readyCtx)
			return err
		})
	if err != nil {
		return nil, fmt.Errorf("embedding endpoint %s unreachable: %w", cfg.BaseURL, err)
	}

	log.Debug("embedding endpoint ready", "url", cfg.BaseURL, "model", cfg.Model)
	return p, nil
}

// Embed sends one sample to the endpoint
func (p *OpenAIProvider) Embed(ctx context.Context, s *audio.Sample) ([]float64, error) {
	wav, err := audio.EncodeWAV(s)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{dataURI(wav)},
		Model: p.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	return toFloat64(resp.Data[0].Embedding), nil
}

// Dimension is unknown until the first response
func (p *OpenAIProvider) Dimension() int {
	return 0
}

// Close is a no-op; the HTTP client holds no resources worth releasing
func (p *OpenAIProvider) Close() error {
	return nil
}

func dataURI(wav []byte) string {
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wav)
}
