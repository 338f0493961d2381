package core

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harper/voiceauth/internal/audio"
	"github.com/harper/voiceauth/internal/embedding"
	"github.com/harper/voiceauth/internal/storage"
)

type fixture struct {
	dir      string
	table    *embedding.Table
	provider *embedding.Lazy
	store    *storage.FileStore
	loader   *audio.Loader
}

func newFixture(t *testing.T, vectors map[string][]float64) *fixture {
	t.Helper()
	dir := t.TempDir()
	table := embedding.NewTable(vectors)
	return &fixture{
		dir:   dir,
		table: table,
		provider: embedding.NewLazy(func(ctx context.Context) (embedding.Provider, error) {
			return table, nil
		}, 0),
		store:  storage.NewFileStore(filepath.Join(dir, "voiceprints")),
		loader: audio.NewLoader(audio.DefaultLimits()),
	}
}

// wav writes a 16 kHz tone of the given length and returns its path
func (f *fixture) wav(t *testing.T, name string, seconds float64) string {
	t.Helper()
	n := int(seconds * 16000)
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(0.3 * math.Sin(2*math.Pi*180*float64(i)/16000))
	}
	path := filepath.Join(f.dir, name)
	require.NoError(t, audio.WriteWAV(path, 16000, data))
	return path
}

func (f *fixture) enroller() *Enroller {
	return NewEnroller(f.provider, f.store, f.loader, DefaultMaxSamples)
}

func (f *fixture) verifier() *Verifier {
	return NewVerifier(f.provider, f.store, f.loader)
}

func (f *fixture) service() *Service {
	return NewServiceWith(Options{
		Provider:   f.provider,
		Store:      f.store,
		Loader:     f.loader,
		Threshold:  DefaultThreshold,
		MaxSamples: DefaultMaxSamples,
	})
}
