// ABOUTME: Table provider returning fixed embeddings keyed by sample
// ABOUTME: Deterministic stand-in for tests and offline runs
package embedding

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/harper/voiceauth/internal/audio"
)

// Table is a deterministic provider that returns a fixed vector per
// sample file name, for tests.
type Table struct {
	mu      sync.Mutex
	Vectors map[string][]float64
	// Err, if set, is returned for the named samples.
	Err   map[string]error
	calls int
}

// NewTable creates a Table provider from base file name to vector.
func NewTable(vectors map[string][]float64) *Table {
	return &Table{Vectors: vectors, Err: map[string]error{}}
}

// Embed returns a copy of the vector registered for the sample's base name.
func (t *Table) Embed(ctx context.Context, s *audio.Sample) ([]float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++

	name := filepath.Base(s.Ref)
	if err, ok := t.Err[name]; ok {
		return nil, err
	}
	v, ok := t.Vectors[name]
	if !ok {
		return nil, fmt.Errorf("no vector registered for %s", name)
	}
	return append([]float64(nil), v...), nil
}

// Calls reports how many times Embed ran.
func (t *Table) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func (t *Table) Dimension() int { return 0 }

func (t *Table) Close() error { return nil }
