// ABOUTME: Behavior every Store backend must share
// ABOUTME: Runs one contract suite against file, sqlite, badger, and charm (fake KV) stores
package storage

import (
	"errors"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/harper/voiceauth/internal/charm"
	"github.com/harper/voiceauth/internal/config"
	"github.com/harper/voiceauth/internal/models"
	"github.com/harper/voiceauth/internal/storage/sqlite"
)

// memKV is an in-memory stand-in for charm.Client
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, charm.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) ListKeys(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memKV) Close() error { return nil }

func backends(t *testing.T) map[string]Store {
	t.Helper()

	db, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("sqlite.OpenInMemory() error = %v", err)
	}
	bs, err := NewBadgerStore(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadgerStore() error = %v", err)
	}

	stores := map[string]Store{
		"file":   NewFileStore(t.TempDir()),
		"sqlite": db,
		"badger": bs,
		"charm":  newCharmStore(newMemKV(), "charm://test/voiceauth"),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if ok, err := s.Exists("owner"); err != nil || ok {
				t.Fatalf("Exists() before save = %v, %v", ok, err)
			}
			if _, err := s.Load("owner"); !errors.Is(err, models.ErrSpeakerNotEnrolled) {
				t.Errorf("Load() before save error = %v, want speaker_not_enrolled", err)
			}

			loc, err := s.Save(&models.Voiceprint{SpeakerID: "owner", Vector: []float64{0.5, 0.25, -1}})
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if loc != s.Location("owner") {
				t.Errorf("Save() location = %s, Location() = %s", loc, s.Location("owner"))
			}

			// Re-enrollment replaces wholesale
			if _, err := s.Save(&models.Voiceprint{SpeakerID: "owner", Vector: []float64{1, 2, 3}}); err != nil {
				t.Fatalf("second Save() error = %v", err)
			}
			vp, err := s.Load("owner")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !reflect.DeepEqual(vp.Vector, []float64{1, 2, 3}) {
				t.Errorf("Load() = %v, want [1 2 3]", vp.Vector)
			}
			if vp.SpeakerID != "owner" {
				t.Errorf("Load() speaker = %s", vp.SpeakerID)
			}

			if _, err := s.Save(&models.Voiceprint{SpeakerID: "guest", Vector: []float64{1}}); err != nil {
				t.Fatalf("Save(guest) error = %v", err)
			}
			ids, err := s.List()
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if !reflect.DeepEqual(ids, []string{"guest", "owner"}) {
				t.Errorf("List() = %v, want [guest owner]", ids)
			}

			if err := s.Delete("owner"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if ok, _ := s.Exists("owner"); ok {
				t.Error("Exists() = true after Delete()")
			}
			if err := s.Delete("owner"); !errors.Is(err, models.ErrSpeakerNotEnrolled) {
				t.Errorf("second Delete() error = %v, want speaker_not_enrolled", err)
			}
			if ok, _ := s.Exists("guest"); !ok {
				t.Error("deleting owner removed guest")
			}

			if _, err := s.Save(&models.Voiceprint{SpeakerID: "empty"}); !errors.Is(err, models.ErrDegenerateEmbedding) {
				t.Errorf("Save(empty) error = %v, want degenerate_embedding", err)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.StoreConfig
		wantErr bool
	}{
		{"file", config.StoreConfig{Backend: config.BackendFile, Dir: filepath.Join(dir, "vp")}, false},
		{"default is file", config.StoreConfig{Dir: filepath.Join(dir, "vp2")}, false},
		{"sqlite", config.StoreConfig{Backend: config.BackendSQLite, SQLitePath: filepath.Join(dir, "vp.db")}, false},
		{"badger", config.StoreConfig{Backend: config.BackendBadger, BadgerDir: filepath.Join(dir, "badger")}, false},
		{"badger without dir", config.StoreConfig{Backend: config.BackendBadger}, true},
		{"unknown", config.StoreConfig{Backend: "redis"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if tt.wantErr {
				if err == nil {
					_ = s.Close()
					t.Fatal("Open() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			_ = s.Close()
		})
	}
}

func TestCharmStore_CorruptRecord(t *testing.T) {
	kv := newMemKV()
	s := newCharmStore(kv, "charm://test/voiceauth")
	_ = kv.Set(charm.VoiceprintKey("owner"), []byte("{not json"))

	if _, err := s.Load("owner"); !errors.Is(err, models.ErrStorageFailure) {
		t.Errorf("Load() error = %v, want storage_failure", err)
	}
}

func TestBadgerStore_KeepsUpdateTime(t *testing.T) {
	s, err := NewBadgerStore(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadgerStore() error = %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, err := s.Save(&models.Voiceprint{SpeakerID: "owner", Vector: []float64{1}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	vp, err := s.Load("owner")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if vp.UpdatedAt.IsZero() {
		t.Error("Load() should restore the update time")
	}
}
