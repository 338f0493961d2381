// ABOUTME: File-per-speaker voiceprint store
// ABOUTME: Writes a uuid-named temp file, fsyncs, then renames it over the target
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/harper/voiceauth/internal/models"
)

const vecExt = ".vec"

// FileStore keeps one <escaped-id>.vec file per speaker under dir.
// Writers for the same speaker are serialized; readers take no lock and
// observe either the previous or the new file.
type FileStore struct {
	dir   string
	locks keyedMutex
}

// NewFileStore creates a store rooted at dir. The directory is created
// on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the root directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Location returns the file path for speakerID
func (s *FileStore) Location(speakerID string) string {
	return filepath.Join(s.dir, EscapeID(speakerID)+vecExt)
}

// Save atomically replaces the template for vp.SpeakerID
func (s *FileStore) Save(vp *models.Voiceprint) (string, error) {
	if len(vp.Vector) == 0 {
		return "", models.NewError(models.KindDegenerateEmbedding, "refusing to save an empty voiceprint")
	}

	unlock := s.locks.lock(vp.SpeakerID)
	defer unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", storageErr(err, "create voiceprint directory %s", s.dir)
	}

	target := s.Location(vp.SpeakerID)
	tmp := filepath.Join(s.dir, "."+uuid.New().String()+".tmp")

	if err := writeSynced(tmp, models.EncodeVector(vp.Vector)); err != nil {
		_ = os.Remove(tmp)
		return "", storageErr(err, "write voiceprint for '%s'", vp.SpeakerID)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", storageErr(err, "replace voiceprint for '%s'", vp.SpeakerID)
	}

	log.Debug("voiceprint saved", "speaker", vp.SpeakerID, "path", target, "dim", len(vp.Vector))
	return target, nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Load reads the template for speakerID
func (s *FileStore) Load(speakerID string) (*models.Voiceprint, error) {
	path := s.Location(speakerID)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notEnrolled(speakerID)
		}
		return nil, storageErr(err, "read voiceprint for '%s'", speakerID)
	}

	vector, err := models.DecodeVector(data)
	if err != nil {
		return nil, storageErr(err, "decode voiceprint %s", path)
	}

	vp := &models.Voiceprint{SpeakerID: speakerID, Vector: vector}
	if info, err := os.Stat(path); err == nil {
		vp.UpdatedAt = info.ModTime()
	}
	return vp, nil
}

// Exists reports whether a template file exists for speakerID
func (s *FileStore) Exists(speakerID string) (bool, error) {
	info, err := os.Stat(s.Location(speakerID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, storageErr(err, "stat voiceprint for '%s'", speakerID)
	}
	return info.Mode().IsRegular(), nil
}

// Delete removes the template for speakerID
func (s *FileStore) Delete(speakerID string) error {
	unlock := s.locks.lock(speakerID)
	defer unlock()

	if err := os.Remove(s.Location(speakerID)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notEnrolled(speakerID)
		}
		return storageErr(err, "delete voiceprint for '%s'", speakerID)
	}
	log.Debug("voiceprint deleted", "speaker", speakerID)
	return nil
}

// List returns the enrolled speaker ids, sorted
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, storageErr(err, "list voiceprints in %s", s.dir)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, vecExt) {
			continue
		}
		stem := strings.TrimSuffix(name, vecExt)
		id, err := UnescapeID(stem)
		// Only canonical names are reachable through Load and Exists
		if err != nil || EscapeID(id) != stem {
			log.Warn("skipping unrecognized voiceprint file", "file", name)
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for the file store
func (s *FileStore) Close() error {
	return nil
}

// EscapeID maps a speaker id to a file name stem. Letters, digits, '-',
// '_' and '.' pass through, except a leading '.'; every other byte is
// written as %XX. The mapping is injective, so distinct ids never share
// a file.
func EscapeID(id string) string {
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		if isSafe(c) && !(i == 0 && c == '.') {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

// UnescapeID reverses EscapeID
func UnescapeID(stem string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(stem); i++ {
		c := stem[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(stem) {
			return "", fmt.Errorf("truncated escape in %q", stem)
		}
		v, err := strconv.ParseUint(stem[i+1:i+3], 16, 8)
		if err != nil {
			return "", fmt.Errorf("bad escape in %q: %w", stem, err)
		}
		b.WriteByte(byte(v))
		i += 2
	}
	return b.String(), nil
}

func isSafe(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '_' || c == '.'
}

// keyedMutex hands out one mutex per key so writers for different
// speakers never block each other. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
