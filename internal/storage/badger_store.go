// ABOUTME: Voiceprint store backed by an embedded BadgerDB
// ABOUTME: Each save and delete is a single transaction on the voiceprint:<id> key
package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	badger "github.com/dgraph-io/badger/v4"

	"github.com/harper/voiceauth/internal/models"
)

const badgerPrefix = "voiceprint:"

// BadgerOptions configures the Badger store
type BadgerOptions struct {
	// Dir is the data directory; required unless InMemory is set
	Dir string
	// InMemory keeps everything in memory, for tests
	InMemory bool
}

// BadgerStore keeps voiceprints in BadgerDB. The value under
// voiceprint:<id> is the raw little-endian vector; the update time lives
// under updated:<id> and is written in the same transaction.
type BadgerStore struct {
	db  *badger.DB
	dir string
}

// NewBadgerStore opens (or creates) the database
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, models.NewError(models.KindStorageFailure, "badger dir is required")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, storageErr(err, "open badger store at %s", opts.Dir)
	}
	return &BadgerStore{db: db, dir: opts.Dir}, nil
}

func vectorKey(speakerID string) []byte {
	return []byte(badgerPrefix + speakerID)
}

func updatedKey(speakerID string) []byte {
	return []byte("updated:" + speakerID)
}

// Location names the key within the database directory
func (s *BadgerStore) Location(speakerID string) string {
	if s.dir == "" {
		return "badger:" + badgerPrefix + speakerID
	}
	return fmt.Sprintf("badger://%s#%s%s", s.dir, badgerPrefix, speakerID)
}

// Save replaces the template in one transaction
func (s *BadgerStore) Save(vp *models.Voiceprint) (string, error) {
	if len(vp.Vector) == 0 {
		return "", models.NewError(models.KindDegenerateEmbedding, "refusing to save an empty voiceprint")
	}
	updated := vp.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	stamp, err := updated.UTC().MarshalBinary()
	if err != nil {
		return "", storageErr(err, "encode timestamp")
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(vectorKey(vp.SpeakerID), models.EncodeVector(vp.Vector)); err != nil {
			return err
		}
		return txn.Set(updatedKey(vp.SpeakerID), stamp)
	})
	if err != nil {
		return "", storageErr(err, "save voiceprint for '%s'", vp.SpeakerID)
	}
	return s.Location(vp.SpeakerID), nil
}

// Load reads the template for speakerID
func (s *BadgerStore) Load(speakerID string) (*models.Voiceprint, error) {
	var blob, stamp []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(vectorKey(speakerID))
		if err != nil {
			return err
		}
		if blob, err = item.ValueCopy(nil); err != nil {
			return err
		}
		if item, err := txn.Get(updatedKey(speakerID)); err == nil {
			stamp, _ = item.ValueCopy(nil)
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notEnrolled(speakerID)
	}
	if err != nil {
		return nil, storageErr(err, "load voiceprint for '%s'", speakerID)
	}

	vector, err := models.DecodeVector(blob)
	if err != nil {
		return nil, storageErr(err, "decode voiceprint for '%s'", speakerID)
	}
	vp := &models.Voiceprint{SpeakerID: speakerID, Vector: vector}
	if stamp != nil {
		_ = vp.UpdatedAt.UnmarshalBinary(stamp)
	}
	return vp, nil
}

// Exists reports whether a template exists for speakerID
func (s *BadgerStore) Exists(speakerID string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(vectorKey(speakerID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageErr(err, "check voiceprint for '%s'", speakerID)
	}
	return true, nil
}

// Delete removes the template; absence is reported as not enrolled
func (s *BadgerStore) Delete(speakerID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(vectorKey(speakerID)); err != nil {
			return err
		}
		if err := txn.Delete(vectorKey(speakerID)); err != nil {
			return err
		}
		return txn.Delete(updatedKey(speakerID))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notEnrolled(speakerID)
	}
	if err != nil {
		return storageErr(err, "delete voiceprint for '%s'", speakerID)
	}
	return nil
}

// List returns enrolled speaker ids, sorted
func (s *BadgerStore) List() ([]string, error) {
	prefix := []byte(badgerPrefix)
	ids := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), badgerPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err, "list voiceprints")
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes the database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's warnings and errors through the app logger
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...interface{})   { log.Errorf("badger: "+f, v...) }
func (badgerLogger) Warningf(f string, v ...interface{}) { log.Warnf("badger: "+f, v...) }
func (badgerLogger) Infof(string, ...interface{})        {}
func (badgerLogger) Debugf(string, ...interface{})       {}
