// ABOUTME: Voiceprint store backed by Charm KV
// ABOUTME: Templates are JSON records under voiceprint:<id>, synced to the charm cloud
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harper/voiceauth/internal/charm"
	"github.com/harper/voiceauth/internal/config"
	"github.com/harper/voiceauth/internal/models"
)

// kvClient is the subset of charm.Client the store needs
type kvClient interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	ListKeys(prefix string) ([]string, error)
	Close() error
}

// CharmStore keeps voiceprints in a Charm KV database
type CharmStore struct {
	kv       kvClient
	location string
}

// NewCharmStore opens the charm database named in cfg
func NewCharmStore(cfg config.StoreConfig) (*CharmStore, error) {
	client, err := charm.NewClient(&charm.Config{
		Host:     cfg.CharmHost,
		DBName:   cfg.CharmDB,
		AutoSync: cfg.CharmAutoSync,
	})
	if err != nil {
		return nil, storageErr(err, "open charm store")
	}
	return newCharmStore(client, fmt.Sprintf("charm://%s/%s", cfg.CharmHost, cfg.CharmDB)), nil
}

func newCharmStore(kv kvClient, location string) *CharmStore {
	return &CharmStore{kv: kv, location: location}
}

// Client returns the underlying charm client, if there is one
func (s *CharmStore) Client() *charm.Client {
	c, _ := s.kv.(*charm.Client)
	return c
}

// Location returns a URI naming the record for speakerID
func (s *CharmStore) Location(speakerID string) string {
	return s.location + "/" + charm.VoiceprintKey(speakerID)
}

// Save writes the template as a single KV record
func (s *CharmStore) Save(vp *models.Voiceprint) (string, error) {
	if len(vp.Vector) == 0 {
		return "", models.NewError(models.KindDegenerateEmbedding, "refusing to save an empty voiceprint")
	}

	rec := *vp
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(&rec)
	if err != nil {
		return "", storageErr(err, "marshal voiceprint for '%s'", vp.SpeakerID)
	}
	if err := s.kv.Set(charm.VoiceprintKey(vp.SpeakerID), data); err != nil {
		return "", storageErr(err, "save voiceprint for '%s'", vp.SpeakerID)
	}
	return s.Location(vp.SpeakerID), nil
}

// Load reads the template for speakerID
func (s *CharmStore) Load(speakerID string) (*models.Voiceprint, error) {
	data, err := s.kv.Get(charm.VoiceprintKey(speakerID))
	if err != nil {
		if errors.Is(err, charm.ErrNotFound) {
			return nil, notEnrolled(speakerID)
		}
		return nil, storageErr(err, "load voiceprint for '%s'", speakerID)
	}

	var vp models.Voiceprint
	if err := json.Unmarshal(data, &vp); err != nil {
		return nil, storageErr(err, "decode voiceprint for '%s'", speakerID)
	}
	if len(vp.Vector) == 0 {
		return nil, models.NewError(models.KindStorageFailure, "corrupt voiceprint for '%s': empty vector", speakerID)
	}
	vp.SpeakerID = speakerID
	return &vp, nil
}

// Exists reports whether a record exists for speakerID
func (s *CharmStore) Exists(speakerID string) (bool, error) {
	_, err := s.kv.Get(charm.VoiceprintKey(speakerID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, charm.ErrNotFound) {
		return false, nil
	}
	return false, storageErr(err, "check voiceprint for '%s'", speakerID)
}

// Delete removes the record for speakerID
func (s *CharmStore) Delete(speakerID string) error {
	ok, err := s.Exists(speakerID)
	if err != nil {
		return err
	}
	if !ok {
		return notEnrolled(speakerID)
	}
	if err := s.kv.Delete(charm.VoiceprintKey(speakerID)); err != nil {
		return storageErr(err, "delete voiceprint for '%s'", speakerID)
	}
	return nil
}

// List returns enrolled speaker ids, sorted
func (s *CharmStore) List() ([]string, error) {
	keys, err := s.kv.ListKeys(charm.VoiceprintPrefix)
	if err != nil {
		return nil, storageErr(err, "list voiceprints")
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, charm.VoiceprintPrefix))
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes the charm database
func (s *CharmStore) Close() error {
	return s.kv.Close()
}
