// ABOUTME: Voiceprint store contract and backend selection
// ABOUTME: One template per speaker id; saves replace wholesale and are atomic for readers
package storage

import (
	"fmt"

	"github.com/harper/voiceauth/internal/config"
	"github.com/harper/voiceauth/internal/models"
	"github.com/harper/voiceauth/internal/storage/sqlite"
)

// Store persists at most one voiceprint per speaker id.
//
// Load and Delete report models.KindSpeakerNotEnrolled when no template
// exists. Exists reports absence as false, not as an error.
type Store interface {
	// Save writes vp, replacing any existing template, and returns where it lives.
	Save(vp *models.Voiceprint) (string, error)
	Load(speakerID string) (*models.Voiceprint, error)
	Exists(speakerID string) (bool, error)
	Delete(speakerID string) error
	// List returns enrolled speaker ids in sorted order.
	List() ([]string, error)
	// Location describes where the template for speakerID is or would be stored.
	Location(speakerID string) string
	Close() error
}

// Open creates the store selected by configuration
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Dir), nil
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, storageErr(err, "open sqlite store")
		}
		return db, nil
	case config.BackendBadger:
		bs, err := NewBadgerStore(BadgerOptions{Dir: cfg.BadgerDir})
		if err != nil {
			return nil, err
		}
		return bs, nil
	case config.BackendCharm:
		cs, err := NewCharmStore(cfg)
		if err != nil {
			return nil, err
		}
		return cs, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func notEnrolled(speakerID string) error {
	return &models.Error{
		Kind:      models.KindSpeakerNotEnrolled,
		SpeakerID: speakerID,
		Msg:       fmt.Sprintf("speaker '%s' is not enrolled", speakerID),
	}
}

func storageErr(err error, format string, args ...interface{}) error {
	return models.WrapError(models.KindStorageFailure, err, format, args...)
}
