// ABOUTME: Registry answers enrollment status, deletion, and listing
// ABOUTME: Thin layer over the voiceprint store with not-enrolled semantics
package core

import (
	"errors"

	"github.com/charmbracelet/log"

	"github.com/harper/voiceauth/internal/models"
	"github.com/harper/voiceauth/internal/storage"
)

// Registry answers enrollment-state queries. It never touches the provider.
type Registry struct {
	store storage.Store
}

// NewRegistry creates a Registry
func NewRegistry(store storage.Store) *Registry {
	return &Registry{store: store}
}

// Check reports whether speakerID is enrolled. Absence is a normal answer.
func (r *Registry) Check(speakerID string) (*models.EnrollmentStatus, error) {
	ok, err := r.store.Exists(speakerID)
	if err != nil {
		return nil, err
	}
	status := &models.EnrollmentStatus{SpeakerID: speakerID, Enrolled: ok}
	if ok {
		status.Location = r.store.Location(speakerID)
	}
	return status, nil
}

// Delete removes the template for speakerID
func (r *Registry) Delete(speakerID string) error {
	if err := r.store.Delete(speakerID); err != nil {
		if !errors.Is(err, models.ErrSpeakerNotEnrolled) {
			log.Error("delete failed", "speaker", speakerID, "err", err)
		}
		return err
	}
	log.Info("speaker deleted", "speaker", speakerID)
	return nil
}

// List returns the enrolled speaker ids, sorted
func (r *Registry) List() ([]string, error) {
	return r.store.List()
}
