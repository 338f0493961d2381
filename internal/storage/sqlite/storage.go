// ABOUTME: Voiceprint store operations on the SQLite database
// ABOUTME: Saves are a single upsert, so readers never see a partial template
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harper/voiceauth/internal/models"
)

// Location names the row for speakerID
func (db *DB) Location(speakerID string) string {
	return fmt.Sprintf("sqlite://%s#%s", db.path, speakerID)
}

// Save inserts or replaces the template for vp.SpeakerID
func (db *DB) Save(vp *models.Voiceprint) (string, error) {
	if len(vp.Vector) == 0 {
		return "", models.NewError(models.KindDegenerateEmbedding, "refusing to save an empty voiceprint")
	}
	updated := vp.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err := db.conn.Exec(`
		INSERT INTO voiceprints (speaker_id, dimension, vector, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(speaker_id) DO UPDATE SET
			dimension = excluded.dimension,
			vector = excluded.vector,
			updated_at = excluded.updated_at
	`, vp.SpeakerID, len(vp.Vector), models.EncodeVector(vp.Vector), updated.UTC())
	if err != nil {
		return "", models.WrapError(models.KindStorageFailure, err, "save voiceprint for '%s'", vp.SpeakerID)
	}
	return db.Location(vp.SpeakerID), nil
}

// Load reads the template for speakerID
func (db *DB) Load(speakerID string) (*models.Voiceprint, error) {
	var (
		dim     int
		blob    []byte
		updated time.Time
	)
	err := db.conn.QueryRow(
		"SELECT dimension, vector, updated_at FROM voiceprints WHERE speaker_id = ?", speakerID,
	).Scan(&dim, &blob, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notEnrolled(speakerID)
	}
	if err != nil {
		return nil, models.WrapError(models.KindStorageFailure, err, "load voiceprint for '%s'", speakerID)
	}

	vector, err := models.DecodeVector(blob)
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, models.NewError(models.KindStorageFailure,
			"corrupt voiceprint for '%s': header says %d values, blob has %d", speakerID, dim, len(vector))
	}
	return &models.Voiceprint{SpeakerID: speakerID, Vector: vector, UpdatedAt: updated}, nil
}

// Exists reports whether a row exists for speakerID
func (db *DB) Exists(speakerID string) (bool, error) {
	var one int
	err := db.conn.QueryRow("SELECT 1 FROM voiceprints WHERE speaker_id = ?", speakerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, models.WrapError(models.KindStorageFailure, err, "check voiceprint for '%s'", speakerID)
	}
	return true, nil
}

// Delete removes the row for speakerID
func (db *DB) Delete(speakerID string) error {
	res, err := db.conn.Exec("DELETE FROM voiceprints WHERE speaker_id = ?", speakerID)
	if err != nil {
		return models.WrapError(models.KindStorageFailure, err, "delete voiceprint for '%s'", speakerID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.WrapError(models.KindStorageFailure, err, "delete voiceprint for '%s'", speakerID)
	}
	if n == 0 {
		return notEnrolled(speakerID)
	}
	return nil
}

// List returns enrolled speaker ids, sorted
func (db *DB) List() ([]string, error) {
	rows, err := db.conn.Query("SELECT speaker_id FROM voiceprints ORDER BY speaker_id")
	if err != nil {
		return nil, models.WrapError(models.KindStorageFailure, err, "list voiceprints")
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, models.WrapError(models.KindStorageFailure, err, "list voiceprints")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func notEnrolled(speakerID string) error {
	return &models.Error{
		Kind:      models.KindSpeakerNotEnrolled,
		SpeakerID: speakerID,
		Msg:       fmt.Sprintf("speaker '%s' is not enrolled", speakerID),
	}
}
