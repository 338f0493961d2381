// ABOUTME: Voiceprint model: one enrolled embedding template per speaker
// ABOUTME: Includes dimension validation shared by the store and the engines
package models

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// DefaultSpeakerID is used when a caller does not name a speaker
const DefaultSpeakerID = "owner"

// Voiceprint is the stored template for one speaker. It is never mutated
// in place; re-enrollment replaces it wholesale.
type Voiceprint struct {
	SpeakerID string    `json:"speaker_id"`
	Vector    []float64 `json:"vector"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Dimension returns the length of the template vector
func (v *Voiceprint) Dimension() int {
	return len(v.Vector)
}

// ValidateDimension checks the vector is non-empty and has exactly expectedDim entries
func (v *Voiceprint) ValidateDimension(expectedDim int) error {
	if len(v.Vector) == 0 {
		return &Error{
			Kind:      KindDegenerateEmbedding,
			SpeakerID: v.SpeakerID,
			Msg:       "voiceprint vector cannot be empty",
		}
	}
	if len(v.Vector) != expectedDim {
		return &Error{
			Kind:      KindDimensionMismatch,
			SpeakerID: v.SpeakerID,
			Msg:       fmt.Sprintf("dimension mismatch: expected %d, got %d", expectedDim, len(v.Vector)),
		}
	}
	return nil
}

// EncodeVector serializes a vector as consecutive little-endian float64 values
func EncodeVector(vector []float64) []byte {
	blob := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(v))
	}
	return blob
}

// DecodeVector is the inverse of EncodeVector. A blob that is empty or
// not a whole number of float64 values is rejected.
func DecodeVector(blob []byte) ([]float64, error) {
	if len(blob) == 0 || len(blob)%8 != 0 {
		return nil, NewError(KindStorageFailure, "corrupt voiceprint: %d bytes is not a whole vector", len(blob))
	}
	count := len(blob) / 8
	vector := make([]float64, count)
	for i := 0; i < count; i++ {
		vector[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return vector, nil
}

// EnrollmentRequest asks for a speaker to be enrolled from audio samples
type EnrollmentRequest struct {
	SpeakerID  string   `json:"speaker_id"`
	SampleRefs []string `json:"sample_refs"`
}

// EnrollmentResult describes a successful enrollment
type EnrollmentResult struct {
	SpeakerID       string `json:"speaker_id"`
	SamplesUsed     int    `json:"samples_used"`
	StorageLocation string `json:"voiceprint_path"`
	Dimension       int    `json:"dimension"`
}

// VerificationOutcome is the decision for one verification attempt.
// Similarity is reported even when Verified is false.
type VerificationOutcome struct {
	SpeakerID  string  `json:"speaker_id"`
	Verified   bool    `json:"verified"`
	Similarity float64 `json:"similarity"`
	Threshold  float64 `json:"threshold"`
}

// EnrollmentStatus is the answer to a registry check
type EnrollmentStatus struct {
	SpeakerID string `json:"speaker_id"`
	Enrolled  bool   `json:"enrolled"`
	Location  string `json:"voiceprint_path,omitempty"`
}
