// ABOUTME: Tests for Voiceprint model and dimension validation
// ABOUTME: Verifies vector dimension checking for template consistency
package models

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestVoiceprint_ValidateDimension(t *testing.T) {
	tests := []struct {
		name        string
		voiceprint  Voiceprint
		expectedDim int
		wantKind    ErrorKind
		errContains string
	}{
		{
			name:        "valid dimension match",
			voiceprint:  Voiceprint{SpeakerID: "owner", Vector: []float64{0.1, 0.2, 0.3, 0.4}},
			expectedDim: 4,
		},
		{
			name:        "empty vector",
			voiceprint:  Voiceprint{SpeakerID: "owner", Vector: []float64{}},
			expectedDim: 4,
			wantKind:    KindDegenerateEmbedding,
			errContains: "cannot be empty",
		},
		{
			name:        "nil vector",
			voiceprint:  Voiceprint{SpeakerID: "owner"},
			expectedDim: 4,
			wantKind:    KindDegenerateEmbedding,
			errContains: "cannot be empty",
		},
		{
			name:        "dimension mismatch - too short",
			voiceprint:  Voiceprint{SpeakerID: "owner", Vector: []float64{0.1, 0.2}},
			expectedDim: 4,
			wantKind:    KindDimensionMismatch,
			errContains: "dimension mismatch",
		},
		{
			name:        "dimension mismatch - too long",
			voiceprint:  Voiceprint{SpeakerID: "owner", Vector: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}},
			expectedDim: 4,
			wantKind:    KindDimensionMismatch,
			errContains: "dimension mismatch",
		},
		{
			name:        "resemblyzer sized template",
			voiceprint:  Voiceprint{SpeakerID: "owner", Vector: make([]float64, 256)},
			expectedDim: 256,
		},
		{
			name:        "ecapa sized template",
			voiceprint:  Voiceprint{SpeakerID: "owner", Vector: make([]float64, 192)},
			expectedDim: 192,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.voiceprint.ValidateDimension(tt.expectedDim)
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("ValidateDimension() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateDimension() expected %s error, got nil", tt.wantKind)
			}
			if KindOf(err) != tt.wantKind {
				t.Errorf("KindOf() = %s, want %s", KindOf(err), tt.wantKind)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.errContains)
			}
		})
	}
}

func TestVoiceprint_Fields(t *testing.T) {
	now := time.Now()
	vp := Voiceprint{
		SpeakerID: "owner",
		Vector:    []float64{0.1, 0.2, 0.3},
		UpdatedAt: now,
	}

	if vp.SpeakerID != "owner" {
		t.Errorf("SpeakerID = %q, want %q", vp.SpeakerID, "owner")
	}
	if vp.Dimension() != 3 {
		t.Errorf("Dimension() = %d, want 3", vp.Dimension())
	}
	if !vp.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", vp.UpdatedAt, now)
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := &Error{Kind: KindSpeakerNotEnrolled, SpeakerID: "alice", Msg: "no voiceprint for alice"}

	if !errors.Is(err, ErrSpeakerNotEnrolled) {
		t.Error("errors.Is should match sentinel of same kind")
	}
	if errors.Is(err, ErrSampleNotFound) {
		t.Error("errors.Is should not match sentinel of different kind")
	}

	wrapped := errors.Join(errors.New("context"), err)
	if KindOf(wrapped) != KindSpeakerNotEnrolled {
		t.Errorf("KindOf(wrapped) = %s, want %s", KindOf(wrapped), KindSpeakerNotEnrolled)
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Errorf("KindOf(plain) = %s, want %s", got, KindInternal)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q, want empty", got)
	}
}

func TestWithSample_NamesSample(t *testing.T) {
	base := NewError(KindInsufficientAudio, "audio too short: 0.30s < 1.00s")
	err := WithSample(base, "/tmp/b.wav", 2)

	msg := err.Error()
	if !strings.Contains(msg, "sample 2: /tmp/b.wav") {
		t.Errorf("error = %q, want sample index and ref", msg)
	}
	if !errors.Is(err, ErrInsufficientAudio) {
		t.Error("annotated error should keep its kind")
	}
	if base.Sample != "" {
		t.Error("WithSample must not mutate the original error")
	}
}

func TestDecodeVector_Corrupt(t *testing.T) {
	for _, blob := range [][]byte{nil, {1, 2, 3}, make([]byte, 12)} {
		_, err := DecodeVector(blob)
		if err == nil {
			t.Errorf("DecodeVector(%d bytes) should fail", len(blob))
			continue
		}
		if !errors.Is(err, ErrStorageFailure) {
			t.Errorf("DecodeVector(%d bytes) kind = %v, want storage_failure", len(blob), KindOf(err))
		}
	}
}

func TestEncodeVector_LittleEndianLayout(t *testing.T) {
	blob := EncodeVector([]float64{1.0, -0.5})
	if len(blob) != 16 {
		t.Fatalf("len = %d, want 16", len(blob))
	}
	// 1.0 is 0x3FF0000000000000; little-endian puts 0xF0, 0x3F last
	if blob[6] != 0xF0 || blob[7] != 0x3F {
		t.Errorf("unexpected byte layout: % x", blob[:8])
	}
	got, err := DecodeVector(blob)
	if err != nil {
		t.Fatalf("DecodeVector() error = %v", err)
	}
	if got[0] != 1.0 || got[1] != -0.5 {
		t.Errorf("DecodeVector() = %v, want [1 -0.5]", got)
	}
}
