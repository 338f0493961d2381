package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/voiceauth/internal/models"
)

func tone(seconds float64, rate int, freq float64) []float32 {
	n := int(seconds * float64(rate))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func writeTone(t *testing.T, dir, name string, seconds float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, WriteWAV(path, 16000, tone(seconds, 16000, 220)))
	return path
}

func TestDecode_RoundTrip(t *testing.T) {
	path := writeTone(t, t.TempDir(), "a.wav", 1.25)

	s, err := Decode(path)
	require.NoError(t, err)

	assert.Equal(t, 16000, s.SampleRate)
	assert.Len(t, s.Data, 20000)
	assert.InDelta(t, 1.25, s.Seconds(), 1e-9)
	// 16-bit quantization error stays well below 1e-3
	assert.InDelta(t, 0.5*math.Sin(2*math.Pi*220*10/16000), s.Data[10], 1e-3)
}

func TestDecode_NotFound(t *testing.T) {
	_, err := Decode(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSampleNotFound)
}

func TestDecode_Directory(t *testing.T) {
	_, err := Decode(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSampleNotFound)
}

func TestDecode_NotWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not RIFF data"), 0o644))

	_, err := Decode(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSampleNotFound)
}

func TestLoader_DurationFloors(t *testing.T) {
	dir := t.TempDir()
	short := writeTone(t, dir, "short.wav", 0.3)
	verifyShort := writeTone(t, dir, "v-short.wav", 0.4)
	verifyOK := writeTone(t, dir, "v-ok.wav", 0.6)
	enrollOK := writeTone(t, dir, "e-ok.wav", 1.0)

	l := NewLoader(DefaultLimits())

	tests := []struct {
		name    string
		ref     string
		purpose Purpose
		wantErr error
	}{
		{"enrollment 0.3s rejected", short, ForEnrollment, models.ErrInsufficientAudio},
		{"enrollment 0.6s rejected", verifyOK, ForEnrollment, models.ErrInsufficientAudio},
		{"enrollment 1.0s accepted", enrollOK, ForEnrollment, nil},
		{"verification 0.4s rejected", verifyShort, ForVerification, models.ErrInsufficientAudio},
		{"verification 0.6s accepted", verifyOK, ForVerification, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := l.Load(tt.ref, tt.purpose)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ref, s.Ref)
		})
	}
}

func TestLoader_LongSamples(t *testing.T) {
	path := writeTone(t, t.TempDir(), "long.wav", 3.0)

	t.Run("truncate", func(t *testing.T) {
		l := NewLoader(Limits{MinEnrollSeconds: 1, MinVerifySeconds: 0.5, MaxSeconds: 2, TruncateLong: true})
		s, err := l.Load(path, ForEnrollment)
		require.NoError(t, err)
		assert.True(t, s.Truncated)
		assert.InDelta(t, 2.0, s.Seconds(), 1e-9)
	})

	t.Run("reject", func(t *testing.T) {
		l := NewLoader(Limits{MinEnrollSeconds: 1, MinVerifySeconds: 0.5, MaxSeconds: 2})
		_, err := l.Load(path, ForEnrollment)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrSampleTooLong)
	})

	t.Run("unbounded", func(t *testing.T) {
		l := NewLoader(Limits{MinEnrollSeconds: 1, MinVerifySeconds: 0.5})
		s, err := l.Load(path, ForEnrollment)
		require.NoError(t, err)
		assert.False(t, s.Truncated)
		assert.InDelta(t, 3.0, s.Seconds(), 1e-9)
	})
}

func TestEncodeWAV(t *testing.T) {
	s := &Sample{Ref: "mem", SampleRate: 8000, Data: tone(0.5, 8000, 440)}

	data, err := EncodeWAV(s)
	require.NoError(t, err)
	require.Greater(t, len(data), 44)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
}
