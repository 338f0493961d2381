// ABOUTME: WAV encoding for decoded samples
// ABOUTME: Used by the remote provider and by test and calibration fixtures
package audio

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV writes mono float32 samples as 16-bit PCM WAV.
func WriteWAV(path string, sampleRate int, data []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create %s: %w", path, err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(data)),
		SourceBitDepth: 16,
	}
	for i, v := range data {
		buf.Data[i] = int(math.Round(float64(clamp(v)) * 32767))
	}

	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("audio: encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("audio: finalize %s: %w", path, err)
	}
	return f.Close()
}

// EncodeWAV renders the sample as an in-memory 16-bit PCM WAV file.
// The encoder needs a seekable sink, so it goes through a temp file.
func EncodeWAV(s *Sample) ([]byte, error) {
	tmp, err := os.CreateTemp("", "voiceauth-*.wav")
	if err != nil {
		return nil, fmt.Errorf("audio: temp file: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(path)

	if err := WriteWAV(path, s.SampleRate, s.Data); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func clamp(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
