// ABOUTME: Sample decoding into mono float32 PCM
// ABOUTME: Decodes WAV files referenced by path and downmixes them to mono

// Package audio resolves sample references into decoded mono PCM and
// enforces the duration limits that apply before any embedding call.
package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-audio/wav"

	"github.com/harper/voiceauth/internal/models"
)

// Sample is one decoded audio clip, downmixed to mono float32 in [-1, 1].
type Sample struct {
	Ref        string
	SampleRate int
	Data       []float32
	// Truncated is set when the clip was cut to the configured maximum.
	Truncated bool
}

// Duration returns the clip length.
func (s *Sample) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.Data)) / float64(s.SampleRate) * float64(time.Second))
}

// Seconds returns the clip length in seconds.
func (s *Sample) Seconds() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Data)) / float64(s.SampleRate)
}

// Decode reads a WAV file and downmixes it to mono.
//
// Missing, unreadable, and undecodable references are all reported as
// models.KindSampleNotFound: from the caller's point of view none of them
// resolve to a usable audio resource.
func Decode(ref string) (*Sample, error) {
	info, err := os.Stat(ref)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.WrapError(models.KindSampleNotFound, nil, "audio file not found: %s", ref)
		}
		return nil, models.WrapError(models.KindSampleNotFound, err, "audio file not accessible: %s", ref)
	}
	if info.IsDir() {
		return nil, models.NewError(models.KindSampleNotFound, "audio reference is a directory: %s", ref)
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, models.WrapError(models.KindSampleNotFound, err, "audio file not readable: %s", ref)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, models.WrapError(models.KindSampleNotFound, err, "not a decodable WAV file: %s", ref)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return nil, models.NewError(models.KindSampleNotFound, "WAV %s has no usable format", ref)
	}

	channels := buf.Format.NumChannels
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}

	frames := len(buf.Data) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += normalize(buf.Data[i*channels+c], bitDepth)
		}
		mono[i] = sum / float32(channels)
	}

	return &Sample{
		Ref:        ref,
		SampleRate: buf.Format.SampleRate,
		Data:       mono,
	}, nil
}

// normalize maps an integer PCM value to [-1, 1].
// 8-bit WAV is unsigned; wider depths are signed.
func normalize(v int, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return float32(v-128) / 128.0
	case 0:
		return float32(v) / 32768.0
	default:
		return float32(v) / float32(int64(1)<<uint(bitDepth-1))
	}
}

// String describes the sample for logs.
func (s *Sample) String() string {
	return fmt.Sprintf("%s (%.2fs @ %dHz)", s.Ref, s.Seconds(), s.SampleRate)
}
