// ABOUTME: Loader applies per-purpose duration limits to decoded samples
// ABOUTME: Enrollment and verification have separate minimum and maximum lengths
package audio

import (
	"github.com/harper/voiceauth/internal/models"
)

// Purpose selects which duration floor applies to a sample.
type Purpose int

const (
	ForEnrollment Purpose = iota
	ForVerification
)

func (p Purpose) String() string {
	if p == ForVerification {
		return "verification"
	}
	return "enrollment"
}

// Limits bounds acceptable sample durations in seconds.
type Limits struct {
	MinEnrollSeconds float64
	MinVerifySeconds float64
	// MaxSeconds of 0 means unbounded.
	MaxSeconds float64
	// TruncateLong cuts long samples to MaxSeconds instead of rejecting them.
	TruncateLong bool
}

// DefaultLimits are the floors used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MinEnrollSeconds: 1.0,
		MinVerifySeconds: 0.5,
		MaxSeconds:       30,
		TruncateLong:     true,
	}
}

// Loader resolves and validates samples before they reach a provider.
type Loader struct {
	limits Limits
	decode func(ref string) (*Sample, error)
}

// NewLoader creates a Loader that decodes WAV files from disk.
func NewLoader(limits Limits) *Loader {
	return &Loader{limits: limits, decode: Decode}
}

// Limits returns the configured limits.
func (l *Loader) Limits() Limits {
	return l.limits
}

// Load decodes ref and applies the duration floor for purpose and the
// configured upper bound.
func (l *Loader) Load(ref string, purpose Purpose) (*Sample, error) {
	s, err := l.decode(ref)
	if err != nil {
		return nil, err
	}
	if err := l.check(s, purpose); err != nil {
		return nil, err
	}
	return s, nil
}

func (l *Loader) check(s *Sample, purpose Purpose) error {
	floor := l.limits.MinEnrollSeconds
	if purpose == ForVerification {
		floor = l.limits.MinVerifySeconds
	}

	secs := s.Seconds()
	if secs < floor {
		return models.NewError(models.KindInsufficientAudio,
			"audio too short for %s: %.2fs < %.2fs minimum", purpose, secs, floor)
	}

	if l.limits.MaxSeconds > 0 && secs > l.limits.MaxSeconds {
		if !l.limits.TruncateLong {
			return models.NewError(models.KindSampleTooLong,
				"audio too long: %.2fs > %.2fs maximum", secs, l.limits.MaxSeconds)
		}
		keep := int(l.limits.MaxSeconds * float64(s.SampleRate))
		s.Data = s.Data[:keep]
		s.Truncated = true
	}
	return nil
}
