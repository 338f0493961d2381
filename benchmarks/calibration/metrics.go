// ABOUTME: Score statistics and error rates for calibration runs
// ABOUTME: FAR/FRR at a threshold and the equal-error rate over all observed scores
package calibration

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ScoreStats summarizes one class of similarity scores
type ScoreStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize computes ScoreStats for scores. An empty slice gives zero stats.
func Summarize(scores []float64) ScoreStats {
	if len(scores) == 0 {
		return ScoreStats{}
	}
	s := ScoreStats{
		Count: len(scores),
		Min:   floats.Min(scores),
		Max:   floats.Max(scores),
	}
	s.Mean, s.StdDev = stat.MeanStdDev(scores, nil)
	if math.IsNaN(s.StdDev) {
		// single score
		s.StdDev = 0
	}
	return s
}

// ErrorRates returns the false accept rate (impostor scores at or above
// threshold) and the false reject rate (genuine scores below threshold).
// This is the same comparison the verifier makes.
func ErrorRates(genuine, impostor []float64, threshold float64) (far, frr float64) {
	if len(impostor) > 0 {
		var accepted int
		for _, s := range impostor {
			if s >= threshold {
				accepted++
			}
		}
		far = float64(accepted) / float64(len(impostor))
	}
	if len(genuine) > 0 {
		var rejected int
		for _, s := range genuine {
			if s < threshold {
				rejected++
			}
		}
		frr = float64(rejected) / float64(len(genuine))
	}
	return far, frr
}

// EqualErrorRate sweeps every observed score as a candidate threshold and
// returns the point where FAR and FRR are closest, with its threshold.
// The rate reported is the mean of FAR and FRR there.
func EqualErrorRate(genuine, impostor []float64) (eer, threshold float64) {
	candidates := make([]float64, 0, len(genuine)+len(impostor))
	candidates = append(candidates, genuine...)
	candidates = append(candidates, impostor...)
	if len(candidates) == 0 {
		return 0, 0
	}
	sort.Float64s(candidates)

	best := math.Inf(1)
	for _, t := range candidates {
		far, frr := ErrorRates(genuine, impostor, t)
		if gap := math.Abs(far - frr); gap < best {
			best = gap
			eer = (far + frr) / 2
			threshold = t
		}
	}
	return eer, threshold
}
