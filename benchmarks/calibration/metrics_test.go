package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{1, 2, 3})
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 2.0, s.Mean, 1e-12)
	assert.InDelta(t, 1.0, s.StdDev, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Max)

	single := Summarize([]float64{0.5})
	assert.Equal(t, 0.0, single.StdDev)
	assert.Equal(t, 0.5, single.Mean)

	assert.Equal(t, ScoreStats{}, Summarize(nil))
}

func TestErrorRates(t *testing.T) {
	genuine := []float64{0.9, 0.8, 0.6}
	impostor := []float64{0.7, 0.3, 0.2}

	tests := []struct {
		threshold float64
		far, frr  float64
	}{
		{0.1, 1, 0},
		{0.6, 1.0 / 3, 0},
		{0.7, 1.0 / 3, 1.0 / 3},
		{0.75, 0, 1.0 / 3},
		{0.95, 0, 1},
	}

	for _, tt := range tests {
		far, frr := ErrorRates(genuine, impostor, tt.threshold)
		assert.InDelta(t, tt.far, far, 1e-12, "FAR at %v", tt.threshold)
		assert.InDelta(t, tt.frr, frr, 1e-12, "FRR at %v", tt.threshold)
	}
}

func TestErrorRates_ScoreEqualToThresholdIsAccepted(t *testing.T) {
	far, frr := ErrorRates([]float64{0.75}, []float64{0.75}, 0.75)
	assert.Equal(t, 1.0, far)
	assert.Equal(t, 0.0, frr)
}

func TestEqualErrorRate(t *testing.T) {
	eer, thr := EqualErrorRate([]float64{0.9, 0.8, 0.6}, []float64{0.7, 0.3, 0.2})
	assert.InDelta(t, 1.0/3, eer, 1e-12)
	assert.Equal(t, 0.7, thr)

	eer, thr = EqualErrorRate([]float64{0.95, 0.9}, []float64{0.1, 0.2})
	assert.Equal(t, 0.0, eer)
	assert.Equal(t, 0.9, thr)

	eer, thr = EqualErrorRate(nil, nil)
	assert.Equal(t, 0.0, eer)
	assert.Equal(t, 0.0, thr)
}
