// ABOUTME: Vector math for templates and verification
// ABOUTME: Elementwise mean and clamped cosine similarity, backed by gonum
package core

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/harper/voiceauth/internal/models"
)

// Mean returns the elementwise arithmetic mean of equal-length vectors
func Mean(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	sum := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		floats.Add(sum, v)
	}
	floats.Scale(1/float64(len(vectors)), sum)
	return sum
}

// CosineSimilarity returns the cosine of the angle between a and b,
// clamped to [-1, 1]. Zero-norm or non-finite input is degenerate.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, models.NewError(models.KindDimensionMismatch,
			"dimension mismatch: expected %d, got %d", len(a), len(b))
	}
	if !finite(a) || !finite(b) {
		return 0, models.NewError(models.KindDegenerateEmbedding, "embedding contains non-finite values")
	}

	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0, models.NewError(models.KindDegenerateEmbedding, "embedding has zero norm")
	}

	sim := floats.Dot(a, b) / (na * nb)
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, models.NewError(models.KindDegenerateEmbedding, "similarity is not a finite number")
	}
	return math.Max(-1, math.Min(1, sim)), nil
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
