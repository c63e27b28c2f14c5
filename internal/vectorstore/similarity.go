package vectorstore

import (
	"fmt"
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between a and b.
//
// Zero-magnitude input yields 0. Vectors of different length fail with
// ErrDimensionMismatch and NaN or Inf elements fail with ErrNonFiniteVector.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		if !finite(x) || !finite(y) {
			return 0, fmt.Errorf("%w: element %d", ErrNonFiniteVector, i)
		}
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push parallel vectors a hair past 1.
	sim = math.Max(-1, math.Min(1, sim))
	return float32(sim), nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Rank scores every record against query and returns the best min(k, n).
// The sort is stable, so equal scores keep the order of records.
func Rank(query []float32, records []Record, k int) ([]Result, error) {
	if k <= 0 || len(records) == 0 {
		return []Result{}, nil
	}

	results := make([]Result, len(records))
	for i, rec := range records {
		score, err := CosineSimilarity(query, rec.Vector)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", rec.ID, err)
		}
		results[i] = Result{Record: rec, Score: score}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}
