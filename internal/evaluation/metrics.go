// Package evaluation computes ranking-quality metrics for TREC runs,
// aggregates them per run and orders runs against each other.
//
// Relevance is binary: a document either belongs to the topic's relevant
// set or it does not. A document repeated within a ranked list only gains
// at its first occurrence, so every metric stays within [0, 1].
package evaluation

import (
	"math"
	"sort"
)

// gains returns the binary gain of the first n retrieved documents.
func gains(retrieved []string, relevant map[string]struct{}, n int) []float64 {
	if n > len(retrieved) {
		n = len(retrieved)
	}
	if n <= 0 {
		return nil
	}

	out := make([]float64, n)
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		doc := retrieved[i]
		if _, dup := seen[doc]; dup {
			continue
		}
		seen[doc] = struct{}{}
		if _, ok := relevant[doc]; ok {
			out[i] = 1
		}
	}
	return out
}

// AveragePrecision calculates Average Precision. Relevant documents that
// were never retrieved still count in the denominator.
func AveragePrecision(retrieved []string, relevant map[string]struct{}) float64 {
	if len(relevant) == 0 {
		return 0
	}

	hits := 0
	sumPrecision := 0.0
	for i, g := range gains(retrieved, relevant, len(retrieved)) {
		if g > 0 {
			hits++
			sumPrecision += float64(hits) / float64(i+1)
		}
	}

	if hits == 0 {
		return 0
	}
	return sumPrecision / float64(len(relevant))
}

// PrecisionAt calculates Precision at K. The denominator is always k, so a
// list shorter than k is scored as if the missing slots were non-relevant.
func PrecisionAt(retrieved []string, relevant map[string]struct{}, k int) float64 {
	if k <= 0 {
		return 0
	}

	hits := 0.0
	for _, g := range gains(retrieved, relevant, k) {
		hits += g
	}
	return hits / float64(k)
}

// DCGAt calculates Discounted Cumulative Gain at K. The first position is
// undiscounted; position i > 1 is divided by log2(i).
func DCGAt(retrieved []string, relevant map[string]struct{}, k int) float64 {
	dcg := 0.0
	for i, g := range gains(retrieved, relevant, k) {
		pos := i + 1
		if pos == 1 {
			dcg += g
			continue
		}
		dcg += g / math.Log2(float64(pos))
	}
	return dcg
}

// NDCGAt calculates Normalized DCG at K against the ideal list of all
// relevant documents in ascending lexical order.
func NDCGAt(retrieved []string, relevant map[string]struct{}, k int) float64 {
	idcg := DCGAt(idealRanking(relevant), relevant, k)
	if idcg == 0 {
		return 0
	}
	return DCGAt(retrieved, relevant, k) / idcg
}

func idealRanking(relevant map[string]struct{}) []string {
	ideal := make([]string, 0, len(relevant))
	for doc := range relevant {
		ideal = append(ideal, doc)
	}
	sort.Strings(ideal)
	return ideal
}

// RecallAt calculates Recall at K.
func RecallAt(retrieved []string, relevant map[string]struct{}, k int) float64 {
	if len(relevant) == 0 || k <= 0 {
		return 0
	}

	hits := 0.0
	for _, g := range gains(retrieved, relevant, k) {
		hits += g
	}
	return hits / float64(len(relevant))
}

// ReciprocalRank returns 1/position of the first relevant document.
func ReciprocalRank(retrieved []string, relevant map[string]struct{}) float64 {
	for i, g := range gains(retrieved, relevant, len(retrieved)) {
		if g > 0 {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}
