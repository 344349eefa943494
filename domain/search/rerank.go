package search

import (
	"math"
	"sort"
)

// Default fusion and re-ranking coefficients.
const (
	// DefaultBM25Weight and DefaultVectorWeight combine the two retrieval
	// arms in hybrid search.
	DefaultBM25Weight   = 0.3
	DefaultVectorWeight = 0.7

	// Graph re-ranking blends retrieval relevance with symbol centrality.
	retrievalBlend = 0.7
	graphBlend     = 0.3

	// Centrality coefficients for incoming and outgoing edge counts.
	alphaIncoming = 0.6
	betaOutgoing  = 0.4
)

// GraphScore computes a centrality boost from a symbol's edge degrees.
func GraphScore(incoming, outgoing int64) float64 {
	return alphaIncoming*math.Log1p(float64(incoming)) + betaOutgoing*math.Log1p(float64(outgoing))
}

// BlendGraph combines a retrieval score with a graph centrality score.
func BlendGraph(retrieval, graph float64) float64 {
	return retrievalBlend*retrieval + graphBlend*graph
}

// Rerank applies graph blending in place and re-sorts results by the final
// score, descending. Results without a graph score keep their retrieval
// score unchanged.
func Rerank(results []Result) {
	for i := range results {
		if results[i].GraphScore != nil {
			results[i].Score = BlendGraph(results[i].Score, *results[i].GraphScore)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
