package chunk

import (
	"context"

	"github.com/codeatlas-ai/codeatlas/domain/repository"
)

// Hit is one chunk retrieval result. Depending on the retrieval arm it
// carries a BM25 rank, a vector similarity, or both (hybrid).
type Hit struct {
	chunk       CodeChunk
	bm25Score   float64
	vectorScore float64
	combined    float64
}

// NewHit creates a Hit with per-arm and combined scores.
func NewHit(c CodeChunk, bm25, vector, combined float64) Hit {
	return Hit{chunk: c, bm25Score: bm25, vectorScore: vector, combined: combined}
}

// Chunk returns the matched chunk.
func (h Hit) Chunk() CodeChunk { return h.chunk }

// BM25Score returns the lexical rank, 0 when the arm did not match.
func (h Hit) BM25Score() float64 { return h.bm25Score }

// VectorScore returns the cosine similarity, 0 when the arm did not run.
func (h Hit) VectorScore() float64 { return h.vectorScore }

// Combined returns the weighted combined score.
func (h Hit) Combined() float64 { return h.combined }

// ChunkStore persists code chunks and answers retrieval queries.
type ChunkStore interface {
	Find(ctx context.Context, options ...repository.Option) ([]CodeChunk, error)
	SaveBatch(ctx context.Context, chunks []CodeChunk) ([]CodeChunk, error)
	DeleteBy(ctx context.Context, options ...repository.Option) error
	Count(ctx context.Context, options ...repository.Option) (int64, error)

	// SearchFullText ranks chunks by BM25-style full-text relevance.
	SearchFullText(ctx context.Context, query string, repoID int64, branch, language string, limit int) ([]Hit, error)

	// SearchEmbeddings ranks chunks by cosine similarity to a query vector.
	SearchEmbeddings(ctx context.Context, vector []float64, repoID int64, branch string, limit int) ([]Hit, error)

	// SearchEmbeddingsL2 ranks chunks by Euclidean distance. Debugging
	// accessor; production retrieval uses cosine.
	SearchEmbeddingsL2(ctx context.Context, vector []float64, repoID int64, branch string, limit int) ([]Hit, error)

	// HybridSearch evaluates both arms in one query, full-outer-joins on
	// chunk id, and combines bm25Weight*bm25 + vectorWeight*vector. A nil
	// vector degrades to pure lexical ranking.
	HybridSearch(ctx context.Context, query string, vector []float64, repoID int64, branch, language string, bm25Weight, vectorWeight float64, limit int) ([]Hit, error)
}

// EmbeddingStore persists chunk embeddings.
type EmbeddingStore interface {
	Find(ctx context.Context, options ...repository.Option) ([]Embedding, error)
	SaveBatch(ctx context.Context, embeddings []Embedding) error
	DeleteBy(ctx context.Context, options ...repository.Option) error
	Count(ctx context.Context, options ...repository.Option) (int64, error)
}
