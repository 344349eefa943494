package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/codeatlas-ai/codeatlas/domain/chunk"
	"github.com/codeatlas-ai/codeatlas/internal/database"
)

// EmbeddingStore implements chunk.EmbeddingStore using GORM.
type EmbeddingStore struct {
	database.Repository[chunk.Embedding, EmbeddingModel]
}

// NewEmbeddingStore creates a new EmbeddingStore.
func NewEmbeddingStore(db database.Database) EmbeddingStore {
	return EmbeddingStore{
		Repository: database.NewRepository[chunk.Embedding, EmbeddingModel](db, EmbeddingMapper{}, "embedding"),
	}
}

// SaveBatch upserts embeddings on their chunk id (one-to-one with chunks).
func (s EmbeddingStore) SaveBatch(ctx context.Context, embeddings []chunk.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	models := make([]EmbeddingModel, len(embeddings))
	for i, e := range embeddings {
		models[i] = EmbeddingMapper{}.ToModel(e)
	}
	result := s.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chunk_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"commit_sha", "embedding", "dims", "model", "model_version", "generated_at",
		}),
	}).CreateInBatches(models, defaultWriteBatch)
	if result.Error != nil {
		return fmt.Errorf("save embeddings: %w", result.Error)
	}
	return nil
}

// Ensure EmbeddingStore implements the domain interface.
var _ chunk.EmbeddingStore = EmbeddingStore{}
