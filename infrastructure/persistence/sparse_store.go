package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codeatlas-ai/codeatlas/domain/repository"
	"github.com/codeatlas-ai/codeatlas/domain/symbol"
	"github.com/codeatlas-ai/codeatlas/internal/database"
)

// SearchEntryStore implements symbol.SearchEntryStore using GORM.
type SearchEntryStore struct {
	db database.Database
}

// NewSearchEntryStore creates a new SearchEntryStore.
func NewSearchEntryStore(db database.Database) SearchEntryStore {
	return SearchEntryStore{db: db}
}

// SaveBatch upserts sparse symbol-search rows keyed by symbol id. On
// PostgreSQL the insert trigger recomputes the weighted search vector.
func (s SearchEntryStore) SaveBatch(ctx context.Context, entries []symbol.SearchEntry) error {
	if len(entries) == 0 {
		return nil
	}
	models := make([]SymbolSearchModel, len(entries))
	for i, e := range entries {
		models[i] = SearchEntryMapper{}.ToModel(e)
	}
	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"commit_sha", "file_path", "language", "kind", "name",
			"qualified_name", "signature", "documentation", "literals", "snippet",
		}),
	}).CreateInBatches(models, defaultWriteBatch)
	if result.Error != nil {
		return fmt.Errorf("save search entries: %w", result.Error)
	}
	return nil
}

// DeleteBy removes search rows matching the given options.
func (s SearchEntryStore) DeleteBy(ctx context.Context, options ...repository.Option) error {
	db := database.ApplyOptions(s.db.Session(ctx).Model(&SymbolSearchModel{}), options...)
	if result := db.Delete(&SymbolSearchModel{}); result.Error != nil {
		return fmt.Errorf("delete search entries: %w", result.Error)
	}
	return nil
}

// FingerprintStore implements symbol.FingerprintStore using GORM.
type FingerprintStore struct {
	db database.Database
}

// NewFingerprintStore creates a new FingerprintStore.
func NewFingerprintStore(db database.Database) FingerprintStore {
	return FingerprintStore{db: db}
}

// SaveBatch upserts fingerprints keyed by symbol id.
func (s FingerprintStore) SaveBatch(ctx context.Context, fingerprints []symbol.Fingerprint) error {
	if len(fingerprints) == 0 {
		return nil
	}
	models := make([]FingerprintModel, len(fingerprints))
	for i, f := range fingerprints {
		models[i] = FingerprintMapper{}.ToModel(f)
	}
	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"commit_sha", "file_path", "language", "kind", "fp_kind",
			"fingerprint", "band0", "band1", "band2", "band3", "indexed_at",
		}),
	}).CreateInBatches(models, defaultWriteBatch)
	if result.Error != nil {
		return fmt.Errorf("save fingerprints: %w", result.Error)
	}
	return nil
}

// DeleteBy removes fingerprints matching the given options.
func (s FingerprintStore) DeleteBy(ctx context.Context, options ...repository.Option) error {
	db := database.ApplyOptions(s.db.Session(ctx).Model(&FingerprintModel{}), options...)
	if result := db.Delete(&FingerprintModel{}); result.Error != nil {
		return fmt.Errorf("delete fingerprints: %w", result.Error)
	}
	return nil
}

// Get returns the fingerprint of one symbol.
func (s FingerprintStore) Get(ctx context.Context, symbolID int64) (symbol.Fingerprint, error) {
	var model FingerprintModel
	result := s.db.Session(ctx).Model(&FingerprintModel{}).Where("symbol_id = ?", symbolID).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return symbol.Fingerprint{}, fmt.Errorf("%w: fingerprint for symbol %d", database.ErrNotFound, symbolID)
		}
		return symbol.Fingerprint{}, fmt.Errorf("get fingerprint: %w", result.Error)
	}
	return FingerprintMapper{}.ToDomain(model), nil
}

// FindCandidates returns fingerprints colliding with any of the four bands,
// the union over the per-band indexes that makes LSH candidate lookup an
// index scan per band.
func (s FingerprintStore) FindCandidates(ctx context.Context, repoID int64, branch, language string, kind symbol.Kind, fpKind symbol.FingerprintKind, bands [symbol.BandCount]uint16, limit int) ([]symbol.Fingerprint, error) {
	if limit <= 0 {
		limit = 50
	}

	tx := s.db.Session(ctx).Model(&FingerprintModel{}).
		Where("repo_id = ? AND branch = ?", repoID, branch).
		Where("fp_kind = ?", string(fpKind)).
		Where("band0 = ? OR band1 = ? OR band2 = ? OR band3 = ?",
			int32(bands[0]), int32(bands[1]), int32(bands[2]), int32(bands[3]))
	if language != "" {
		tx = tx.Where("language = ?", language)
	}
	if kind != "" && kind != symbol.KindUnknown {
		tx = tx.Where("kind = ?", kind.String())
	}

	var models []FingerprintModel
	if err := tx.Limit(limit).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find fingerprint candidates: %w", err)
	}

	result := make([]symbol.Fingerprint, len(models))
	for i, m := range models {
		result[i] = FingerprintMapper{}.ToDomain(m)
	}
	return result, nil
}

// Ensure the sparse stores implement their domain interfaces.
var (
	_ symbol.SearchEntryStore = SearchEntryStore{}
	_ symbol.FingerprintStore = FingerprintStore{}
)
