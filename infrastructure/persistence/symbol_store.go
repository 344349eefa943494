package persistence

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm/clause"

	"github.com/codeatlas-ai/codeatlas/domain/repository"
	"github.com/codeatlas-ai/codeatlas/domain/symbol"
	"github.com/codeatlas-ai/codeatlas/internal/database"
)

// trigramThreshold is the minimum pg_trgm similarity for fuzzy matches.
const trigramThreshold = 0.3

// SymbolStore implements symbol.SymbolStore using GORM.
type SymbolStore struct {
	database.Repository[symbol.Symbol, SymbolModel]
	db database.Database
}

// NewSymbolStore creates a new SymbolStore.
func NewSymbolStore(db database.Database) SymbolStore {
	return SymbolStore{
		Repository: database.NewRepository[symbol.Symbol, SymbolModel](db, SymbolMapper{}, "symbol"),
		db:         db,
	}
}

// SaveBatch upserts symbols on their natural identity and returns them with
// database ids assigned.
func (s SymbolStore) SaveBatch(ctx context.Context, symbols []symbol.Symbol) ([]symbol.Symbol, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	models := make([]SymbolModel, len(symbols))
	for i, sym := range symbols {
		models[i] = SymbolMapper{}.ToModel(sym)
	}

	result := s.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "repo_id"}, {Name: "branch"}, {Name: "file_path"},
			{Name: "name"}, {Name: "start_line"}, {Name: "end_line"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"commit_sha", "qualified_name", "kind", "start_column", "end_column",
			"signature", "documentation", "modifiers", "parent_id", "language", "indexed_at",
		}),
	}).CreateInBatches(models, defaultWriteBatch)
	if result.Error != nil {
		return nil, fmt.Errorf("save symbols: %w", result.Error)
	}

	saved := make([]symbol.Symbol, len(models))
	for i, m := range models {
		saved[i] = SymbolMapper{}.ToDomain(m)
	}
	return saved, nil
}

// Search performs exact case-insensitive or trigram-fuzzy matching on
// symbol names. An empty query returns zero rows rather than erroring.
func (s SymbolStore) Search(ctx context.Context, query string, repoID int64, branch string, kind symbol.Kind, fuzzy bool, limit int) ([]symbol.SymbolHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []symbol.SymbolHit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	tx := s.DB(ctx).Model(&SymbolModel{}).
		Where("repo_id = ? AND branch = ?", repoID, branch)
	if kind != "" && kind != symbol.KindUnknown {
		tx = tx.Where("kind = ?", kind.String())
	}

	var models []SymbolModel

	if !fuzzy {
		err := tx.Where("LOWER(name) = LOWER(?)", query).
			Order("start_line").Limit(limit).Find(&models).Error
		if err != nil {
			return nil, fmt.Errorf("search symbols: %w", err)
		}
		hits := make([]symbol.SymbolHit, len(models))
		for i, m := range models {
			hits[i] = symbol.NewSymbolHit(SymbolMapper{}.ToDomain(m), 1.0)
		}
		return hits, nil
	}

	if s.db.IsPostgres() {
		type scoredRow struct {
			SymbolModel
			Sim float64 `gorm:"column:sim"`
		}
		var rows []scoredRow
		err := tx.Select("symbols.*, similarity(name, ?) AS sim", query).
			Where("similarity(name, ?) > ?", query, trigramThreshold).
			Order("sim DESC").Limit(limit).Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("fuzzy search symbols: %w", err)
		}
		hits := make([]symbol.SymbolHit, len(rows))
		for i, row := range rows {
			hits[i] = symbol.NewSymbolHit(SymbolMapper{}.ToDomain(row.SymbolModel), row.Sim)
		}
		return hits, nil
	}

	// SQLite: substring match scored by length ratio.
	err := tx.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(query)+"%").
		Order("LENGTH(name)").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("fuzzy search symbols: %w", err)
	}
	hits := make([]symbol.SymbolHit, len(models))
	for i, m := range models {
		score := float64(len(query)) / float64(len(m.Name))
		if score > 1 {
			score = 1
		}
		hits[i] = symbol.NewSymbolHit(SymbolMapper{}.ToDomain(m), score)
	}
	return hits, nil
}

// ResolveQualified looks up symbols by lower-cased qualified name via the
// functional index.
func (s SymbolStore) ResolveQualified(ctx context.Context, repoID int64, branch, qualifiedName string) ([]symbol.Symbol, error) {
	var models []SymbolModel
	err := s.DB(ctx).Model(&SymbolModel{}).
		Where("repo_id = ? AND branch = ? AND LOWER(qualified_name) = LOWER(?)", repoID, branch, qualifiedName).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("resolve qualified name: %w", err)
	}

	symbols := make([]symbol.Symbol, len(models))
	for i, m := range models {
		symbols[i] = SymbolMapper{}.ToDomain(m)
	}
	return symbols, nil
}

// Ensure SymbolStore implements the domain interface.
var _ symbol.SymbolStore = SymbolStore{}

// Ensure the entity stores satisfy their interfaces.
var (
	_ repository.RepositoryStore = RepositoryStore{}
	_ repository.BranchStore     = BranchStore{}
	_ repository.CommitStore     = CommitStore{}
	_ repository.FileStore       = FileStore{}
)
