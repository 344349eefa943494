package persistence

import (
	"context"
	"fmt"

	"github.com/codeatlas-ai/codeatlas/domain/symbol"
	"github.com/codeatlas-ai/codeatlas/internal/database"
)

// maxCallChainFrontier bounds the per-level fan-out of call traversals.
const maxCallChainFrontier = 500

// EdgeStore implements symbol.EdgeStore using GORM.
type EdgeStore struct {
	database.Repository[symbol.Edge, EdgeModel]
}

// NewEdgeStore creates a new EdgeStore.
func NewEdgeStore(db database.Database) EdgeStore {
	return EdgeStore{
		Repository: database.NewRepository[symbol.Edge, EdgeModel](db, EdgeMapper{}, "edge"),
	}
}

// SaveBatch inserts edges in batches. Edges carry no natural key usable for
// upsert; re-indexing a file deletes that file's edges before writing new
// ones.
func (s EdgeStore) SaveBatch(ctx context.Context, edges []symbol.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	models := make([]EdgeModel, len(edges))
	for i, e := range edges {
		models[i] = EdgeMapper{}.ToModel(e)
	}
	if result := s.DB(ctx).CreateInBatches(models, defaultWriteBatch); result.Error != nil {
		return fmt.Errorf("save edges: %w", result.Error)
	}
	return nil
}

// FindReferences returns incoming edges for a target symbol.
func (s EdgeStore) FindReferences(ctx context.Context, targetID int64, kind symbol.EdgeKind, limit int) ([]symbol.Edge, error) {
	if limit <= 0 {
		limit = 50
	}
	tx := s.DB(ctx).Model(&EdgeModel{}).Where("target_id = ?", targetID)
	if kind != "" && kind != symbol.EdgeUnknown {
		tx = tx.Where("kind = ?", kind.String())
	}

	var models []EdgeModel
	if err := tx.Limit(limit).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find references: %w", err)
	}
	return s.toDomain(models), nil
}

// FindDependencies returns outgoing edges for a source symbol.
func (s EdgeStore) FindDependencies(ctx context.Context, sourceID int64, kind symbol.EdgeKind, limit int) ([]symbol.Edge, error) {
	if limit <= 0 {
		limit = 50
	}
	tx := s.DB(ctx).Model(&EdgeModel{}).Where("source_id = ?", sourceID)
	if kind != "" && kind != symbol.EdgeUnknown {
		tx = tx.Where("kind = ?", kind.String())
	}

	var models []EdgeModel
	if err := tx.Limit(limit).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find dependencies: %w", err)
	}
	return s.toDomain(models), nil
}

// FindCallChain walks Calls edges breadth-first from the start symbol,
// reporting each reached symbol with its depth and halting at maxDepth.
func (s EdgeStore) FindCallChain(ctx context.Context, startID int64, maxDepth int) ([]symbol.CallChainEntry, error) {
	if maxDepth <= 0 {
		maxDepth = 3
	}

	visited := map[int64]struct{}{startID: {}}
	frontier := []int64{startID}
	var entries []symbol.CallChainEntry

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return entries, err
		}

		var models []EdgeModel
		err := s.DB(ctx).Model(&EdgeModel{}).
			Where("kind = ? AND source_id IN ? AND target_id IS NOT NULL", symbol.EdgeCalls.String(), frontier).
			Limit(maxCallChainFrontier).
			Find(&models).Error
		if err != nil {
			return nil, fmt.Errorf("call chain level %d: %w", depth, err)
		}

		var nextIDs []int64
		for _, m := range models {
			tid := *m.TargetID
			if _, seen := visited[tid]; seen {
				continue
			}
			visited[tid] = struct{}{}
			nextIDs = append(nextIDs, tid)
		}
		if len(nextIDs) == 0 {
			break
		}

		var symModels []SymbolModel
		err = s.DB(ctx).Model(&SymbolModel{}).Where("id IN ?", nextIDs).Find(&symModels).Error
		if err != nil {
			return nil, fmt.Errorf("call chain symbols: %w", err)
		}
		for _, sm := range symModels {
			entries = append(entries, symbol.NewCallChainEntry(SymbolMapper{}.ToDomain(sm), depth))
		}

		frontier = nextIDs
	}
	return entries, nil
}

// ResolveTargets fills target ids for a branch's unresolved edges. The first
// pass matches lower-cased qualified names via the functional index; a
// second pass matches bare names for targets without a namespace qualifier.
func (s EdgeStore) ResolveTargets(ctx context.Context, repoID int64, branch string) (int64, error) {
	qualified := s.DB(ctx).Exec(`
UPDATE edges SET target_id = (
    SELECT s.id FROM symbols s
    WHERE s.repo_id = edges.repo_id AND s.branch = edges.branch
      AND LOWER(s.qualified_name) = LOWER(edges.target_name)
    LIMIT 1
)
WHERE repo_id = ? AND branch = ? AND target_id IS NULL AND target_name <> ''
  AND EXISTS (
    SELECT 1 FROM symbols s
    WHERE s.repo_id = edges.repo_id AND s.branch = edges.branch
      AND LOWER(s.qualified_name) = LOWER(edges.target_name)
  )`, repoID, branch)
	if qualified.Error != nil {
		return 0, fmt.Errorf("resolve qualified targets: %w", qualified.Error)
	}

	bare := s.DB(ctx).Exec(`
UPDATE edges SET target_id = (
    SELECT s.id FROM symbols s
    WHERE s.repo_id = edges.repo_id AND s.branch = edges.branch
      AND LOWER(s.name) = LOWER(edges.target_name)
    LIMIT 1
)
WHERE repo_id = ? AND branch = ? AND target_id IS NULL
  AND target_name <> '' AND target_name NOT LIKE '%.%'
  AND EXISTS (
    SELECT 1 FROM symbols s
    WHERE s.repo_id = edges.repo_id AND s.branch = edges.branch
      AND LOWER(s.name) = LOWER(edges.target_name)
  )`, repoID, branch)
	if bare.Error != nil {
		return qualified.RowsAffected, fmt.Errorf("resolve bare targets: %w", bare.Error)
	}

	return qualified.RowsAffected + bare.RowsAffected, nil
}

// DegreeCounts returns incoming and outgoing edge counts per symbol.
func (s EdgeStore) DegreeCounts(ctx context.Context, symbolIDs []int64) (map[int64]symbol.Degree, error) {
	result := make(map[int64]symbol.Degree, len(symbolIDs))
	if len(symbolIDs) == 0 {
		return result, nil
	}

	type countRow struct {
		ID    int64 `gorm:"column:id"`
		Count int64 `gorm:"column:count"`
	}

	var incoming []countRow
	err := s.DB(ctx).Model(&EdgeModel{}).
		Select("target_id AS id, COUNT(*) AS count").
		Where("target_id IN ?", symbolIDs).
		Group("target_id").
		Find(&incoming).Error
	if err != nil {
		return nil, fmt.Errorf("incoming degree counts: %w", err)
	}
	for _, row := range incoming {
		d := result[row.ID]
		d.In = row.Count
		result[row.ID] = d
	}

	var outgoing []countRow
	err = s.DB(ctx).Model(&EdgeModel{}).
		Select("source_id AS id, COUNT(*) AS count").
		Where("source_id IN ?", symbolIDs).
		Group("source_id").
		Find(&outgoing).Error
	if err != nil {
		return nil, fmt.Errorf("outgoing degree counts: %w", err)
	}
	for _, row := range outgoing {
		d := result[row.ID]
		d.Out = row.Count
		result[row.ID] = d
	}

	return result, nil
}

func (s EdgeStore) toDomain(models []EdgeModel) []symbol.Edge {
	edges := make([]symbol.Edge, len(models))
	for i, m := range models {
		edges[i] = EdgeMapper{}.ToDomain(m)
	}
	return edges
}

// Ensure EdgeStore implements the domain interface.
var _ symbol.EdgeStore = EdgeStore{}
