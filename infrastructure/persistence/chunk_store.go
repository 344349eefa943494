package persistence

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"gorm.io/gorm/clause"

	"github.com/codeatlas-ai/codeatlas/domain/chunk"
	"github.com/codeatlas-ai/codeatlas/domain/search"
	"github.com/codeatlas-ai/codeatlas/internal/database"
)

// ChunkStore implements chunk.ChunkStore using GORM. PostgreSQL deployments
// rank with tsvector and pgvector; SQLite deployments fall back to portable
// in-process scoring so the full pipeline stays testable.
type ChunkStore struct {
	database.Repository[chunk.CodeChunk, ChunkModel]
	db database.Database
}

// NewChunkStore creates a new ChunkStore.
func NewChunkStore(db database.Database) ChunkStore {
	return ChunkStore{
		Repository: database.NewRepository[chunk.CodeChunk, ChunkModel](db, ChunkMapper{}, "chunk"),
		db:         db,
	}
}

// SaveBatch upserts chunks on (repo_id, branch, file_path, start_line,
// end_line) and returns them with database ids assigned.
func (s ChunkStore) SaveBatch(ctx context.Context, chunks []chunk.CodeChunk) ([]chunk.CodeChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	models := make([]ChunkModel, len(chunks))
	for i, c := range chunks {
		models[i] = ChunkMapper{}.ToModel(c)
	}

	result := s.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "repo_id"}, {Name: "branch"}, {Name: "file_path"},
			{Name: "start_line"}, {Name: "end_line"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"commit_sha", "symbol_id", "symbol_name", "symbol_kind", "language",
			"content", "symbol_start_line", "symbol_end_line", "token_count",
			"parent_symbol", "signature", "documentation",
		}),
	}).CreateInBatches(models, defaultWriteBatch)
	if result.Error != nil {
		return nil, fmt.Errorf("save chunks: %w", result.Error)
	}

	saved := make([]chunk.CodeChunk, len(models))
	for i, m := range models {
		saved[i] = ChunkMapper{}.ToDomain(m)
	}
	return saved, nil
}

// SearchFullText ranks chunks by BM25-style full-text relevance.
func (s ChunkStore) SearchFullText(ctx context.Context, query string, repoID int64, branch, language string, limit int) ([]chunk.Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []chunk.Hit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	if s.db.IsPostgres() {
		return s.fullTextPostgres(ctx, query, repoID, branch, language, limit)
	}
	return s.fullTextPortable(ctx, query, repoID, branch, language, limit)
}

// fullTextPostgres uses ts_rank_cd with document-length normalization.
func (s ChunkStore) fullTextPostgres(ctx context.Context, query string, repoID int64, branch, language string, limit int) ([]chunk.Hit, error) {
	sanitized := sanitizeTSQuery(query)

	tx := s.DB(ctx).Model(&ChunkModel{}).
		Select("code_chunks.*, ts_rank_cd(content_tsv, plainto_tsquery('english', ?), 2) AS rank", sanitized).
		Where("repo_id = ? AND branch = ?", repoID, branch).
		Where("content_tsv @@ plainto_tsquery('english', ?)", sanitized)
	if language != "" {
		tx = tx.Where("language = ?", language)
	}

	type rankedRow struct {
		ChunkModel
		Rank float64 `gorm:"column:rank"`
	}
	var rows []rankedRow
	if err := tx.Order("rank DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fulltext search: %w", err)
	}

	hits := make([]chunk.Hit, len(rows))
	for i, row := range rows {
		hits[i] = chunk.NewHit(ChunkMapper{}.ToDomain(row.ChunkModel), row.Rank, 0, row.Rank)
	}
	return hits, nil
}

// fullTextPortable approximates BM25 with length-normalized term frequency
// over LIKE-prefiltered candidates.
func (s ChunkStore) fullTextPortable(ctx context.Context, query string, repoID int64, branch, language string, limit int) ([]chunk.Hit, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []chunk.Hit{}, nil
	}

	tx := s.DB(ctx).Model(&ChunkModel{}).
		Where("repo_id = ? AND branch = ?", repoID, branch)
	if language != "" {
		tx = tx.Where("language = ?", language)
	}

	likeClauses := make([]string, len(terms))
	args := make([]any, len(terms))
	for i, term := range terms {
		likeClauses[i] = "LOWER(content) LIKE ?"
		args[i] = "%" + term + "%"
	}
	tx = tx.Where(strings.Join(likeClauses, " OR "), args...)

	var models []ChunkModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("fulltext search: %w", err)
	}

	hits := make([]chunk.Hit, 0, len(models))
	for _, m := range models {
		score := termFrequencyScore(m.Content, terms)
		if score > 0 {
			hits = append(hits, chunk.NewHit(ChunkMapper{}.ToDomain(m), score, 0, score))
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].BM25Score() > hits[j].BM25Score() })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// SearchEmbeddings ranks chunks by cosine similarity to the query vector.
func (s ChunkStore) SearchEmbeddings(ctx context.Context, vector []float64, repoID int64, branch string, limit int) ([]chunk.Hit, error) {
	return s.vectorSearch(ctx, vector, repoID, branch, limit, false)
}

// SearchEmbeddingsL2 ranks chunks by Euclidean distance, offered for
// debugging alongside the cosine accessor.
func (s ChunkStore) SearchEmbeddingsL2(ctx context.Context, vector []float64, repoID int64, branch string, limit int) ([]chunk.Hit, error) {
	return s.vectorSearch(ctx, vector, repoID, branch, limit, true)
}

func (s ChunkStore) vectorSearch(ctx context.Context, vector []float64, repoID int64, branch string, limit int, l2 bool) ([]chunk.Hit, error) {
	if len(vector) == 0 {
		return []chunk.Hit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	if s.db.IsPostgres() {
		operator := "<=>"
		if l2 {
			operator = "<->"
		}
		literal := database.NewPgVector(vector).String()

		type scoredRow struct {
			ChunkModel
			Distance float64 `gorm:"column:distance"`
		}
		var rows []scoredRow
		err := s.DB(ctx).Raw(fmt.Sprintf(`
SELECT c.*, e.embedding %s ?::vector AS distance
FROM embeddings e
JOIN code_chunks c ON c.id = e.chunk_id
WHERE e.repo_id = ? AND e.branch = ? AND e.embedding IS NOT NULL
ORDER BY distance ASC
LIMIT ?`, operator), literal, repoID, branch, limit).Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}

		hits := make([]chunk.Hit, len(rows))
		for i, row := range rows {
			similarity := 1 - row.Distance
			if l2 {
				similarity = -row.Distance
			}
			hits[i] = chunk.NewHit(ChunkMapper{}.ToDomain(row.ChunkModel), 0, similarity, similarity)
		}
		return hits, nil
	}

	return s.vectorSearchPortable(ctx, vector, repoID, branch, limit, l2)
}

// vectorSearchPortable loads the branch's embeddings and ranks in process.
func (s ChunkStore) vectorSearchPortable(ctx context.Context, vector []float64, repoID int64, branch string, limit int, l2 bool) ([]chunk.Hit, error) {
	var embeddings []EmbeddingModel
	err := s.DB(ctx).Model(&EmbeddingModel{}).
		Where("repo_id = ? AND branch = ?", repoID, branch).
		Find(&embeddings).Error
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}

	type scored struct {
		chunkID    int64
		similarity float64
	}
	matches := make([]scored, 0, len(embeddings))
	for _, e := range embeddings {
		stored := e.Embedding.Floats()
		if len(stored) == 0 {
			continue
		}
		var similarity float64
		if l2 {
			similarity = -euclideanDistance(vector, stored)
		} else {
			similarity = cosineSimilarity(vector, stored)
		}
		matches = append(matches, scored{chunkID: e.ChunkID, similarity: similarity})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].similarity > matches[j].similarity })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	if len(matches) == 0 {
		return []chunk.Hit{}, nil
	}

	ids := make([]int64, len(matches))
	simByID := make(map[int64]float64, len(matches))
	for i, m := range matches {
		ids[i] = m.chunkID
		simByID[m.chunkID] = m.similarity
	}

	var models []ChunkModel
	if err := s.DB(ctx).Model(&ChunkModel{}).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	hits := make([]chunk.Hit, 0, len(models))
	for _, m := range models {
		sim := simByID[m.ID]
		hits = append(hits, chunk.NewHit(ChunkMapper{}.ToDomain(m), 0, sim, sim))
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].VectorScore() > hits[j].VectorScore() })
	return hits, nil
}

// HybridSearch evaluates both arms, full-outer-joins on chunk id, and
// combines bm25Weight*bm25 + vectorWeight*vector. A nil vector degrades to
// pure lexical ranking.
func (s ChunkStore) HybridSearch(ctx context.Context, query string, vector []float64, repoID int64, branch, language string, bm25Weight, vectorWeight float64, limit int) ([]chunk.Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	if bm25Weight == 0 && vectorWeight == 0 {
		bm25Weight = search.DefaultBM25Weight
		vectorWeight = search.DefaultVectorWeight
	}

	if len(vector) == 0 {
		hits, err := s.SearchFullText(ctx, query, repoID, branch, language, limit)
		if err != nil {
			return nil, err
		}
		rescored := make([]chunk.Hit, len(hits))
		for i, h := range hits {
			rescored[i] = chunk.NewHit(h.Chunk(), h.BM25Score(), 0, bm25Weight*h.BM25Score())
		}
		return rescored, nil
	}

	if s.db.IsPostgres() {
		return s.hybridPostgres(ctx, query, vector, repoID, branch, language, bm25Weight, vectorWeight, limit)
	}
	return s.hybridPortable(ctx, query, vector, repoID, branch, language, bm25Weight, vectorWeight, limit)
}

// hybridPostgres is the single-query fusion: both arms as CTEs joined with a
// FULL OUTER JOIN on chunk id.
func (s ChunkStore) hybridPostgres(ctx context.Context, query string, vector []float64, repoID int64, branch, language string, bm25Weight, vectorWeight float64, limit int) ([]chunk.Hit, error) {
	sanitized := sanitizeTSQuery(query)
	literal := database.NewPgVector(vector).String()
	candidates := limit * 3

	type fusedRow struct {
		ChunkModel
		BM25Rank  float64 `gorm:"column:bm25_rank"`
		VecSim    float64 `gorm:"column:vec_sim"`
		CombinedF float64 `gorm:"column:combined"`
	}
	var rows []fusedRow

	err := s.DB(ctx).Raw(`
WITH bm25 AS (
    SELECT id, ts_rank_cd(content_tsv, plainto_tsquery('english', @query), 2) AS rank
    FROM code_chunks
    WHERE repo_id = @repo AND branch = @branch
      AND (@language = '' OR language = @language)
      AND content_tsv @@ plainto_tsquery('english', @query)
    ORDER BY rank DESC
    LIMIT @candidates
),
vec AS (
    SELECT e.chunk_id AS id, 1 - (e.embedding <=> @vec::vector) AS sim
    FROM embeddings e
    JOIN code_chunks c ON c.id = e.chunk_id
    WHERE e.repo_id = @repo AND e.branch = @branch
      AND (@language = '' OR c.language = @language)
      AND e.embedding IS NOT NULL
    ORDER BY e.embedding <=> @vec::vector
    LIMIT @candidates
)
SELECT c.*,
       COALESCE(bm25.rank, 0) AS bm25_rank,
       COALESCE(vec.sim, 0) AS vec_sim,
       @bw * COALESCE(bm25.rank, 0) + @vw * COALESCE(vec.sim, 0) AS combined
FROM bm25
FULL OUTER JOIN vec ON bm25.id = vec.id
JOIN code_chunks c ON c.id = COALESCE(bm25.id, vec.id)
ORDER BY combined DESC
LIMIT @limit`,
		map[string]any{
			"query": sanitized, "vec": literal, "repo": repoID, "branch": branch,
			"language": language, "candidates": candidates,
			"bw": bm25Weight, "vw": vectorWeight, "limit": limit,
		}).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}

	hits := make([]chunk.Hit, len(rows))
	for i, row := range rows {
		hits[i] = chunk.NewHit(ChunkMapper{}.ToDomain(row.ChunkModel), row.BM25Rank, row.VecSim, row.CombinedF)
	}
	return hits, nil
}

// hybridPortable runs both arms and merges in process.
func (s ChunkStore) hybridPortable(ctx context.Context, query string, vector []float64, repoID int64, branch, language string, bm25Weight, vectorWeight float64, limit int) ([]chunk.Hit, error) {
	candidates := limit * 3

	lexical, err := s.SearchFullText(ctx, query, repoID, branch, language, candidates)
	if err != nil {
		return nil, err
	}
	dense, err := s.SearchEmbeddings(ctx, vector, repoID, branch, candidates)
	if err != nil {
		return nil, err
	}

	type fused struct {
		c    chunk.CodeChunk
		bm25 float64
		vec  float64
	}
	byID := make(map[int64]*fused, len(lexical)+len(dense))
	for _, h := range lexical {
		byID[h.Chunk().ID()] = &fused{c: h.Chunk(), bm25: h.BM25Score()}
	}
	for _, h := range dense {
		if language != "" && h.Chunk().Language() != language {
			continue
		}
		if f, ok := byID[h.Chunk().ID()]; ok {
			f.vec = h.VectorScore()
		} else {
			byID[h.Chunk().ID()] = &fused{c: h.Chunk(), vec: h.VectorScore()}
		}
	}

	hits := make([]chunk.Hit, 0, len(byID))
	for _, f := range byID {
		combined := bm25Weight*f.bm25 + vectorWeight*f.vec
		hits = append(hits, chunk.NewHit(f.c, f.bm25, f.vec, combined))
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Combined() > hits[j].Combined() })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// termFrequencyScore is the portable BM25 stand-in: term frequency dampened
// by document length.
func termFrequencyScore(content string, terms []string) float64 {
	lower := strings.ToLower(content)
	total := 0
	for _, term := range terms {
		total += strings.Count(lower, term)
	}
	if total == 0 {
		return 0
	}
	return float64(total) / (1 + math.Log(1+float64(len(content))))
}

// sanitizeTSQuery strips characters that confuse plainto_tsquery.
var tsQueryReplacer = strings.NewReplacer(
	"'", " ", `"`, " ", "(", " ", ")", " ", ":", " ", "!", " ", "&", " ", "|", " ",
)

func sanitizeTSQuery(query string) string {
	return tsQueryReplacer.Replace(query)
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func euclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Ensure ChunkStore implements the domain interface.
var _ chunk.ChunkStore = ChunkStore{}
