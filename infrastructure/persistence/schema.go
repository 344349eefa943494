package persistence

import (
	"fmt"

	"github.com/codeatlas-ai/codeatlas/internal/database"
)

// AutoMigrate runs GORM auto migration for all models.
func AutoMigrate(db database.Database) error {
	return db.GORM().AutoMigrate(
		&RepositoryModel{},
		&BranchModel{},
		&CommitModel{},
		&FileModel{},
		&SymbolModel{},
		&EdgeModel{},
		&ChunkModel{},
		&EmbeddingModel{},
		&SymbolSearchModel{},
		&FingerprintModel{},
	)
}

// PostMigrate applies the PostgreSQL-only DDL that GORM cannot manage:
// extensions, full-text columns and triggers, trigram and functional
// indexes, vector typing, and cascading foreign keys. SQLite deployments
// skip all of it; the stores degrade to portable query paths there.
//
// vectorDims types the embedding column; pass the embedder's dimensionality
// (probed at startup) or 0 to leave the column untyped in sparse-only
// deployments.
func PostMigrate(db database.Database, vectorDims int) error {
	if !db.IsPostgres() {
		return nil
	}

	gdb := db.GORM()

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE EXTENSION IF NOT EXISTS pg_trgm`,

		// Full-text column and trigger over chunk content.
		`ALTER TABLE code_chunks ADD COLUMN IF NOT EXISTS content_tsv TSVECTOR`,
		`CREATE OR REPLACE FUNCTION code_chunks_update_tsv()
RETURNS trigger AS $$
BEGIN
    NEW.content_tsv := to_tsvector('english', LEFT(NEW.content, 500000));
    RETURN NEW;
END;
$$ LANGUAGE plpgsql`,
		`DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_trigger WHERE tgname = 'code_chunks_tsv_trigger'
    ) THEN
        CREATE TRIGGER code_chunks_tsv_trigger
        BEFORE INSERT OR UPDATE ON code_chunks
        FOR EACH ROW EXECUTE FUNCTION code_chunks_update_tsv();
    END IF;
END;
$$`,
		`CREATE INDEX IF NOT EXISTS ix_code_chunks_tsv ON code_chunks USING GIN(content_tsv)`,

		// Weighted tsvector over the sparse symbol-search fields.
		`ALTER TABLE symbol_search ADD COLUMN IF NOT EXISTS search_vector TSVECTOR`,
		`CREATE OR REPLACE FUNCTION symbol_search_update_vector()
RETURNS trigger AS $$
BEGIN
    NEW.search_vector :=
        setweight(to_tsvector('simple', COALESCE(NEW.name, '')), 'A') ||
        setweight(to_tsvector('simple', COALESCE(NEW.qualified_name, '')), 'A') ||
        setweight(to_tsvector('english', COALESCE(NEW.signature, '')), 'B') ||
        setweight(to_tsvector('english', COALESCE(NEW.documentation, '')), 'C') ||
        setweight(to_tsvector('english', COALESCE(NEW.literals, '')), 'D');
    RETURN NEW;
END;
$$ LANGUAGE plpgsql`,
		`DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_trigger WHERE tgname = 'symbol_search_vector_trigger'
    ) THEN
        CREATE TRIGGER symbol_search_vector_trigger
        BEFORE INSERT OR UPDATE ON symbol_search
        FOR EACH ROW EXECUTE FUNCTION symbol_search_update_vector();
    END IF;
END;
$$`,
		`CREATE INDEX IF NOT EXISTS ix_symbol_search_vector ON symbol_search USING GIN(search_vector)`,

		// Trigram indexes for fuzzy symbol-name and file-path matching.
		`CREATE INDEX IF NOT EXISTS ix_symbols_name_trgm ON symbols USING GIN (name gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS ix_files_path_trgm ON files USING GIN (path gin_trgm_ops)`,

		// Functional index for case-insensitive cross-file edge resolution.
		`CREATE INDEX IF NOT EXISTS ix_symbols_lower_qualified ON symbols (LOWER(qualified_name))`,
	}

	for _, stmt := range stmts {
		if err := gdb.Exec(stmt).Error; err != nil {
			return fmt.Errorf("post-migrate: %w", err)
		}
	}

	if vectorDims > 0 {
		vectorStmts := []string{
			fmt.Sprintf(`ALTER TABLE embeddings ALTER COLUMN embedding TYPE vector(%d) USING NULLIF(embedding, '')::vector`, vectorDims),
			`CREATE INDEX IF NOT EXISTS ix_embeddings_cosine ON embeddings USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
		}
		for _, stmt := range vectorStmts {
			if err := gdb.Exec(stmt).Error; err != nil {
				return fmt.Errorf("post-migrate vector: %w", err)
			}
		}
	}

	return createForeignKeys(db)
}

// createForeignKeys adds the ON DELETE CASCADE constraints that make
// repository deletion cascade through every dependent table. Idempotent:
// constraints are dropped and re-created on every startup.
func createForeignKeys(db database.Database) error {
	gdb := db.GORM()

	constraints := []struct {
		table      string
		name       string
		definition string
	}{
		{"branches", "fk_branches_repo", "FOREIGN KEY (repo_id) REFERENCES repos(id) ON DELETE CASCADE"},
		{"commits", "fk_commits_repo", "FOREIGN KEY (repo_id) REFERENCES repos(id) ON DELETE CASCADE"},
		{"files", "fk_files_repo", "FOREIGN KEY (repo_id) REFERENCES repos(id) ON DELETE CASCADE"},
		{"symbols", "fk_symbols_repo", "FOREIGN KEY (repo_id) REFERENCES repos(id) ON DELETE CASCADE"},
		{"edges", "fk_edges_repo", "FOREIGN KEY (repo_id) REFERENCES repos(id) ON DELETE CASCADE"},
		{"code_chunks", "fk_chunks_repo", "FOREIGN KEY (repo_id) REFERENCES repos(id) ON DELETE CASCADE"},
		{"embeddings", "fk_embeddings_chunk", "FOREIGN KEY (chunk_id) REFERENCES code_chunks(id) ON DELETE CASCADE"},
		{"symbol_search", "fk_symbol_search_symbol", "FOREIGN KEY (symbol_id) REFERENCES symbols(id) ON DELETE CASCADE"},
		{"symbol_fingerprints", "fk_fingerprints_symbol", "FOREIGN KEY (symbol_id) REFERENCES symbols(id) ON DELETE CASCADE"},
	}

	for _, c := range constraints {
		if err := gdb.Exec(fmt.Sprintf(
			`ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s`, c.table, c.name,
		)).Error; err != nil {
			return fmt.Errorf("drop constraint %s.%s: %w", c.table, c.name, err)
		}
		if err := gdb.Exec(fmt.Sprintf(
			`ALTER TABLE %s ADD CONSTRAINT %s %s`, c.table, c.name, c.definition,
		)).Error; err != nil {
			return fmt.Errorf("create constraint %s.%s: %w", c.table, c.name, err)
		}
	}
	return nil
}
