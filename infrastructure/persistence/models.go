// Package persistence provides database storage implementations.
package persistence

import (
	"time"

	"github.com/codeatlas-ai/codeatlas/internal/database"
)

// RepositoryModel represents a mirrored Git repository in the database.
type RepositoryModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	Name          string    `gorm:"column:name;uniqueIndex;size:255;not null"`
	RemoteURL     string    `gorm:"column:remote_url;size:1024;not null"`
	DefaultBranch string    `gorm:"column:default_branch;size:255"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (RepositoryModel) TableName() string { return "repos" }

// BranchModel represents a tracked branch with its indexing cursor.
type BranchModel struct {
	ID             int64      `gorm:"primaryKey;autoIncrement"`
	RepoID         int64      `gorm:"column:repo_id;index;uniqueIndex:ux_branches_repo_name;not null"`
	Name           string     `gorm:"column:name;uniqueIndex:ux_branches_repo_name;size:255;not null"`
	HeadSHA        string     `gorm:"column:head_sha;size:64"`
	IndexedSHA     *string    `gorm:"column:indexed_sha;size:64"`
	State          string     `gorm:"column:state;index;size:32;not null"`
	LastIndexedAt  *time.Time `gorm:"column:last_indexed_at"`
	LastAccessedAt time.Time  `gorm:"column:last_accessed_at"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (BranchModel) TableName() string { return "branches" }

// CommitModel represents an immutable Git commit observed on a branch.
type CommitModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	RepoID      int64     `gorm:"column:repo_id;index;uniqueIndex:ux_commits_repo_sha_branch;not null"`
	SHA         string    `gorm:"column:sha;uniqueIndex:ux_commits_repo_sha_branch;size:64;not null"`
	Branch      string    `gorm:"column:branch;uniqueIndex:ux_commits_repo_sha_branch;size:255;not null"`
	AuthorName  string    `gorm:"column:author_name;size:255"`
	AuthorEmail string    `gorm:"column:author_email;size:255"`
	Message     string    `gorm:"column:message;type:text"`
	CommittedAt time.Time `gorm:"column:committed_at"`
}

// TableName returns the table name.
func (CommitModel) TableName() string { return "commits" }

// FileModel represents an indexed source file at a specific commit.
type FileModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	RepoID    int64     `gorm:"column:repo_id;index:ix_files_repo_branch;uniqueIndex:ux_files_identity;not null"`
	Branch    string    `gorm:"column:branch;index:ix_files_repo_branch;uniqueIndex:ux_files_identity;size:255;not null"`
	CommitSHA string    `gorm:"column:commit_sha;uniqueIndex:ux_files_identity;size:64;not null"`
	Path      string    `gorm:"column:path;uniqueIndex:ux_files_identity;size:1024;not null"`
	Language  string    `gorm:"column:language;index;size:32"`
	Size      int64     `gorm:"column:size"`
	LineCount int       `gorm:"column:line_count"`
	IndexedAt time.Time `gorm:"column:indexed_at"`
}

// TableName returns the table name.
func (FileModel) TableName() string { return "files" }

// SymbolModel represents a named source construct with its location span.
type SymbolModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	RepoID        int64     `gorm:"column:repo_id;index:ix_symbols_repo_branch;uniqueIndex:ux_symbols_identity;not null"`
	Branch        string    `gorm:"column:branch;index:ix_symbols_repo_branch;uniqueIndex:ux_symbols_identity;size:255;not null"`
	CommitSHA     string    `gorm:"column:commit_sha;size:64"`
	FilePath      string    `gorm:"column:file_path;uniqueIndex:ux_symbols_identity;size:1024;not null"`
	Name          string    `gorm:"column:name;index;uniqueIndex:ux_symbols_identity;size:512;not null"`
	QualifiedName string    `gorm:"column:qualified_name;index;size:1024"`
	Kind          string    `gorm:"column:kind;index;size:32;not null"`
	StartLine     int       `gorm:"column:start_line;uniqueIndex:ux_symbols_identity"`
	EndLine       int       `gorm:"column:end_line;uniqueIndex:ux_symbols_identity"`
	StartColumn   int       `gorm:"column:start_column"`
	EndColumn     int       `gorm:"column:end_column"`
	Signature     string    `gorm:"column:signature;type:text"`
	Documentation string    `gorm:"column:documentation;type:text"`
	Modifiers     string    `gorm:"column:modifiers;size:512"`
	ParentID      *int64    `gorm:"column:parent_id;index"`
	Language      string    `gorm:"column:language;index;size:32"`
	IndexedAt     time.Time `gorm:"column:indexed_at"`
}

// TableName returns the table name.
func (SymbolModel) TableName() string { return "symbols" }

// EdgeModel represents a directed, kind-tagged relationship between symbols.
// TargetID stays null while the target is only known by qualified name.
type EdgeModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	SourceID   int64  `gorm:"column:source_id;index;not null"`
	TargetID   *int64 `gorm:"column:target_id;index"`
	TargetName string `gorm:"column:target_name;index;size:1024"`
	Kind       string `gorm:"column:kind;index;size:32;not null"`
	RepoID     int64  `gorm:"column:repo_id;index:ix_edges_repo_branch;not null"`
	Branch     string `gorm:"column:branch;index:ix_edges_repo_branch;size:255;not null"`
	CommitSHA  string `gorm:"column:commit_sha;size:64"`
	FilePath   string `gorm:"column:file_path;size:1024"`
	Line       int    `gorm:"column:line"`
}

// TableName returns the table name.
func (EdgeModel) TableName() string { return "edges" }

// ChunkModel represents a context-padded slice of source text.
type ChunkModel struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	RepoID          int64     `gorm:"column:repo_id;index:ix_chunks_repo_branch;uniqueIndex:ux_chunks_identity;not null"`
	Branch          string    `gorm:"column:branch;index:ix_chunks_repo_branch;uniqueIndex:ux_chunks_identity;size:255;not null"`
	CommitSHA       string    `gorm:"column:commit_sha;size:64"`
	FilePath        string    `gorm:"column:file_path;uniqueIndex:ux_chunks_identity;size:1024;not null"`
	SymbolID        *int64    `gorm:"column:symbol_id;index"`
	SymbolName      string    `gorm:"column:symbol_name;index;size:512"`
	SymbolKind      string    `gorm:"column:symbol_kind;size:32"`
	Language        string    `gorm:"column:language;index;size:32"`
	Content         string    `gorm:"column:content;type:text"`
	SymbolStartLine int       `gorm:"column:symbol_start_line"`
	SymbolEndLine   int       `gorm:"column:symbol_end_line"`
	StartLine       int       `gorm:"column:start_line;uniqueIndex:ux_chunks_identity"`
	EndLine         int       `gorm:"column:end_line;uniqueIndex:ux_chunks_identity"`
	TokenCount      int       `gorm:"column:token_count"`
	ParentSymbol    string    `gorm:"column:parent_symbol;size:512"`
	Signature       string    `gorm:"column:signature;type:text"`
	Documentation   string    `gorm:"column:documentation;type:text"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (ChunkModel) TableName() string { return "code_chunks" }

// EmbeddingModel represents the dense vector for one chunk. The vector is
// stored in the pgvector text format; on PostgreSQL the column is altered to
// the vector type post-migration.
type EmbeddingModel struct {
	ID           int64             `gorm:"primaryKey;autoIncrement"`
	ChunkID      int64             `gorm:"column:chunk_id;uniqueIndex;not null"`
	RepoID       int64             `gorm:"column:repo_id;index:ix_embeddings_repo_branch;not null"`
	Branch       string            `gorm:"column:branch;index:ix_embeddings_repo_branch;size:255;not null"`
	CommitSHA    string            `gorm:"column:commit_sha;size:64"`
	Embedding    database.PgVector `gorm:"column:embedding;type:text"`
	Dims         int               `gorm:"column:dims"`
	Model        string            `gorm:"column:model;size:255"`
	ModelVersion string            `gorm:"column:model_version;size:255"`
	GeneratedAt  time.Time         `gorm:"column:generated_at"`
}

// TableName returns the table name.
func (EmbeddingModel) TableName() string { return "embeddings" }

// SymbolSearchModel is the sparse symbol-search row. The weighted tsvector
// column and its trigger exist on PostgreSQL only and are created
// post-migration.
type SymbolSearchModel struct {
	SymbolID      int64  `gorm:"column:symbol_id;primaryKey"`
	RepoID        int64  `gorm:"column:repo_id;index:ix_symbol_search_repo_branch;not null"`
	Branch        string `gorm:"column:branch;index:ix_symbol_search_repo_branch;size:255;not null"`
	CommitSHA     string `gorm:"column:commit_sha;size:64"`
	FilePath      string `gorm:"column:file_path;size:1024"`
	Language      string `gorm:"column:language;size:32"`
	Kind          string `gorm:"column:kind;size:32"`
	Name          string `gorm:"column:name;index;size:512"`
	QualifiedName string `gorm:"column:qualified_name;size:1024"`
	Signature     string `gorm:"column:signature;type:text"`
	Documentation string `gorm:"column:documentation;type:text"`
	Literals      string `gorm:"column:literals;type:text"`
	Snippet       string `gorm:"column:snippet;type:text"`
}

// TableName returns the table name.
func (SymbolSearchModel) TableName() string { return "symbol_search" }

// FingerprintModel represents a 64-bit symbol fingerprint with its four
// 16-bit LSH bands. The fingerprint is stored as the signed reinterpretation
// of the unsigned bits.
type FingerprintModel struct {
	SymbolID    int64     `gorm:"column:symbol_id;primaryKey"`
	RepoID      int64     `gorm:"column:repo_id;index:ix_fingerprints_repo_branch;not null"`
	Branch      string    `gorm:"column:branch;index:ix_fingerprints_repo_branch;size:255;not null"`
	CommitSHA   string    `gorm:"column:commit_sha;size:64"`
	FilePath    string    `gorm:"column:file_path;size:1024"`
	Language    string    `gorm:"column:language;size:32"`
	Kind        string    `gorm:"column:kind;size:32"`
	FPKind      string    `gorm:"column:fp_kind;size:32"`
	Fingerprint int64     `gorm:"column:fingerprint"`
	Band0       int32     `gorm:"column:band0;index"`
	Band1       int32     `gorm:"column:band1;index"`
	Band2       int32     `gorm:"column:band2;index"`
	Band3       int32     `gorm:"column:band3;index"`
	IndexedAt   time.Time `gorm:"column:indexed_at"`
}

// TableName returns the table name.
func (FingerprintModel) TableName() string { return "symbol_fingerprints" }
