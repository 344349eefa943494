package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codeatlas-ai/codeatlas/domain/repository"
	"github.com/codeatlas-ai/codeatlas/internal/database"
)

// defaultWriteBatch is the number of rows per insert statement used by every
// store; the stores do not read the configured write batch size.
const defaultWriteBatch = 500

// RepositoryStore implements repository.RepositoryStore using GORM.
type RepositoryStore struct {
	database.Repository[repository.Repository, RepositoryModel]
}

// NewRepositoryStore creates a new RepositoryStore.
func NewRepositoryStore(db database.Database) RepositoryStore {
	return RepositoryStore{
		Repository: database.NewRepository[repository.Repository, RepositoryModel](db, RepositoryMapper{}, "repository"),
	}
}

// Save creates or updates a repository. The unique name makes creation
// idempotent: a conflicting insert converges onto the existing row.
func (s RepositoryStore) Save(ctx context.Context, repo repository.Repository) (repository.Repository, error) {
	model := RepositoryMapper{}.ToModel(repo)

	var result *gorm.DB
	if repo.ID() == 0 {
		result = s.DB(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"remote_url", "default_branch", "updated_at"}),
		}).Create(&model)
	} else {
		result = s.DB(ctx).Save(&model)
	}
	if result.Error != nil {
		return repository.Repository{}, fmt.Errorf("save repository: %w", result.Error)
	}
	return RepositoryMapper{}.ToDomain(model), nil
}

// Delete removes a repository and every row that belongs to it. Dependent
// tables are cleared explicitly, children first, so SQLite (which has no
// cascading foreign keys) ends in the same state as PostgreSQL.
func (s RepositoryStore) Delete(ctx context.Context, repo repository.Repository) error {
	model := RepositoryMapper{}.ToModel(repo)
	err := s.DB(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"embeddings", "symbol_search", "symbol_fingerprints", "edges", "code_chunks", "symbols", "files", "commits", "branches"} {
			if err := tx.Exec("DELETE FROM "+table+" WHERE repo_id = ?", repo.ID()).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model).Error
	})
	if err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}
	return nil
}

// BranchStore implements repository.BranchStore using GORM.
type BranchStore struct {
	database.Repository[repository.Branch, BranchModel]
}

// NewBranchStore creates a new BranchStore.
func NewBranchStore(db database.Database) BranchStore {
	return BranchStore{
		Repository: database.NewRepository[repository.Branch, BranchModel](db, BranchMapper{}, "branch"),
	}
}

// Save creates or updates a branch, converging on (repo_id, name).
func (s BranchStore) Save(ctx context.Context, branch repository.Branch) (repository.Branch, error) {
	model := BranchMapper{}.ToModel(branch)

	var result *gorm.DB
	if branch.ID() == 0 {
		result = s.DB(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "repo_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"head_sha", "indexed_sha", "state", "last_indexed_at", "last_accessed_at", "updated_at",
			}),
		}).Create(&model)
	} else {
		result = s.DB(ctx).Save(&model)
	}
	if result.Error != nil {
		return repository.Branch{}, fmt.Errorf("save branch: %w", result.Error)
	}
	return BranchMapper{}.ToDomain(model), nil
}

// Delete removes a branch row.
func (s BranchStore) Delete(ctx context.Context, branch repository.Branch) error {
	model := BranchMapper{}.ToModel(branch)
	if result := s.DB(ctx).Delete(&model); result.Error != nil {
		return fmt.Errorf("delete branch: %w", result.Error)
	}
	return nil
}

// CommitStore implements repository.CommitStore using GORM.
type CommitStore struct {
	database.Repository[repository.Commit, CommitModel]
}

// NewCommitStore creates a new CommitStore.
func NewCommitStore(db database.Database) CommitStore {
	return CommitStore{
		Repository: database.NewRepository[repository.Commit, CommitModel](db, CommitMapper{}, "commit"),
	}
}

// Save upserts one commit on (repo_id, sha, branch). Commits are immutable;
// conflicts are absorbed without updates.
func (s CommitStore) Save(ctx context.Context, commit repository.Commit) (repository.Commit, error) {
	model := CommitMapper{}.ToModel(commit)
	result := s.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repo_id"}, {Name: "sha"}, {Name: "branch"}},
		DoNothing: true,
	}).Create(&model)
	if result.Error != nil {
		return repository.Commit{}, fmt.Errorf("save commit: %w", result.Error)
	}
	return CommitMapper{}.ToDomain(model), nil
}

// SaveBatch upserts commits in batches.
func (s CommitStore) SaveBatch(ctx context.Context, commits []repository.Commit) error {
	if len(commits) == 0 {
		return nil
	}
	models := make([]CommitModel, len(commits))
	for i, c := range commits {
		models[i] = CommitMapper{}.ToModel(c)
	}
	result := s.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repo_id"}, {Name: "sha"}, {Name: "branch"}},
		DoNothing: true,
	}).CreateInBatches(models, defaultWriteBatch)
	if result.Error != nil {
		return fmt.Errorf("save commits: %w", result.Error)
	}
	return nil
}

// FileStore implements repository.FileStore using GORM.
type FileStore struct {
	database.Repository[repository.File, FileModel]
}

// NewFileStore creates a new FileStore.
func NewFileStore(db database.Database) FileStore {
	return FileStore{
		Repository: database.NewRepository[repository.File, FileModel](db, FileMapper{}, "file"),
	}
}

// SaveBatch upserts files on (repo_id, branch, commit_sha, path) so
// re-indexing converges idempotently.
func (s FileStore) SaveBatch(ctx context.Context, files []repository.File) error {
	if len(files) == 0 {
		return nil
	}
	models := make([]FileModel, len(files))
	for i, f := range files {
		models[i] = FileMapper{}.ToModel(f)
	}
	result := s.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "repo_id"}, {Name: "branch"}, {Name: "commit_sha"}, {Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"language", "size", "line_count", "indexed_at",
		}),
	}).CreateInBatches(models, defaultWriteBatch)
	if result.Error != nil {
		return fmt.Errorf("save files: %w", result.Error)
	}
	return nil
}
