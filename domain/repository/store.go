package repository

import "context"

// RepositoryStore persists Repository entities.
type RepositoryStore interface {
	Find(ctx context.Context, options ...Option) ([]Repository, error)
	FindOne(ctx context.Context, options ...Option) (Repository, error)
	Save(ctx context.Context, repo Repository) (Repository, error)
	Delete(ctx context.Context, repo Repository) error
}

// BranchStore persists Branch entities.
type BranchStore interface {
	Find(ctx context.Context, options ...Option) ([]Branch, error)
	FindOne(ctx context.Context, options ...Option) (Branch, error)
	Save(ctx context.Context, branch Branch) (Branch, error)
	Delete(ctx context.Context, branch Branch) error
}

// CommitStore persists Commit entities.
type CommitStore interface {
	Find(ctx context.Context, options ...Option) ([]Commit, error)
	Save(ctx context.Context, commit Commit) (Commit, error)
	SaveBatch(ctx context.Context, commits []Commit) error
}

// FileStore persists File entities.
type FileStore interface {
	Find(ctx context.Context, options ...Option) ([]File, error)
	SaveBatch(ctx context.Context, files []File) error
	DeleteBy(ctx context.Context, options ...Option) error
	Count(ctx context.Context, options ...Option) (int64, error)
}
