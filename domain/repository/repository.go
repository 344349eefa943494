// Package repository provides Git repository domain types.
package repository

import "time"

// Repository represents a mirrored Git repository.
type Repository struct {
	id            int64
	name          string
	remoteURL     string
	defaultBranch string
	createdAt     time.Time
	updatedAt     time.Time
}

// NewRepository creates a new Repository.
func NewRepository(name, remoteURL, defaultBranch string) Repository {
	now := time.Now().UTC()
	return Repository{
		name:          name,
		remoteURL:     remoteURL,
		defaultBranch: defaultBranch,
		createdAt:     now,
		updatedAt:     now,
	}
}

// HydrateRepository reconstructs a Repository from stored values.
func HydrateRepository(id int64, name, remoteURL, defaultBranch string, createdAt, updatedAt time.Time) Repository {
	return Repository{
		id:            id,
		name:          name,
		remoteURL:     remoteURL,
		defaultBranch: defaultBranch,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// ID returns the database identifier (0 before first save).
func (r Repository) ID() int64 { return r.id }

// Name returns the globally unique repository name.
func (r Repository) Name() string { return r.name }

// RemoteURL returns the remote URL the mirror tracks.
func (r Repository) RemoteURL() string { return r.remoteURL }

// DefaultBranch returns the configured default branch name.
func (r Repository) DefaultBranch() string { return r.defaultBranch }

// CreatedAt returns the creation timestamp.
func (r Repository) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the last refresh timestamp.
func (r Repository) UpdatedAt() time.Time { return r.updatedAt }

// Touched returns a copy with the updated timestamp advanced.
func (r Repository) Touched() Repository {
	r.updatedAt = time.Now().UTC()
	return r
}
