package repository

import "time"

// IndexState describes where a branch sits in its indexing lifecycle.
type IndexState string

// IndexState values.
const (
	IndexStatePending    IndexState = "pending"
	IndexStateInProgress IndexState = "in_progress"
	IndexStateCompleted  IndexState = "completed"
	IndexStateFailed     IndexState = "failed"
	IndexStateStale      IndexState = "stale"
)

// String returns the state name.
func (s IndexState) String() string { return string(s) }

// IsTerminal reports whether the state allows a new indexing run to start.
func (s IndexState) IsTerminal() bool {
	switch s {
	case IndexStateCompleted, IndexStateFailed, IndexStateStale, IndexStatePending:
		return true
	default:
		return false
	}
}

// Branch represents a tracked branch with its indexing cursor.
// AdvanceHead moves a Completed branch to Stale when the head passes the
// indexed cursor; a Pending, InProgress or Failed branch keeps its state
// while its cursor and head differ.
type Branch struct {
	id             int64
	repoID         int64
	name           string
	headSHA        string
	indexedSHA     string // empty until the first successful index
	state          IndexState
	lastIndexedAt  time.Time
	lastAccessedAt time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewBranch creates a Branch in state Pending pointing at the remote head.
func NewBranch(repoID int64, name, headSHA string) Branch {
	now := time.Now().UTC()
	return Branch{
		repoID:         repoID,
		name:           name,
		headSHA:        headSHA,
		state:          IndexStatePending,
		lastAccessedAt: now,
		createdAt:      now,
		updatedAt:      now,
	}
}

// HydrateBranch reconstructs a Branch from stored values.
func HydrateBranch(
	id, repoID int64,
	name, headSHA, indexedSHA string,
	state IndexState,
	lastIndexedAt, lastAccessedAt, createdAt, updatedAt time.Time,
) Branch {
	return Branch{
		id:             id,
		repoID:         repoID,
		name:           name,
		headSHA:        headSHA,
		indexedSHA:     indexedSHA,
		state:          state,
		lastIndexedAt:  lastIndexedAt,
		lastAccessedAt: lastAccessedAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// ID returns the database identifier.
func (b Branch) ID() int64 { return b.id }

// RepoID returns the owning repository's identifier.
func (b Branch) RepoID() int64 { return b.repoID }

// Name returns the branch name, unique per repository.
func (b Branch) Name() string { return b.name }

// HeadSHA returns the last observed remote head commit.
func (b Branch) HeadSHA() string { return b.headSHA }

// IndexedSHA returns the last fully indexed commit, empty if never indexed.
func (b Branch) IndexedSHA() string { return b.indexedSHA }

// State returns the indexing lifecycle state.
func (b Branch) State() IndexState { return b.state }

// LastIndexedAt returns when the indexed cursor last advanced.
func (b Branch) LastIndexedAt() time.Time { return b.lastIndexedAt }

// LastAccessedAt returns when the branch was last queried or indexed.
func (b Branch) LastAccessedAt() time.Time { return b.lastAccessedAt }

// CreatedAt returns the creation timestamp.
func (b Branch) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last modification timestamp.
func (b Branch) UpdatedAt() time.Time { return b.updatedAt }

// IsUpToDate reports whether the indexed cursor matches the head.
func (b Branch) IsUpToDate() bool {
	return b.indexedSHA != "" && b.indexedSHA == b.headSHA
}

// StartIndexing transitions the branch to InProgress.
func (b Branch) StartIndexing() Branch {
	b.state = IndexStateInProgress
	b.updatedAt = time.Now().UTC()
	return b
}

// MarkIndexed advances the indexed cursor to head and completes the run.
func (b Branch) MarkIndexed(head string) Branch {
	now := time.Now().UTC()
	b.headSHA = head
	b.indexedSHA = head
	b.state = IndexStateCompleted
	b.lastIndexedAt = now
	b.lastAccessedAt = now
	b.updatedAt = now
	return b
}

// MarkFailed records an indexing failure. The indexed cursor is untouched so
// the next run retries from the same point.
func (b Branch) MarkFailed() Branch {
	b.state = IndexStateFailed
	b.updatedAt = time.Now().UTC()
	return b
}

// AdvanceHead records a new remote head. If the branch was Completed and the
// head moved past the indexed cursor, the branch becomes Stale.
func (b Branch) AdvanceHead(head string) Branch {
	b.headSHA = head
	if b.state == IndexStateCompleted && b.indexedSHA != head {
		b.state = IndexStateStale
	}
	b.updatedAt = time.Now().UTC()
	return b
}

// MarkStale flags the branch for re-indexing (head advance or idle reclaim).
func (b Branch) MarkStale() Branch {
	b.state = IndexStateStale
	b.updatedAt = time.Now().UTC()
	return b
}

// Touched records an access for staleness accounting.
func (b Branch) Touched() Branch {
	now := time.Now().UTC()
	b.lastAccessedAt = now
	b.updatedAt = now
	return b
}

// IdleSince reports whether the branch has not been accessed since the cutoff.
func (b Branch) IdleSince(cutoff time.Time) bool {
	return b.lastAccessedAt.Before(cutoff)
}
