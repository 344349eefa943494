package repository

import (
	"strings"
	"time"
)

// ChangeKind classifies a file change between two commits.
type ChangeKind string

// ChangeKind values.
const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// FileChange is one entry of a tree diff between the indexed commit and head.
// Content is nil for deletions and for files filtered out by size, binary
// sniffing, or exclusion globs.
type FileChange struct {
	path    string
	kind    ChangeKind
	content []byte
}

// NewFileChange creates a new FileChange.
func NewFileChange(path string, kind ChangeKind, content []byte) FileChange {
	return FileChange{path: path, kind: kind, content: content}
}

// Path returns the repository-relative file path.
func (f FileChange) Path() string { return f.path }

// Kind returns the change classification.
func (f FileChange) Kind() ChangeKind { return f.kind }

// Content returns the new blob content, nil for deletions.
func (f FileChange) Content() []byte { return f.content }

// File represents an indexed source file at a specific commit.
type File struct {
	id        int64
	repoID    int64
	branch    string
	commitSHA string
	path      string
	language  string
	size      int64
	lineCount int
	indexedAt time.Time
}

// NewFile creates a new File, deriving the line count from content.
func NewFile(repoID int64, branch, commitSHA, path, language string, content []byte) File {
	return File{
		repoID:    repoID,
		branch:    branch,
		commitSHA: commitSHA,
		path:      path,
		language:  language,
		size:      int64(len(content)),
		lineCount: countLines(content),
		indexedAt: time.Now().UTC(),
	}
}

// HydrateFile reconstructs a File from stored values.
func HydrateFile(id, repoID int64, branch, commitSHA, path, language string, size int64, lineCount int, indexedAt time.Time) File {
	return File{
		id:        id,
		repoID:    repoID,
		branch:    branch,
		commitSHA: commitSHA,
		path:      path,
		language:  language,
		size:      size,
		lineCount: lineCount,
		indexedAt: indexedAt,
	}
}

// ID returns the database identifier.
func (f File) ID() int64 { return f.id }

// RepoID returns the owning repository's identifier.
func (f File) RepoID() int64 { return f.repoID }

// Branch returns the branch this row belongs to.
func (f File) Branch() string { return f.branch }

// CommitSHA returns the commit the file was indexed at.
func (f File) CommitSHA() string { return f.commitSHA }

// Path returns the repository-relative path.
func (f File) Path() string { return f.path }

// Language returns the detected language tag.
func (f File) Language() string { return f.language }

// Size returns the blob size in bytes.
func (f File) Size() int64 { return f.size }

// LineCount returns the number of lines in the file.
func (f File) LineCount() int { return f.lineCount }

// IndexedAt returns when the row was produced.
func (f File) IndexedAt() time.Time { return f.indexedAt }

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := strings.Count(string(content), "\n")
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
