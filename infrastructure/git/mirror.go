package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// BranchInfo is a branch name with its head commit hash.
type BranchInfo struct {
	Name    string
	HeadSHA string
}

// CommitInfo carries commit metadata read from the mirror.
type CommitInfo struct {
	SHA         string
	AuthorName  string
	AuthorEmail string
	Message     string
	CommittedAt time.Time
}

// TreeChange is one entry of a tree diff between two commits.
type TreeChange struct {
	Path   string
	Action ChangeAction
	Size   int64
}

// ChangeAction mirrors the merkletrie diff actions.
type ChangeAction int

// ChangeAction values.
const (
	ActionAdded ChangeAction = iota
	ActionModified
	ActionDeleted
)

// Mirror wraps one local bare mirror of a remote repository.
type Mirror struct {
	path string
	repo *gogit.Repository
}

// OpenOrClone opens the bare mirror at path, cloning from remoteURL when it
// does not exist yet. A clone race losing to an existing directory falls
// back to opening it.
func OpenOrClone(ctx context.Context, remoteURL, path string) (*Mirror, error) {
	repo, err := gogit.PlainOpen(path)
	if err == nil {
		return &Mirror{path: path, repo: repo}, nil
	}
	if !errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, classify("open mirror", err)
	}

	repo, err = gogit.PlainCloneContext(ctx, path, true, &gogit.CloneOptions{
		URL:    remoteURL,
		Mirror: true,
	})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryAlreadyExists) {
			repo, err = gogit.PlainOpen(path)
			if err != nil {
				return nil, classify("open mirror", err)
			}
			return &Mirror{path: path, repo: repo}, nil
		}
		return nil, classify("clone mirror", fmt.Errorf("clone %s: %w", remoteURL, err))
	}

	return &Mirror{path: path, repo: repo}, nil
}

// Path returns the mirror's filesystem location.
func (m *Mirror) Path() string { return m.path }

// Fetch updates all refs from the remote. Already-up-to-date is not an error.
func (m *Mirror) Fetch(ctx context.Context) error {
	err := m.repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: "origin",
		Force:      true,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return classify("fetch", err)
	}
	return nil
}

// Branches lists branch heads known to the mirror. In a mirror clone the
// remote's heads appear under refs/heads.
func (m *Mirror) Branches() ([]BranchInfo, error) {
	iter, err := m.repo.Branches()
	if err != nil {
		return nil, classify("list branches", err)
	}
	defer iter.Close()

	var branches []BranchInfo
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		branches = append(branches, BranchInfo{
			Name:    ref.Name().Short(),
			HeadSHA: ref.Hash().String(),
		})
		return nil
	})
	if err != nil {
		return nil, classify("iterate branches", err)
	}
	return branches, nil
}

// BranchHead resolves a branch name to its head commit hash.
func (m *Mirror) BranchHead(name string) (string, error) {
	ref, err := m.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", fmt.Errorf("%w: %s", ErrBranchNotFound, name)
		}
		return "", classify("resolve branch", err)
	}
	return ref.Hash().String(), nil
}

// Commit reads commit metadata.
func (m *Mirror) Commit(sha string) (CommitInfo, error) {
	commit, err := m.repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return CommitInfo{}, classify("read commit", err)
	}
	return CommitInfo{
		SHA:         commit.Hash.String(),
		AuthorName:  commit.Author.Name,
		AuthorEmail: commit.Author.Email,
		Message:     strings.TrimRight(commit.Message, "\n"),
		CommittedAt: commit.Committer.When,
	}, nil
}

// DiffTrees enumerates file changes between two commits. An empty oldSHA
// diffs against the empty tree, yielding every file as Added.
func (m *Mirror) DiffTrees(ctx context.Context, oldSHA, newSHA string) ([]TreeChange, error) {
	newTree, err := m.treeOf(newSHA)
	if err != nil {
		return nil, err
	}

	oldTree := &object.Tree{}
	if oldSHA != "" {
		oldTree, err = m.treeOf(oldSHA)
		if err != nil {
			return nil, err
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, oldTree, newTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, classify("diff trees", err)
	}

	result := make([]TreeChange, 0, len(changes))
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, classify("diff action", err)
		}

		switch action {
		case merkletrie.Insert:
			if change.To.TreeEntry.Mode == filemode.Submodule {
				continue
			}
			size, _ := m.blobSize(change.To.TreeEntry.Hash)
			result = append(result, TreeChange{Path: change.To.Name, Action: ActionAdded, Size: size})
		case merkletrie.Modify:
			if change.To.TreeEntry.Mode == filemode.Submodule {
				continue
			}
			size, _ := m.blobSize(change.To.TreeEntry.Hash)
			result = append(result, TreeChange{Path: change.To.Name, Action: ActionModified, Size: size})
		case merkletrie.Delete:
			result = append(result, TreeChange{Path: change.From.Name, Action: ActionDeleted})
		}
	}
	return result, nil
}

// FileContent reads a blob's content at a specific commit.
func (m *Mirror) FileContent(commitSHA, path string) ([]byte, error) {
	commit, err := m.repo.CommitObject(plumbing.NewHash(commitSHA))
	if err != nil {
		return nil, classify("read commit", err)
	}

	file, err := commit.File(path)
	if err != nil {
		return nil, classify("read file", err)
	}

	reader, err := file.Blob.Reader()
	if err != nil {
		return nil, classify("open blob", err)
	}
	defer func() { _ = reader.Close() }()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, classify("read blob", err)
	}
	return content, nil
}

func (m *Mirror) treeOf(sha string) (*object.Tree, error) {
	commit, err := m.repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return nil, classify("read commit", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, classify("read tree", err)
	}
	return tree, nil
}

func (m *Mirror) blobSize(hash plumbing.Hash) (int64, error) {
	blob, err := m.repo.BlobObject(hash)
	if err != nil {
		return 0, err
	}
	return blob.Size, nil
}
