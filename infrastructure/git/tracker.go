package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/codeatlas-ai/codeatlas/domain/repository"
	"github.com/codeatlas-ai/codeatlas/internal/config"
)

// RepositoryNotFoundError reports an unknown repository together with the
// configured alternatives, for the caller's error payload.
type RepositoryNotFoundError struct {
	Name      string
	Available []string
}

// Error implements the error interface.
func (e *RepositoryNotFoundError) Error() string {
	return fmt.Sprintf("repository %q not found", e.Name)
}

// Is matches ErrRepositoryNotFound.
func (e *RepositoryNotFoundError) Is(target error) bool {
	return target == ErrRepositoryNotFound
}

// BranchNotFoundError reports an unknown branch together with the branches
// that do exist, for the caller's error payload.
type BranchNotFoundError struct {
	Repository string
	Branch     string
	Available  []string
}

// Error implements the error interface.
func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("branch %q not found in repository %q", e.Branch, e.Repository)
}

// Is matches ErrBranchNotFound.
func (e *BranchNotFoundError) Is(target error) bool {
	return target == ErrBranchNotFound
}

// repoState is the in-memory registry entry for one configured repository.
type repoState struct {
	cfg       config.RepositoryConfig
	mirror    *Mirror
	initErr   error      // recorded clone/fetch failure, surfaced at query time
	fetchLock sync.Mutex // serializes fetches per repository
}

// Tracker maintains one local bare mirror per configured repository and
// exposes branch cursors and incremental file-change enumeration.
type Tracker struct {
	workDir  string
	filter   FileFilter
	repos    repository.RepositoryStore
	branches repository.BranchStore
	logger   *slog.Logger

	mu       sync.RWMutex
	registry map[string]*repoState
}

// NewTracker creates a Tracker over the configured repositories.
func NewTracker(
	cfg config.AppConfig,
	repos repository.RepositoryStore,
	branches repository.BranchStore,
	logger *slog.Logger,
) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}

	filter, err := NewFileFilter(
		cfg.ExcludeFolders(),
		cfg.ExcludeFileNames(),
		cfg.ExcludeExtensions(),
		cfg.IncludeExtensions(),
		cfg.MaxFileBytes(),
	)
	if err != nil {
		return nil, err
	}

	t := &Tracker{
		workDir:  cfg.WorkingDirectory(),
		filter:   filter,
		repos:    repos,
		branches: branches,
		logger:   logger,
		registry: make(map[string]*repoState, len(cfg.Repositories())),
	}
	for _, rc := range cfg.Repositories() {
		t.registry[rc.Name] = &repoState{cfg: rc}
	}
	return t, nil
}

// Initialize ensures a bare mirror exists for every configured repository,
// cloning when absent and fetching otherwise. Clone and fetch failures are
// recorded per repository and surfaced when that repository is queried;
// initialization itself never fails on a single bad remote.
func (t *Tracker) Initialize(ctx context.Context) error {
	t.mu.RLock()
	states := make([]*repoState, 0, len(t.registry))
	for _, st := range t.registry {
		states = append(states, st)
	}
	t.mu.RUnlock()

	for _, st := range states {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.initRepo(ctx, st); err != nil {
			t.logger.Warn("mirror initialization failed",
				slog.String("repository", st.cfg.Name),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

func (t *Tracker) initRepo(ctx context.Context, st *repoState) error {
	st.fetchLock.Lock()
	defer st.fetchLock.Unlock()

	mirrorPath := filepath.Join(t.workDir, st.cfg.Name+".git")
	mirror, err := OpenOrClone(ctx, st.cfg.RemoteURL, mirrorPath)
	if err != nil {
		st.initErr = err
		return err
	}

	if err := mirror.Fetch(ctx); err != nil {
		st.initErr = err
		st.mirror = mirror
		return err
	}

	st.mirror = mirror
	st.initErr = nil

	repo, err := t.repos.FindOne(ctx, repository.WithName(st.cfg.Name))
	if err != nil {
		repo, err = t.repos.Save(ctx, repository.NewRepository(st.cfg.Name, st.cfg.RemoteURL, st.cfg.DefaultBranch))
		if err != nil {
			return fmt.Errorf("save repository %s: %w", st.cfg.Name, err)
		}
	} else {
		if _, err := t.repos.Save(ctx, repo.Touched()); err != nil {
			return fmt.Errorf("refresh repository %s: %w", st.cfg.Name, err)
		}
	}

	t.logger.Info("mirror ready",
		slog.String("repository", st.cfg.Name),
		slog.String("path", mirror.Path()),
	)
	return nil
}

// RepositoryNames returns the configured repository names, sorted.
func (t *Tracker) RepositoryNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.registry))
	for name := range t.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Repository resolves a configured repository by name, returning its
// persisted row. Unknown names yield RepositoryNotFoundError; a recorded
// mirror failure is surfaced here.
func (t *Tracker) Repository(ctx context.Context, name string) (repository.Repository, error) {
	st, err := t.state(name)
	if err != nil {
		return repository.Repository{}, err
	}
	if st.initErr != nil {
		return repository.Repository{}, fmt.Errorf("repository %s unavailable: %w", name, st.initErr)
	}
	return t.repos.FindOne(ctx, repository.WithName(name))
}

// RemoteBranches lists branch names known to the mirror.
func (t *Tracker) RemoteBranches(ctx context.Context, name string) ([]string, error) {
	st, err := t.state(name)
	if err != nil {
		return nil, err
	}
	if st.mirror == nil {
		if err := t.initRepo(ctx, st); err != nil {
			return nil, err
		}
	}

	infos, err := st.mirror.Branches()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	sort.Strings(names)
	return names, nil
}

// EnsureBranchTracked returns the tracked Branch row for (repo, branch),
// creating it in state Pending when the branch exists remotely. An unknown
// branch yields BranchNotFoundError listing the available branches.
func (t *Tracker) EnsureBranchTracked(ctx context.Context, repo repository.Repository, branchName string) (repository.Branch, error) {
	branch, err := t.branches.FindOne(ctx,
		repository.WithCondition("repo_id", repo.ID()),
		repository.WithBranchName(branchName),
	)
	if err == nil {
		return branch, nil
	}

	st, stErr := t.state(repo.Name())
	if stErr != nil {
		return repository.Branch{}, stErr
	}

	head, headErr := t.snapshotHead(ctx, st, branchName)
	if headErr != nil {
		if errors.Is(headErr, ErrBranchNotFound) {
			available, listErr := t.RemoteBranches(ctx, repo.Name())
			if listErr != nil {
				available = nil
			}
			return repository.Branch{}, &BranchNotFoundError{
				Repository: repo.Name(),
				Branch:     branchName,
				Available:  available,
			}
		}
		return repository.Branch{}, headErr
	}

	branch, err = t.branches.Save(ctx, repository.NewBranch(repo.ID(), branchName, head))
	if err != nil {
		return repository.Branch{}, fmt.Errorf("save branch %s: %w", branchName, err)
	}

	t.logger.Info("branch tracked",
		slog.String("repository", repo.Name()),
		slog.String("branch", branchName),
		slog.String("head", head),
	)
	return branch, nil
}

// RefreshHead fetches the remote and records the branch's current head,
// marking the branch Stale when the head moved past the indexed cursor.
func (t *Tracker) RefreshHead(ctx context.Context, repo repository.Repository, branch repository.Branch) (repository.Branch, error) {
	st, err := t.state(repo.Name())
	if err != nil {
		return branch, err
	}

	head, err := t.snapshotHead(ctx, st, branch.Name())
	if err != nil {
		return branch, err
	}

	if head != branch.HeadSHA() || (branch.State() == repository.IndexStateCompleted && head != branch.IndexedSHA()) {
		branch = branch.AdvanceHead(head)
		return t.branches.Save(ctx, branch)
	}
	return branch, nil
}

// FileChanges enumerates files changed between the branch's indexed commit
// and its current head, reading new blob content for additions and
// modifications. Binary, oversized, and glob-excluded files carry no
// content. A branch whose indexed commit equals head yields no changes.
func (t *Tracker) FileChanges(ctx context.Context, repo repository.Repository, branch repository.Branch) ([]repository.FileChange, error) {
	if branch.IsUpToDate() {
		return nil, nil
	}

	st, err := t.state(repo.Name())
	if err != nil {
		return nil, err
	}
	if st.mirror == nil {
		if err := t.initRepo(ctx, st); err != nil {
			return nil, err
		}
	}

	head := branch.HeadSHA()
	treeChanges, err := st.mirror.DiffTrees(ctx, branch.IndexedSHA(), head)
	if err != nil {
		return nil, err
	}

	changes := make([]repository.FileChange, 0, len(treeChanges))
	for _, tc := range treeChanges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch tc.Action {
		case ActionDeleted:
			changes = append(changes, repository.NewFileChange(tc.Path, repository.ChangeDeleted, nil))
		case ActionAdded, ActionModified:
			kind := repository.ChangeAdded
			if tc.Action == ActionModified {
				kind = repository.ChangeModified
			}

			// Filtered blobs surface as deletions so a file that grows past
			// the size cap or turns binary drops out of the index.
			if !t.filter.Admit(tc.Path, tc.Size) {
				changes = append(changes, repository.NewFileChange(tc.Path, repository.ChangeDeleted, nil))
				continue
			}

			content, err := st.mirror.FileContent(head, tc.Path)
			if err != nil {
				t.logger.Debug("skipping unreadable blob",
					slog.String("path", tc.Path),
					slog.String("error", err.Error()),
				)
				continue
			}
			if looksBinary(content) {
				changes = append(changes, repository.NewFileChange(tc.Path, repository.ChangeDeleted, nil))
				continue
			}
			changes = append(changes, repository.NewFileChange(tc.Path, kind, content))
		}
	}
	return changes, nil
}

// CommitInfo reads commit metadata from the mirror.
func (t *Tracker) CommitInfo(repoName, sha string) (CommitInfo, error) {
	st, err := t.state(repoName)
	if err != nil {
		return CommitInfo{}, err
	}
	if st.mirror == nil {
		return CommitInfo{}, fmt.Errorf("repository %s unavailable: mirror not initialized", repoName)
	}
	return st.mirror.Commit(sha)
}

// MarkIndexed advances the branch's indexed cursor to the given head.
func (t *Tracker) MarkIndexed(ctx context.Context, branch repository.Branch, head string) (repository.Branch, error) {
	return t.branches.Save(ctx, branch.MarkIndexed(head))
}

// SweepStale marks Completed branches idle beyond maxIdle as Stale.
// Derived rows are left for the next re-index to reclaim.
func (t *Tracker) SweepStale(ctx context.Context, now time.Time, maxIdle time.Duration) (int, error) {
	cutoff := now.Add(-maxIdle)

	completed, err := t.branches.Find(ctx, repository.WithState(repository.IndexStateCompleted))
	if err != nil {
		return 0, fmt.Errorf("find completed branches: %w", err)
	}

	swept := 0
	for _, branch := range completed {
		if err := ctx.Err(); err != nil {
			return swept, err
		}
		if !branch.IdleSince(cutoff) {
			continue
		}
		if _, err := t.branches.Save(ctx, branch.MarkStale()); err != nil {
			return swept, fmt.Errorf("mark branch stale: %w", err)
		}
		swept++
	}
	return swept, nil
}

// snapshotHead serializes the fetch per repository and resolves the branch
// head once, so concurrent readers observe a consistent snapshot.
func (t *Tracker) snapshotHead(ctx context.Context, st *repoState, branchName string) (string, error) {
	st.fetchLock.Lock()
	defer st.fetchLock.Unlock()

	if st.mirror == nil {
		mirrorPath := filepath.Join(t.workDir, st.cfg.Name+".git")
		mirror, err := OpenOrClone(ctx, st.cfg.RemoteURL, mirrorPath)
		if err != nil {
			st.initErr = err
			return "", err
		}
		st.mirror = mirror
	}

	if err := st.mirror.Fetch(ctx); err != nil {
		return "", err
	}
	return st.mirror.BranchHead(branchName)
}

func (t *Tracker) state(name string) (*repoState, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.registry[name]
	if !ok {
		names := make([]string, 0, len(t.registry))
		for n := range t.registry {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, &RepositoryNotFoundError{Name: name, Available: names}
	}
	return st, nil
}
