package repository

import "time"

// WithName filters by the "name" column.
func WithName(name string) Option {
	return WithCondition("name", name)
}

// WithBranch filters by the "branch" column.
func WithBranch(branch string) Option {
	return WithCondition("branch", branch)
}

// WithBranchName filters branches by their "name" column.
func WithBranchName(name string) Option {
	return WithCondition("name", name)
}

// WithCommitSHA filters by the "commit_sha" column.
func WithCommitSHA(sha string) Option {
	return WithCondition("commit_sha", sha)
}

// WithSHA filters commits by the "sha" column.
func WithSHA(sha string) Option {
	return WithCondition("sha", sha)
}

// WithPath filters by the "path" column.
func WithPath(path string) Option {
	return WithCondition("path", path)
}

// WithFilePath filters by the "file_path" column.
func WithFilePath(path string) Option {
	return WithCondition("file_path", path)
}

// WithLanguage filters by the "language" column.
func WithLanguage(language string) Option {
	return WithCondition("language", language)
}

// WithState filters branches by the "state" column.
func WithState(state IndexState) Option {
	return WithCondition("state", string(state))
}

// WithStateIn filters branches by the "state" column using IN.
func WithStateIn(states []IndexState) Option {
	values := make([]string, len(states))
	for i, s := range states {
		values[i] = string(s)
	}
	return WithConditionIn("state", values)
}

// WithAccessedBefore filters branches whose last access predates the cutoff.
func WithAccessedBefore(cutoff time.Time) Option {
	return WithParam("accessed_before", cutoff)
}

// AccessedBeforeFrom extracts the accessed-before cutoff from a Query.
func AccessedBeforeFrom(q Query) (time.Time, bool) {
	v, ok := q.Param("accessed_before")
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	return t, ok
}
