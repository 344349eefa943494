package repository

import (
	"testing"
	"time"
)

func TestBranch_Lifecycle(t *testing.T) {
	branch := NewBranch(1, "main", "aaa")
	if branch.State() != IndexStatePending {
		t.Fatalf("new branch state = %v, want pending", branch.State())
	}

	branch = branch.StartIndexing()
	if branch.State() != IndexStateInProgress {
		t.Fatalf("state = %v, want in_progress", branch.State())
	}

	branch = branch.MarkIndexed("aaa")
	if branch.State() != IndexStateCompleted {
		t.Fatalf("state = %v, want completed", branch.State())
	}
	if !branch.IsUpToDate() {
		t.Error("completed branch with indexed == head should be up to date")
	}
	if branch.IndexedSHA() != branch.HeadSHA() {
		t.Error("MarkIndexed must advance the cursor to head")
	}
}

func TestBranch_HeadAdvanceMakesStale(t *testing.T) {
	branch := NewBranch(1, "main", "aaa").StartIndexing().MarkIndexed("aaa")

	branch = branch.AdvanceHead("bbb")
	if branch.State() != IndexStateStale {
		t.Fatalf("state = %v, want stale after head advance", branch.State())
	}
	// Invariant: indexed != head implies stale.
	if branch.IndexedSHA() == branch.HeadSHA() {
		t.Error("head advance must not move the indexed cursor")
	}
}

func TestBranch_FailureKeepsCursor(t *testing.T) {
	branch := NewBranch(1, "main", "aaa").StartIndexing().MarkIndexed("aaa")
	branch = branch.AdvanceHead("bbb").StartIndexing().MarkFailed()

	if branch.State() != IndexStateFailed {
		t.Fatalf("state = %v, want failed", branch.State())
	}
	if branch.IndexedSHA() != "aaa" {
		t.Errorf("failed run moved the cursor to %q", branch.IndexedSHA())
	}
}

func TestBranch_IdleSince(t *testing.T) {
	branch := NewBranch(1, "main", "aaa")
	if branch.IdleSince(time.Now().Add(-time.Hour)) {
		t.Error("freshly created branch should not be idle")
	}
	if !branch.IdleSince(time.Now().Add(time.Hour)) {
		t.Error("branch should be idle relative to a future cutoff")
	}
}
