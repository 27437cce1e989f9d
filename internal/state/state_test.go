package state

import (
	"testing"

	"github.com/google/uuid"
)

func TestDriftLocalNoBranchPresence(t *testing.T) {
	id := uuid.New()
	b := BranchInfo{Patches: nil}
	if !DriftLocal(b, id, "deadbeef") {
		t.Fatalf("expected drift true when patch absent from branch")
	}
}

func TestDriftLocalMatchingDiff(t *testing.T) {
	id := uuid.New()
	b := BranchInfo{Patches: []PatchInfo{{PatchID: id, CommitDiffID: "abc123"}}}
	if DriftLocal(b, id, "abc123") {
		t.Fatalf("expected no drift when diff-hash matches")
	}
	if !DriftLocal(b, id, "different") {
		t.Fatalf("expected drift when diff-hash differs")
	}
}

func TestDriftRemoteNoUpstream(t *testing.T) {
	id := uuid.New()
	b := BranchInfo{Upstream: nil}
	if DriftRemote(b, id, "abc") {
		t.Fatalf("expected no remote drift when there is no upstream")
	}
}

func TestDriftRemoteAbsentFromUpstream(t *testing.T) {
	id := uuid.New()
	b := BranchInfo{Upstream: &UpstreamBranchInfo{Patches: nil}}
	if !DriftRemote(b, id, "abc") {
		t.Fatalf("expected drift when patch absent from upstream")
	}
}

func TestBehind(t *testing.T) {
	b := BranchInfo{CommitCount: 3, Patches: []PatchInfo{{}, {}}}
	if !Behind(b) {
		t.Fatalf("expected Behind true when patches < commit count")
	}
	b.Patches = append(b.Patches, PatchInfo{})
	if Behind(b) {
		t.Fatalf("expected Behind false when patches == commit count")
	}
}

func TestPatchGitInfoSole(t *testing.T) {
	var g PatchGitInfo
	if g.HasBranch() || g.Ambiguous() {
		t.Fatalf("empty PatchGitInfo should report no branch and not ambiguous")
	}
	g.Branches = []BranchInfo{{Name: "ps/rr/a"}}
	sole, ok := g.Sole()
	if !ok || sole.Name != "ps/rr/a" {
		t.Fatalf("Sole() = %+v, %v, want ps/rr/a, true", sole, ok)
	}
	g.Branches = append(g.Branches, BranchInfo{Name: "ps/rr/b"})
	if !g.Ambiguous() {
		t.Fatalf("expected Ambiguous true with two branches")
	}
	if _, ok := g.Sole(); ok {
		t.Fatalf("Sole() should fail to resolve with two branches")
	}
}
