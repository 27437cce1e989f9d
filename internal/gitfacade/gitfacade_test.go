package gitfacade

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// testRepo initializes a throwaway repository on disk and returns both the
// façade Repo and the raw go-git handle for building fixture commits.
func testRepo(t *testing.T) (*Repo, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	raw, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	cfg, err := raw.Config()
	if err != nil {
		t.Fatal(err)
	}
	cfg.User.Name = "Test User"
	cfg.User.Email = "test@example.com"
	if err := raw.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return repo, raw
}

func writeAndCommit(t *testing.T, dir string, raw *git.Repository, path, content, message string) Hash {
	t.Helper()
	full := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	wt, err := raw.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add(path); err != nil {
		t.Fatal(err)
	}
	sig := &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()}
	h, err := wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestCommitDiffPatchIDStableAcrossRecomputation(t *testing.T) {
	repo, raw := testRepo(t)
	dir := repo.Root()

	base := "a\nb\nc\nd\ne\nf\ng\nh\n"
	writeAndCommit(t, dir, raw, "file.txt", base, "base")

	changed1 := "a\nb\nX\nd\ne\nf\ng\nh\n"
	h1 := writeAndCommit(t, dir, raw, "file.txt", changed1, "change in middle")

	c1, err := raw.CommitObject(h1)
	if err != nil {
		t.Fatal(err)
	}
	diffID1, err := repo.CommitDiffPatchID(c1)
	if err != nil {
		t.Fatalf("CommitDiffPatchID: %v", err)
	}

	// Recomputing the same commit's diff-hash must be stable.
	diffID1Again, err := repo.CommitDiffPatchID(c1)
	if err != nil {
		t.Fatal(err)
	}
	if diffID1 != diffID1Again {
		t.Fatalf("diff-hash is not stable across repeated computation: %s != %s", diffID1, diffID1Again)
	}
}

func TestCommitDiffPatchIDDiffersForDifferentContent(t *testing.T) {
	repo, raw := testRepo(t)
	dir := repo.Root()

	writeAndCommit(t, dir, raw, "file.txt", "a\nb\nc\n", "base")
	h1 := writeAndCommit(t, dir, raw, "file.txt", "a\nX\nc\n", "edit 1")

	c1, err := raw.CommitObject(h1)
	if err != nil {
		t.Fatal(err)
	}
	id1, err := repo.CommitDiffPatchID(c1)
	if err != nil {
		t.Fatal(err)
	}

	writeAndCommit(t, dir, raw, "other.txt", "unrelated\n", "unrelated change")
	h2 := writeAndCommit(t, dir, raw, "file.txt", "a\nY\nc\n", "edit 2")
	c2, err := raw.CommitObject(h2)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := repo.CommitDiffPatchID(c2)
	if err != nil {
		t.Fatal(err)
	}

	if id1 == id2 {
		t.Fatalf("expected different diff-hashes for different content, got the same: %s", id1)
	}
}

func TestRequireSingleParentRejectsMergeCommit(t *testing.T) {
	repo, raw := testRepo(t)
	dir := repo.Root()

	writeAndCommit(t, dir, raw, "file.txt", "base\n", "base")
	wt, err := raw.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	headRef, err := raw.Head()
	if err != nil {
		t.Fatal(err)
	}
	baseHash := headRef.Hash()

	if err := wt.Checkout(&git.CheckoutOptions{Branch: "refs/heads/side", Create: true}); err != nil {
		t.Fatal(err)
	}
	sideHash := writeAndCommit(t, dir, raw, "side.txt", "side\n", "side change")

	if err := wt.Checkout(&git.CheckoutOptions{Branch: "refs/heads/master"}); err != nil {
		t.Fatal(err)
	}
	mainHash := writeAndCommit(t, dir, raw, "main.txt", "main\n", "main change")

	mergeHash, err := wt.Commit("merge side into master", &git.CommitOptions{
		Author:    &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
		Committer: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
		Parents:   []Hash{mainHash, sideHash},
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = baseHash

	mergeCommit, err := raw.CommitObject(mergeHash)
	if err != nil {
		t.Fatal(err)
	}
	if err := RequireSingleParent(mergeCommit); err == nil {
		t.Fatalf("expected an error for a merge commit")
	}
}

func TestMergeTreesTakesNonConflictingChangeFromEachSide(t *testing.T) {
	repo, raw := testRepo(t)
	dir := repo.Root()

	baseHash := writeAndCommit(t, dir, raw, "a.txt", "base-a\n", "base a")
	writeAndCommit(t, dir, raw, "b.txt", "base-b\n", "base b")
	baseCommit, err := raw.CommitObject(mustHead(t, raw))
	if err != nil {
		t.Fatal(err)
	}
	baseTree, err := baseCommit.Tree()
	if err != nil {
		t.Fatal(err)
	}

	oursHash := writeAndCommit(t, dir, raw, "a.txt", "ours-a\n", "ours changes a")
	oursCommit, err := raw.CommitObject(oursHash)
	if err != nil {
		t.Fatal(err)
	}
	oursTree, err := oursCommit.Tree()
	if err != nil {
		t.Fatal(err)
	}

	// Reset the worktree to base, then make a different, non-overlapping
	// change to exercise the "theirs" side of the merge.
	wt, err := raw.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: baseHash, Mode: git.HardReset}); err != nil {
		t.Fatal(err)
	}
	theirsHash := writeAndCommit(t, dir, raw, "b.txt", "theirs-b\n", "theirs changes b")
	theirsCommit, err := raw.CommitObject(theirsHash)
	if err != nil {
		t.Fatal(err)
	}
	theirsTree, err := theirsCommit.Tree()
	if err != nil {
		t.Fatal(err)
	}

	mergedHash, err := repo.MergeTrees(baseTree, oursTree, theirsTree)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	mergedTree, err := raw.TreeObject(mergedHash)
	if err != nil {
		t.Fatal(err)
	}

	aEntry, err := mergedTree.File("a.txt")
	if err != nil {
		t.Fatal(err)
	}
	aContent, err := aEntry.Contents()
	if err != nil {
		t.Fatal(err)
	}
	if aContent != "ours-a\n" {
		t.Fatalf("a.txt = %q, want ours-a content", aContent)
	}

	bEntry, err := mergedTree.File("b.txt")
	if err != nil {
		t.Fatal(err)
	}
	bContent, err := bEntry.Contents()
	if err != nil {
		t.Fatal(err)
	}
	if bContent != "theirs-b\n" {
		t.Fatalf("b.txt = %q, want theirs-b content", bContent)
	}
}

func TestMergeTreesReportsConflictWhenBothSidesChangeSamePath(t *testing.T) {
	repo, raw := testRepo(t)
	dir := repo.Root()

	baseHash := writeAndCommit(t, dir, raw, "a.txt", "base-a\n", "base a")
	baseCommit, err := raw.CommitObject(baseHash)
	if err != nil {
		t.Fatal(err)
	}
	baseTree, err := baseCommit.Tree()
	if err != nil {
		t.Fatal(err)
	}

	oursHash := writeAndCommit(t, dir, raw, "a.txt", "ours-a\n", "ours changes a")
	oursCommit, err := raw.CommitObject(oursHash)
	if err != nil {
		t.Fatal(err)
	}
	oursTree, err := oursCommit.Tree()
	if err != nil {
		t.Fatal(err)
	}

	wt, err := raw.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: baseHash, Mode: git.HardReset}); err != nil {
		t.Fatal(err)
	}
	theirsHash := writeAndCommit(t, dir, raw, "a.txt", "theirs-a\n", "theirs changes a")
	theirsCommit, err := raw.CommitObject(theirsHash)
	if err != nil {
		t.Fatal(err)
	}
	theirsTree, err := theirsCommit.Tree()
	if err != nil {
		t.Fatal(err)
	}

	_, err = repo.MergeTrees(baseTree, oursTree, theirsTree)
	if err == nil {
		t.Fatalf("expected a conflict error")
	}
	var conflicts *MergeTreesConflicts
	if !errorsAsMergeTreesConflicts(err, &conflicts) {
		t.Fatalf("expected *MergeTreesConflicts, got %T: %v", err, err)
	}
	if len(conflicts.Paths) != 1 || conflicts.Paths[0] != "a.txt" {
		t.Fatalf("conflicts = %+v, want [a.txt]", conflicts.Paths)
	}
}

func errorsAsMergeTreesConflicts(err error, target **MergeTreesConflicts) bool {
	if c, ok := err.(*MergeTreesConflicts); ok {
		*target = c
		return true
	}
	return false
}

func mustHead(t *testing.T, raw *git.Repository) Hash {
	t.Helper()
	ref, err := raw.Head()
	if err != nil {
		t.Fatal(err)
	}
	return ref.Hash()
}
