package cherrypick

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/patchwork-dev/git-ps/internal/commitfactory"
	"github.com/patchwork-dev/git-ps/internal/gitfacade"
	"github.com/patchwork-dev/git-ps/internal/signer"
)

func testEngine(t *testing.T) (*Engine, *gitfacade.Repo, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	raw, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
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
	repo, err := gitfacade.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	factory := &commitfactory.Factory{Repo: repo, Signer: signer.None{}}
	return &Engine{Repo: repo, Factory: factory}, repo, raw
}

func commitFile(t *testing.T, dir string, raw *git.Repository, path, content, message string) plumbing.Hash {
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

func TestPickCleanRangeAppliesEachCommitInOrder(t *testing.T) {
	eng, repo, raw := testEngine(t)
	dir := repo.Root()

	baseHash := commitFile(t, dir, raw, "base.txt", "base\n", "base")
	c1 := commitFile(t, dir, raw, "one.txt", "one\n", "add one")
	c2 := commitFile(t, dir, raw, "two.txt", "two\n", "add two")

	destRef := plumbing.NewBranchReferenceName("dest")
	if err := repo.SetRefForce(destRef, baseHash); err != nil {
		t.Fatal(err)
	}

	newTip, err := eng.Pick(context.Background(), Request{
		Root:             c1,
		Leaf:             &c2,
		DestRef:          destRef,
		DestOldTarget:    baseHash,
		CommitterOffsetS: 1,
		RootInclusive:    true,
	})
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if newTip == nil {
		t.Fatal("expected a non-nil new tip")
	}

	tipCommit, err := raw.CommitObject(*newTip)
	if err != nil {
		t.Fatal(err)
	}
	tree, err := tipCommit.Tree()
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"base.txt", "one.txt", "two.txt"} {
		if _, err := tree.File(name); err != nil {
			t.Fatalf("expected %s in the picked tree: %v", name, err)
		}
	}

	ref, err := raw.Reference(destRef, true)
	if err != nil {
		t.Fatal(err)
	}
	if ref.Hash() != *newTip {
		t.Fatalf("dest ref not updated to new tip")
	}
}

func TestPickRejectsMergeCommitInRange(t *testing.T) {
	eng, repo, raw := testEngine(t)
	dir := repo.Root()

	baseHash := commitFile(t, dir, raw, "base.txt", "base\n", "base")
	wt, err := raw.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: "refs/heads/side", Create: true}); err != nil {
		t.Fatal(err)
	}
	sideHash := commitFile(t, dir, raw, "side.txt", "side\n", "side change")

	if err := wt.Checkout(&git.CheckoutOptions{Branch: "refs/heads/master"}); err != nil {
		t.Fatal(err)
	}
	mainHash := commitFile(t, dir, raw, "main.txt", "main\n", "main change")

	mergeHash, err := wt.Commit("merge side", &git.CommitOptions{
		Author:    &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
		Committer: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
		Parents:   []plumbing.Hash{mainHash, sideHash},
	})
	if err != nil {
		t.Fatal(err)
	}

	destRef := plumbing.NewBranchReferenceName("dest")
	if err := repo.SetRefForce(destRef, baseHash); err != nil {
		t.Fatal(err)
	}

	_, err = eng.Pick(context.Background(), Request{
		Root:          mergeHash,
		DestRef:       destRef,
		DestOldTarget: baseHash,
	})
	var mergeErr *ErrMergeCommit
	if !errors.As(err, &mergeErr) {
		t.Fatalf("expected *ErrMergeCommit, got %v", err)
	}
}

func TestPickSurfacesConflictsAsErrConflicts(t *testing.T) {
	eng, repo, raw := testEngine(t)
	dir := repo.Root()

	baseHash := commitFile(t, dir, raw, "shared.txt", "base\n", "base")
	srcHash := commitFile(t, dir, raw, "shared.txt", "from-src\n", "change from src branch")

	wt, err := raw.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: baseHash, Mode: git.HardReset}); err != nil {
		t.Fatal(err)
	}
	destTip := commitFile(t, dir, raw, "shared.txt", "from-dest\n", "change from dest branch")

	destRef := plumbing.NewBranchReferenceName("dest")
	if err := repo.SetRefForce(destRef, destTip); err != nil {
		t.Fatal(err)
	}

	_, err = eng.Pick(context.Background(), Request{
		Root:          srcHash,
		DestRef:       destRef,
		DestOldTarget: destTip,
	})
	var conflictErr *ErrConflicts
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected *ErrConflicts, got %v", err)
	}
	if len(conflictErr.Paths) != 1 || conflictErr.Paths[0] != "shared.txt" {
		t.Fatalf("conflict paths = %v, want [shared.txt]", conflictErr.Paths)
	}
}

func TestPickEmptyRangeReturnsNilTip(t *testing.T) {
	eng, repo, raw := testEngine(t)
	dir := repo.Root()

	baseHash := commitFile(t, dir, raw, "base.txt", "base\n", "base")
	destRef := plumbing.NewBranchReferenceName("dest")
	if err := repo.SetRefForce(destRef, baseHash); err != nil {
		t.Fatal(err)
	}

	newTip, err := eng.Pick(context.Background(), Request{
		Root:          baseHash,
		Leaf:          &baseHash,
		DestRef:       destRef,
		DestOldTarget: baseHash,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newTip != nil {
		t.Fatalf("expected nil tip for an empty range, got %v", *newTip)
	}
}
