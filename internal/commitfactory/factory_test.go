package commitfactory

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/patchwork-dev/git-ps/internal/gitfacade"
	"github.com/patchwork-dev/git-ps/internal/signer"
)

func testFactory(t *testing.T) (*Factory, *gitfacade.Repo) {
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
	return &Factory{Repo: repo, Signer: signer.None{}}, repo
}

func emptyTree(t *testing.T, repo *gitfacade.Repo) gitfacade.Hash {
	t.Helper()
	tree := &object.Tree{}
	obj := repo.Raw().Storer.NewEncodedObject()
	obj.SetType(plumbing.TreeObject)
	if err := tree.Encode(obj); err != nil {
		t.Fatal(err)
	}
	h, err := repo.Raw().Storer.SetEncodedObject(obj)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestCreateLooseBuildsUnsignedCommitWithNoRefUpdate(t *testing.T) {
	f, repo := testFactory(t)
	tree := emptyTree(t, repo)
	sig := object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()}

	hash, err := f.CreateLoose(context.Background(), Request{
		Author:    sig,
		Committer: sig,
		Message:   "root commit",
		Tree:      tree,
	})
	if err != nil {
		t.Fatalf("CreateLoose: %v", err)
	}

	commit, err := repo.Raw().CommitObject(hash)
	if err != nil {
		t.Fatalf("commit not written: %v", err)
	}
	if commit.Message != "root commit" {
		t.Fatalf("message = %q, want %q", commit.Message, "root commit")
	}
	if commit.PGPSignature != "" {
		t.Fatalf("expected no signature, got one")
	}
	if commit.NumParents() != 0 {
		t.Fatalf("expected a root commit with no parents")
	}

	ref := plumbing.NewBranchReferenceName("untouched")
	if _, err := repo.Raw().Reference(ref, true); err == nil {
		t.Fatalf("CreateLoose must not create or update any ref")
	}
}

func TestCreateUpdatesDestRefViaCAS(t *testing.T) {
	f, repo := testFactory(t)
	tree := emptyTree(t, repo)
	sig := object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()}
	ref := plumbing.NewBranchReferenceName("main")

	hash, err := f.Create(context.Background(), Request{
		DestRef:   ref,
		OldTarget: gitfacade.Hash{},
		Author:    sig,
		Committer: sig,
		Message:   "initial",
		Tree:      tree,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.Raw().Reference(ref, true)
	if err != nil {
		t.Fatalf("ref not created: %v", err)
	}
	if got.Hash() != hash {
		t.Fatalf("ref points at %s, want %s", got.Hash(), hash)
	}
}

func TestCreateFailsCASWhenOldTargetStale(t *testing.T) {
	f, repo := testFactory(t)
	tree := emptyTree(t, repo)
	sig := object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()}
	ref := plumbing.NewBranchReferenceName("main")

	first, err := f.Create(context.Background(), Request{
		DestRef: ref, OldTarget: gitfacade.Hash{}, Author: sig, Committer: sig, Message: "first", Tree: tree,
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = first

	_, err = f.Create(context.Background(), Request{
		DestRef: ref, OldTarget: gitfacade.Hash{}, Author: sig, Committer: sig, Message: "second", Tree: tree,
	})
	if err == nil {
		t.Fatalf("expected CAS failure when OldTarget no longer matches the ref")
	}
}

func TestNowOffsetAddsSeconds(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := NowOffset(base, 3)
	want := base.Add(3 * time.Second)
	if !got.Equal(want) {
		t.Fatalf("NowOffset = %v, want %v", got, want)
	}
}
