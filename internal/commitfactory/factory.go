// Package commitfactory builds commits, signing them when configured, and
// atomically updates the destination reference to point at the new tip.
// Generalizes the teacher's commitChanges (change.go), which always
// committed the working tree, into something that can also commit an
// arbitrary tree+parents (needed by the cherry-pick engine).
package commitfactory

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/patchwork-dev/git-ps/internal/gitfacade"
	"github.com/patchwork-dev/git-ps/internal/signer"
)

// Request describes a commit to create.
type Request struct {
	DestRef   plumbing.ReferenceName
	OldTarget gitfacade.Hash // CAS guard; zero hash means "ref must not exist yet"
	Author    object.Signature
	Committer object.Signature
	Message   string
	Tree      gitfacade.Hash
	Parents   []gitfacade.Hash
	Sign      bool
}

// Factory creates commits, signing through Signer when Request.Sign is set.
type Factory struct {
	Repo   *gitfacade.Repo
	Signer signer.Signer
}

// Create builds the commit object, signs it if requested, writes it, and
// CAS-updates req.DestRef to point at it.
func (f *Factory) Create(ctx context.Context, req Request) (gitfacade.Hash, error) {
	hash, err := f.CreateLoose(ctx, req)
	if err != nil {
		return gitfacade.Hash{}, err
	}
	if err := f.Repo.UpdateRefCAS(req.DestRef, hash, req.OldTarget); err != nil {
		return gitfacade.Hash{}, fmt.Errorf("update ref %s: %w", req.DestRef, err)
	}
	return hash, nil
}

// CreateLoose writes the commit object described by req (signing it if
// requested) without updating any reference. Used by multi-commit rewrite
// pipelines (identity stamping, cherry-pick ranges) that only want to move
// the destination ref once, after the whole chain has been built.
func (f *Factory) CreateLoose(ctx context.Context, req Request) (gitfacade.Hash, error) {
	commit := &object.Commit{
		Author:       req.Author,
		Committer:    req.Committer,
		Message:      req.Message,
		TreeHash:     req.Tree,
		ParentHashes: req.Parents,
	}

	if req.Sign {
		payload, err := commitPayload(commit)
		if err != nil {
			return gitfacade.Hash{}, fmt.Errorf("build commit payload: %w", err)
		}
		sig, err := f.Signer.Sign(ctx, payload)
		if err != nil {
			return gitfacade.Hash{}, fmt.Errorf("sign commit: %w", err)
		}
		commit.PGPSignature = sig
	}

	obj := f.Repo.Raw().Storer.NewEncodedObject()
	obj.SetType(plumbing.CommitObject)
	if err := commit.Encode(obj); err != nil {
		return gitfacade.Hash{}, fmt.Errorf("encode commit: %w", err)
	}
	hash, err := f.Repo.Raw().Storer.SetEncodedObject(obj)
	if err != nil {
		return gitfacade.Hash{}, fmt.Errorf("write commit: %w", err)
	}
	return hash, nil
}

// commitPayload renders the canonical commit buffer a signature is taken
// over: the full commit object encoding minus the gpgsig header, matching
// what "git commit-tree"'s internal commit-create-buffer facility produces.
func commitPayload(c *object.Commit) ([]byte, error) {
	unsigned := *c
	unsigned.PGPSignature = ""
	obj := &plumbing.MemoryObject{}
	if err := unsigned.Encode(obj); err != nil {
		return nil, err
	}
	r, err := obj.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// NowOffset returns a committer-compatible time offset by the given number
// of seconds, used by the cherry-pick engine to keep committer timestamps
// strictly increasing within the same wall-clock second.
func NowOffset(base time.Time, offsetSeconds int64) time.Time {
	return base.Add(time.Duration(offsetSeconds) * time.Second)
}
