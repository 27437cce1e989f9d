// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gitfacade is the typed boundary between git-ps and the Git
// object database. Object/ref/diff/merge-base/rev-walk concerns go through
// go-git; porcelain the tool deliberately does not reimplement (fetch,
// push, checkout, interactive rebase) goes through the Exec capability,
// which inherits stdio exactly like the teacher's run/cmdOutput split.
package gitfacade

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Hash is a Git object id.
type Hash = plumbing.Hash

// ErrMergeCommit is returned wherever the tool encounters a commit with
// more than one parent where exactly one is required.
var ErrMergeCommit = errors.New("merge commit detected")

// Repo wraps a discovered repository and its working tree root.
type Repo struct {
	raw  *git.Repository
	root string
	gdir string
}

// Open discovers the repository containing dir by walking upward, mirroring
// open_cwd_repo's upward-walk discovery.
func Open(dir string) (*Repo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	r, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("no working tree: %w", err)
	}
	gdir, err := gitPathDir(wt.Filesystem.Root())
	if err != nil {
		return nil, err
	}
	return &Repo{raw: r, root: wt.Filesystem.Root(), gdir: gdir}, nil
}

// Raw exposes the underlying go-git repository for facade methods that need
// lower-level access (cherrypick's tree-merge implementation, principally).
func (r *Repo) Raw() *git.Repository { return r.raw }

// Root is the worktree root directory.
func (r *Repo) Root() string { return r.root }

// GitDir is the repository's .git directory (or equivalent for worktrees).
func (r *Repo) GitDir() string { return r.gdir }

func gitPathDir(root string) (string, error) {
	p := filepath.Join(root, ".git")
	info, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("locate .git: %w", err)
	}
	if info.IsDir() {
		return p, nil
	}
	// .git file (worktree/submodule): "gitdir: <path>"
	b, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(b))
	const prefix = "gitdir: "
	if !strings.HasPrefix(line, prefix) {
		return "", fmt.Errorf("malformed .git file %s", p)
	}
	dir := strings.TrimPrefix(line, prefix)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return dir, nil
}

// CurrentBranch returns the shorthand name of the checked-out branch, or
// "" with ok=false for a detached HEAD.
func (r *Repo) CurrentBranch() (name string, ok bool) {
	head, err := r.raw.Head()
	if err != nil {
		return "", false
	}
	if !head.Name().IsBranch() {
		return "", false
	}
	return head.Name().Short(), true
}

// BranchUpstream returns the upstream remote name and branch shorthand
// configured for branch, mirroring git's branch.<name>.remote/merge.
func (r *Repo) BranchUpstream(branch string) (remote, branchShort string, err error) {
	cfg, err := r.raw.Config()
	if err != nil {
		return "", "", err
	}
	bc, ok := cfg.Branches[branch]
	if !ok || bc.Remote == "" || bc.Merge == "" {
		return "", "", fmt.Errorf("branch %q has no configured upstream", branch)
	}
	return bc.Remote, plumbing.ReferenceName(bc.Merge).Short(), nil
}

// Summary returns the first line of a commit's message.
func Summary(c *object.Commit) string {
	msg := c.Message
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return strings.TrimSpace(msg)
}

// CommitByRev resolves a revision expression (branch, tag, short/long hash)
// to a commit object.
func (r *Repo) CommitByRev(rev string) (*object.Commit, error) {
	h, err := r.raw.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", rev, err)
	}
	return r.raw.CommitObject(*h)
}

// Parents returns a commit's parent hashes.
func Parents(c *object.Commit) []Hash { return c.ParentHashes }

// RequireSingleParent enforces the stack's no-merge-commit invariant.
func RequireSingleParent(c *object.Commit) error {
	if c.NumParents() > 1 {
		return fmt.Errorf("%w: %s", ErrMergeCommit, c.Hash)
	}
	return nil
}

// CommonAncestor returns the merge base of a and b.
func (r *Repo) CommonAncestor(a, b Hash) (Hash, error) {
	ca, err := r.raw.CommitObject(a)
	if err != nil {
		return Hash{}, err
	}
	cb, err := r.raw.CommitObject(b)
	if err != nil {
		return Hash{}, err
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return Hash{}, fmt.Errorf("merge-base: %w", err)
	}
	if len(bases) == 0 {
		return Hash{}, errors.New("no common ancestor")
	}
	return bases[0].Hash, nil
}

// UncommittedChangesExist reports whether the worktree has staged,
// unstaged, or untracked changes.
func (r *Repo) UncommittedChangesExist() (bool, error) {
	wt, err := r.raw.Worktree()
	if err != nil {
		return false, err
	}
	status, err := wt.Status()
	if err != nil {
		return false, err
	}
	return !status.IsClean(), nil
}

// UpdateRefCAS atomically moves ref to target, failing if the ref's current
// value is not oldTarget (or oldTarget is the zero hash for ref creation).
func (r *Repo) UpdateRefCAS(ref plumbing.ReferenceName, target, oldTarget Hash) error {
	var old *plumbing.Reference
	if !oldTarget.IsZero() {
		old = plumbing.NewHashReference(ref, oldTarget)
	} else if _, err := r.raw.Storer.Reference(ref); err == nil {
		return fmt.Errorf("reference %s already exists", ref)
	}
	newRef := plumbing.NewHashReference(ref, target)
	return r.raw.Storer.CheckAndSetReference(newRef, old)
}

// SetRefForce moves ref to target unconditionally (used for the disposable
// topic/isolate branches, which the spec always force-creates/resets).
func (r *Repo) SetRefForce(ref plumbing.ReferenceName, target Hash) error {
	return r.raw.Storer.SetReference(plumbing.NewHashReference(ref, target))
}

// DeleteLocalBranch removes a local branch ref.
func (r *Repo) DeleteLocalBranch(name string) error {
	return r.raw.Storer.RemoveReference(plumbing.NewBranchReferenceName(name))
}

// LocalBranches lists local branch shorthand names.
func (r *Repo) LocalBranches() ([]string, error) {
	refs, err := r.raw.Branches()
	if err != nil {
		return nil, err
	}
	var names []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	return names, err
}

// RefExists reports whether a branch ref exists.
func (r *Repo) RefExists(name string) bool {
	_, err := r.raw.Reference(plumbing.NewBranchReferenceName(name), true)
	return err == nil
}

// BranchHash resolves a local branch shorthand name to its tip hash.
func (r *Repo) BranchHash(name string) (Hash, error) {
	ref, err := r.raw.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		return Hash{}, err
	}
	return ref.Hash(), nil
}

// RemoteURL returns the configured URL of remote.
func (r *Repo) RemoteURL(remote string) (string, error) {
	cfg, err := r.raw.Config()
	if err != nil {
		return "", err
	}
	rc, ok := cfg.Remotes[remote]
	if !ok || len(rc.URLs) == 0 {
		return "", fmt.Errorf("remote %q not found", remote)
	}
	return rc.URLs[0], nil
}

// GitConfigString reads a single-valued config key (e.g. "user.signingkey").
func (r *Repo) GitConfigString(section, key string) (string, error) {
	cfg, err := r.raw.Config()
	if err != nil {
		return "", err
	}
	sec := cfg.Raw.Section(section)
	v := sec.Option(key)
	if v == "" {
		return "", fmt.Errorf("%s.%s not set", section, key)
	}
	return v, nil
}

// GitConfigBool reads a boolean config key, defaulting to def if unset.
func (r *Repo) GitConfigBool(section, key string, def bool) bool {
	v, err := r.GitConfigString(section, key)
	if err != nil {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "yes", "on", "1":
		return true
	case "false", "no", "off", "0":
		return false
	default:
		return def
	}
}

// DefaultSignature returns the signature git would use for a new commit
// right now: user.name/user.email stamped with the current wall-clock time,
// the same way "git commit" always anchors a new commit to the moment it
// runs rather than to any input commit's original timestamp.
func (r *Repo) DefaultSignature() (object.Signature, error) {
	cfg, err := r.raw.Config()
	if err != nil {
		return object.Signature{}, err
	}
	name := cfg.User.Name
	email := cfg.User.Email
	if name == "" || email == "" {
		return object.Signature{}, errors.New("user.name/user.email not configured")
	}
	return object.Signature{Name: name, Email: email, When: time.Now()}, nil
}
