package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/patchwork-dev/git-ps/internal/cherrypick"
	"github.com/patchwork-dev/git-ps/internal/errs"
	"github.com/patchwork-dev/git-ps/internal/gitfacade"
	"github.com/patchwork-dev/git-ps/internal/hooks"
	"github.com/patchwork-dev/git-ps/internal/patch"
)

const isolateBranch = "ps/tmp/isolate"

func isolateMarkerPath(gitDir string) string {
	return filepath.Join(gitDir, "GIT-PATCH-STACK-ISOLATE-LAST-BRANCH")
}

// Isolate implements §4.7.6. With a range it requires a clean working copy,
// force-updates ps/tmp/isolate at the stack base, cherry-picks the range
// onto it without stamping, records the previously checked out branch, and
// checks out the isolate branch. Without a range (r == nil) it resumes:
// checks out the saved branch, deletes ps/tmp/isolate, and runs the cleanup
// hook.
func (e *Env) Isolate(ctx context.Context, r *patch.IndexRange) error {
	const op = "isolate"
	if r == nil {
		return e.isolateCleanup(ctx)
	}

	dirty, err := e.Repo.UncommittedChangesExist()
	if err != nil {
		return errs.Wrap(op, errs.KindWorkingCopy, "check working copy", err)
	}
	if dirty {
		return errs.New(op, errs.KindWorkingCopy, "working copy has uncommitted changes")
	}

	stack, err := patch.GetStack(e.Repo)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve stack", err)
	}
	patches, err := patch.GetList(e.Repo, stack)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "walk stack", err)
	}
	if err := patch.ValidateWithinStack(*r, patches); err != nil {
		return errs.Wrap(op, errs.KindRange, "validate range", err)
	}

	baseCommit, err := e.Repo.CommitByRev(stack.BaseRef())
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve base", err)
	}

	prevBranch, ok := e.Repo.CurrentBranch()
	if !ok {
		return errs.New(op, errs.KindWorkingCopy, "HEAD is detached; isolate requires a named branch checked out")
	}

	ref := plumbing.NewBranchReferenceName(isolateBranch)
	if err := e.Repo.SetRefForce(ref, baseCommit.Hash); err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "force-create isolate branch", err)
	}

	startOID := patches[r.Start].OID
	endOID := patches[r.EndOr()].OID
	engine := &cherrypick.Engine{Repo: e.Repo, Factory: e.Factory}
	if _, err := engine.Pick(ctx, cherrypick.Request{
		Root:          startOID,
		Leaf:          &endOID,
		DestRef:       ref,
		DestOldTarget: baseCommit.Hash,
		RootInclusive: true,
	}); err != nil {
		return errs.Wrap(op, errs.KindCherryPick, "cherry-pick range", err)
	}

	if err := os.WriteFile(isolateMarkerPath(e.Repo.GitDir()), []byte(prevBranch+"\n"), 0o644); err != nil {
		return errs.Wrap(op, errs.KindWorkingCopy, "record previous branch", err)
	}

	if err := gitfacade.Checkout(ctx, e.Exec, e.Repo.Root(), isolateBranch); err != nil {
		return errs.Wrap(op, errs.KindSubprocess, "checkout isolate branch", err)
	}

	remoteURL, _ := e.Repo.RemoteURL(e.Remote)
	if err := hooks.Run(ctx, e.Exec, e.Repo.Root(), e.Repo.GitDir(), "isolate_post_checkout", false, e.Remote, remoteURL); err != nil {
		// Roll back to the prior branch and clean up before surfacing the
		// hook failure, matching verify-isolation's recovery contract.
		_ = e.isolateCleanup(ctx)
		return errs.Wrap(op, errs.KindHook, "isolate_post_checkout", err)
	}
	return nil
}

func (e *Env) isolateCleanup(ctx context.Context) error {
	const op = "isolate"
	b, err := os.ReadFile(isolateMarkerPath(e.Repo.GitDir()))
	if err != nil {
		return errs.Wrap(op, errs.KindWorkingCopy, "read isolate marker", err)
	}
	prevBranch := strings.TrimSpace(string(b))
	if prevBranch == "" {
		return errs.New(op, errs.KindWorkingCopy, "isolate marker is empty")
	}

	if err := gitfacade.Checkout(ctx, e.Exec, e.Repo.Root(), prevBranch); err != nil {
		return errs.Wrap(op, errs.KindSubprocess, "checkout previous branch", err)
	}
	if err := e.Repo.DeleteLocalBranch(isolateBranch); err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "delete isolate branch", err)
	}
	if err := os.Remove(isolateMarkerPath(e.Repo.GitDir())); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(op, errs.KindWorkingCopy, "remove isolate marker", err)
	}

	if err := hooks.Run(ctx, e.Exec, e.Repo.Root(), e.Repo.GitDir(), "isolate_post_cleanup", false); err != nil {
		return errs.Wrap(op, errs.KindHook, "isolate_post_cleanup", err)
	}
	return nil
}

// VerifyIsolation cherry-picks range onto a scratch branch and immediately
// tears it back down, confirming the range applies cleanly in isolation
// without leaving any lasting change to the working copy.
func (e *Env) VerifyIsolation(ctx context.Context, r patch.IndexRange) error {
	if err := e.Isolate(ctx, &r); err != nil {
		return fmt.Errorf("verify-isolation: %w", err)
	}
	if err := e.Isolate(ctx, nil); err != nil {
		return fmt.Errorf("verify-isolation cleanup: %w", err)
	}
	return nil
}
