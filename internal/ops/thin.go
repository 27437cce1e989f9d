package ops

import (
	"context"
	"fmt"

	"github.com/patchwork-dev/git-ps/internal/errs"
	"github.com/patchwork-dev/git-ps/internal/gitfacade"
	"github.com/patchwork-dev/git-ps/internal/patch"
)

// Show renders "git show --pretty=raw <start>^...<end>" for a range,
// or a single commit's show when the range is a single index.
func (e *Env) Show(ctx context.Context, r patch.IndexRange) error {
	const op = "show"
	stack, err := patch.GetStack(e.Repo)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve stack", err)
	}
	patches, err := patch.GetList(e.Repo, stack)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "walk stack", err)
	}
	if err := patch.ValidateWithinStack(r, patches); err != nil {
		return errs.Wrap(op, errs.KindRange, "validate range", err)
	}

	start := patches[r.Start].OID.String()
	end := patches[r.EndOr()].OID.String()
	arg := fmt.Sprintf("%s^...%s", start, end)
	if err := e.Exec.Run(ctx, e.Repo.Root(), "git", "show", "--pretty=raw", arg); err != nil {
		return errs.Wrap(op, errs.KindSubprocess, "git show", err)
	}
	return nil
}

// Sha prints the OID of the indexed patch, optionally without a trailing
// newline.
func (e *Env) Sha(ctx context.Context, idx uint64, excludeNewline bool) error {
	const op = "sha"
	stack, err := patch.GetStack(e.Repo)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve stack", err)
	}
	patches, err := patch.GetList(e.Repo, stack)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "walk stack", err)
	}
	if idx >= uint64(len(patches)) {
		return errs.New(op, errs.KindRange, fmt.Sprintf("index %d out of bounds", idx))
	}
	if excludeNewline {
		fmt.Fprint(e.Stdout, patches[idx].OID.String())
	} else {
		fmt.Fprintln(e.Stdout, patches[idx].OID.String())
	}
	return nil
}

// ID stamps identities on the whole stack.
func (e *Env) ID(ctx context.Context) error {
	const op = "id"
	stack, err := patch.GetStack(e.Repo)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve stack", err)
	}
	sign := e.Repo.GitConfigBool("commit", "gpgsign", false)
	if _, err := patch.AddPatchIDs(ctx, e.Repo, e.Factory, stack, sign); err != nil {
		return errs.Wrap(op, errs.KindIdentity, "stamp identities", err)
	}
	return nil
}

// Status wraps "git status".
func (e *Env) Status(ctx context.Context) error {
	return e.runGit(ctx, "status", "status")
}

// Log wraps a styled "git log".
func (e *Env) Log(ctx context.Context) error {
	return e.runGit(ctx, "log", "log", "--oneline", "--decorate", "--graph")
}

// Add wraps "git add" with the subset of pass-through flags the spec names.
func (e *Env) Add(ctx context.Context, interactive, patchMode, edit, all bool, files []string) error {
	args := []string{"add"}
	if interactive {
		args = append(args, "-i")
	}
	if patchMode {
		args = append(args, "-p")
	}
	if edit {
		args = append(args, "-e")
	}
	if all {
		args = append(args, "-A")
	}
	args = append(args, files...)
	return e.runGit(ctx, "add", args...)
}

// Unstage wraps "git reset -- <files>".
func (e *Env) Unstage(ctx context.Context, files []string) error {
	args := append([]string{"reset", "--"}, files...)
	return e.runGit(ctx, "unstage", args...)
}

// CreatePatch wraps "git commit -v".
func (e *Env) CreatePatch(ctx context.Context) error {
	return e.runGit(ctx, "create-patch", "commit", "-v")
}

// AmendPatch wraps "git commit --amend", optionally with --no-edit.
func (e *Env) AmendPatch(ctx context.Context, noEdit bool) error {
	args := []string{"commit", "--amend"}
	if noEdit {
		args = append(args, "--no-edit")
	}
	return e.runGit(ctx, "amend-patch", args...)
}

// Checkout detaches HEAD at the indexed patch.
func (e *Env) Checkout(ctx context.Context, idx uint64) error {
	const op = "checkout"
	stack, err := patch.GetStack(e.Repo)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve stack", err)
	}
	patches, err := patch.GetList(e.Repo, stack)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "walk stack", err)
	}
	if idx >= uint64(len(patches)) {
		return errs.New(op, errs.KindRange, fmt.Sprintf("index %d out of bounds", idx))
	}
	if err := gitfacade.Checkout(ctx, e.Exec, e.Repo.Root(), patches[idx].OID.String()); err != nil {
		return errs.Wrap(op, errs.KindSubprocess, "git checkout", err)
	}
	return nil
}

// Push pushes a local branch to its configured upstream.
func (e *Env) Push(ctx context.Context, branch string) error {
	const op = "push"
	remote, upstreamShort, err := e.Repo.BranchUpstream(branch)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve upstream", err)
	}
	if err := gitfacade.Push(ctx, e.Exec, e.Repo.Root(), false, remote, "refs/heads/"+branch, "refs/heads/"+upstreamShort); err != nil {
		return errs.Wrap(op, errs.KindSubprocess, "git push", err)
	}
	return nil
}

// Rebase runs interactive rebase against the stack's upstream, or
// continues a paused one.
func (e *Env) Rebase(ctx context.Context, cont bool) error {
	const op = "rebase"
	if cont {
		if err := gitfacade.RebaseContinue(ctx, e.Exec, e.Repo.Root()); err != nil {
			return errs.Wrap(op, errs.KindSubprocess, "git rebase --continue", err)
		}
		return nil
	}
	stack, err := patch.GetStack(e.Repo)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve stack", err)
	}
	if err := gitfacade.RebaseInteractive(ctx, e.Exec, e.Repo.Root(), stack.BaseRef(), stack.HeadBranch); err != nil {
		return errs.Wrap(op, errs.KindSubprocess, "git rebase -i", err)
	}
	return nil
}

func (e *Env) runGit(ctx context.Context, op string, args ...string) error {
	if err := e.Exec.Run(ctx, e.Repo.Root(), "git", args...); err != nil {
		return errs.Wrap(op, errs.KindSubprocess, "git "+args[0], err)
	}
	return nil
}
