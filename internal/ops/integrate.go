package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/patchwork-dev/git-ps/internal/errs"
	"github.com/patchwork-dev/git-ps/internal/gitfacade"
	"github.com/patchwork-dev/git-ps/internal/hooks"
	"github.com/patchwork-dev/git-ps/internal/patch"
	"github.com/patchwork-dev/git-ps/internal/state"
)

// IntegrateOptions configures one integrate invocation (§4.7.5).
type IntegrateOptions struct {
	Force      bool
	KeepBranch bool
	BranchName string
}

// Integrate runs the ten-step promotion protocol: validate and stamp,
// optionally prompt for reassurance, refresh the remote view, verify the
// branch is caught up with the stack (unless Force), run the
// integrate_verify hook, project the range, optionally verify isolation,
// publish to the stack's upstream, run integrate_post_push, clean up the
// disposable branch unless KeepBranch, and optionally pull.
func (e *Env) Integrate(ctx context.Context, r patch.IndexRange, opts IntegrateOptions) error {
	const op = "integrate"

	stack, err := patch.GetStack(e.Repo)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve stack", err)
	}
	sign := e.Repo.GitConfigBool("commit", "gpgsign", false)
	if _, err := patch.AddPatchIDs(ctx, e.Repo, e.Factory, stack, sign); err != nil {
		return errs.Wrap(op, errs.KindIdentity, "stamp identities", err)
	}
	patches, err := patch.GetList(e.Repo, stack)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "walk stack", err)
	}
	if err := patch.ValidateWithinStack(r, patches); err != nil {
		return errs.Wrap(op, errs.KindRange, "validate range", err)
	}

	if e.Config.Integrate.PromptForReassurance {
		if err := e.Show(ctx, r); err != nil {
			return errs.Wrap(op, errs.KindSubprocess, "show range", err)
		}
		if err := e.confirm("Are you sure you want to integrate this range? (y/N) "); err != nil {
			return errs.Wrap(op, errs.KindWorkingCopy, "reassurance declined", err)
		}
	}

	if err := gitfacade.Fetch(ctx, e.Exec, e.Repo.Root()); err != nil {
		return errs.Wrap(op, errs.KindSubprocess, "ext_fetch", err)
	}

	baseCommit, err := e.Repo.CommitByRev(stack.BaseRef())
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve base", err)
	}
	info, err := state.Reconcile(e.Repo, baseCommit.Hash, stack.HeadBranch)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "reconcile state", err)
	}

	branchName, err := resolveBranchName(patches, info, r, opts.BranchName)
	if err != nil {
		return errs.Wrap(op, errs.KindBranchAssoc, "resolve branch name", err)
	}

	if !opts.Force {
		if err := e.verifyCaughtUp(patches, info, r, branchName); err != nil {
			return errs.Wrap(op, errs.KindDrift, "verify branch caught up", err)
		}

		remoteURL, _ := e.Repo.RemoteURL(e.Remote)
		if err := hooks.Run(ctx, e.Exec, e.Repo.Root(), e.Repo.GitDir(), "integrate_verify", false,
			branchName, stack.BaseBranch, e.Remote, remoteURL); err != nil {
			return errs.Wrap(op, errs.KindHook, "integrate_verify", err)
		}
	}

	res, err := e.projectRange(ctx, op, r, branchName)
	if err != nil {
		return err
	}

	if e.Config.Integrate.VerifyIsolation {
		if err := e.VerifyIsolation(ctx, r); err != nil {
			return errs.Wrap(op, errs.KindCherryPick, "verify isolation", err)
		}
	}

	srcRef := "refs/heads/" + branchName
	dstRef := "refs/heads/" + stack.BaseBranch
	if err := gitfacade.Push(ctx, e.Exec, e.Repo.Root(), false, stack.BaseRemote, srcRef, dstRef); err != nil {
		return errs.Wrap(op, errs.KindSubprocess, "publish to stack upstream", err)
	}

	if err := hooks.Run(ctx, e.Exec, e.Repo.Root(), e.Repo.GitDir(), "integrate_post_push", false, res.NewTip.String()); err != nil {
		return errs.Wrap(op, errs.KindHook, "integrate_post_push", err)
	}

	if !opts.KeepBranch {
		if remote, upstreamShort, err := e.Repo.BranchUpstream(branchName); err == nil {
			_ = gitfacade.DeleteRemoteBranch(ctx, e.Exec, e.Repo.Root(), remote, upstreamShort)
		}
		if err := e.Repo.DeleteLocalBranch(branchName); err != nil {
			return errs.Wrap(op, errs.KindRepoShape, "delete disposable branch", err)
		}
	}

	if e.Config.Integrate.PullAfterIntegrate {
		if err := e.Pull(ctx); err != nil {
			return errs.Wrap(op, errs.KindSubprocess, "pull after integrate", err)
		}
	}

	return nil
}

// verifyCaughtUp enforces §4.7.5 step 4: the branch must exist and be the
// range's unique association, its upstream must exist, the upstream's
// commit count must equal the range length, and every position's UUID and
// diff-hash must match the upstream branch's recorded PatchInfo.
func (e *Env) verifyCaughtUp(patches []patch.ListPatch, info map[uuid.UUID]*state.PatchGitInfo, r patch.IndexRange, branchName string) error {
	rangeLen := int(r.EndOr()-r.Start) + 1

	var gi *state.PatchGitInfo
	p := patches[r.Start]
	if p.ID != nil {
		gi = info[*p.ID]
	}
	var branch *state.BranchInfo
	if gi != nil {
		for i := range gi.Branches {
			if gi.Branches[i].Name == branchName {
				branch = &gi.Branches[i]
				break
			}
		}
	}
	if branch == nil {
		return fmt.Errorf("branch %q is not associated with this range", branchName)
	}
	if branch.Upstream == nil {
		return fmt.Errorf("branch %q has no upstream", branchName)
	}
	if branch.Upstream.CommitCount != rangeLen {
		return fmt.Errorf("upstream commit count %d does not match range length %d", branch.Upstream.CommitCount, rangeLen)
	}

	for i := r.Start; i <= r.EndOr(); i++ {
		pos := int(i - r.Start)
		cur := patches[i]
		if cur.ID == nil {
			return fmt.Errorf("patch at index %d has no identity", i)
		}
		if pos >= len(branch.Upstream.Patches) {
			return fmt.Errorf("upstream branch is missing patch at position %d", pos)
		}
		up := branch.Upstream.Patches[pos]
		if up.PatchID != *cur.ID {
			return fmt.Errorf("upstream patch at position %d has a different identity", pos)
		}
		commit, err := e.Repo.Raw().CommitObject(cur.OID)
		if err != nil {
			return fmt.Errorf("resolve patch at index %d: %w", i, err)
		}
		diffID, err := e.Repo.CommitDiffPatchID(commit)
		if err != nil {
			return err
		}
		if up.CommitDiffID != diffID {
			return fmt.Errorf("patch at index %d has unpublished changes relative to upstream", i)
		}
	}
	return nil
}

func (e *Env) confirm(question string) error {
	if e.Prompt == nil {
		return nil
	}
	answer, err := e.Prompt(question)
	if err != nil {
		return err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer != "y" && answer != "yes" {
		return fmt.Errorf("aborted")
	}
	return nil
}
