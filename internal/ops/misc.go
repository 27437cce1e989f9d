package ops

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/patchwork-dev/git-ps/internal/cherrypick"
	"github.com/patchwork-dev/git-ps/internal/errs"
	"github.com/patchwork-dev/git-ps/internal/gitfacade"
	"github.com/patchwork-dev/git-ps/internal/patch"
)

// Append implements §4.7.7: force-resolves branch, stamps identities on the
// stack, then cherry-picks the range onto the branch's current tip without
// further stamping.
func (e *Env) Append(ctx context.Context, r patch.IndexRange, branch string) error {
	const op = "append"

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

	tip, err := e.Repo.BranchHash(branch)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve destination branch", err)
	}

	startOID := patches[r.Start].OID
	endOID := patches[r.EndOr()].OID
	ref := plumbing.NewBranchReferenceName(branch)

	engine := &cherrypick.Engine{Repo: e.Repo, Factory: e.Factory}
	if _, err := engine.Pick(ctx, cherrypick.Request{
		Root:             startOID,
		Leaf:             &endOID,
		DestRef:          ref,
		DestOldTarget:    tip,
		CommitterOffsetS: 1,
		RootInclusive:    true,
		Sign:             sign,
	}); err != nil {
		return errs.Wrap(op, errs.KindCherryPick, "cherry-pick range", err)
	}
	return nil
}

// BackupStack force-pushes the current stack branch to <remote>/<branch>.
func (e *Env) BackupStack(ctx context.Context, branch string) error {
	const op = "backup-stack"
	stack, err := patch.GetStack(e.Repo)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve stack", err)
	}
	srcRef := "refs/heads/" + stack.HeadBranch
	dstRef := "refs/heads/" + branch
	if err := gitfacade.Push(ctx, e.Exec, e.Repo.Root(), true, e.Remote, srcRef, dstRef); err != nil {
		return errs.Wrap(op, errs.KindSubprocess, "push backup branch", err)
	}
	return nil
}
