package ops

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"

	"github.com/patchwork-dev/git-ps/internal/cherrypick"
	"github.com/patchwork-dev/git-ps/internal/errs"
	"github.com/patchwork-dev/git-ps/internal/gitfacade"
	"github.com/patchwork-dev/git-ps/internal/patch"
	"github.com/patchwork-dev/git-ps/internal/state"
)

// projectionResult is what the shared projection core produces: the
// destination branch name and the new tip reached by cherry-picking the
// range onto it.
type projectionResult struct {
	BranchName string
	NewTip     gitfacade.Hash
	Patches    []patch.ListPatch
	Stack      *patch.Stack
}

// projectRange implements §4.7.3 steps 1-6: stamp identities, validate the
// range, resolve the destination branch name, force-create it at the
// stack base, cherry-pick the range onto it, and force-push it when
// branch.push_to_remote is set. Shared by Branch, RequestReview, and
// Integrate; Append cherry-picks onto an existing branch tip itself.
func (e *Env) projectRange(ctx context.Context, op string, r patch.IndexRange, givenName string) (*projectionResult, error) {
	stack, err := patch.GetStack(e.Repo)
	if err != nil {
		return nil, errs.Wrap(op, errs.KindRepoShape, "resolve stack", err)
	}

	sign := e.Repo.GitConfigBool("commit", "gpgsign", false)
	if _, err := patch.AddPatchIDs(ctx, e.Repo, e.Factory, stack, sign); err != nil {
		return nil, errs.Wrap(op, errs.KindIdentity, "stamp identities", err)
	}

	patches, err := patch.GetList(e.Repo, stack)
	if err != nil {
		return nil, errs.Wrap(op, errs.KindRepoShape, "walk stack", err)
	}
	if err := patch.ValidateWithinStack(r, patches); err != nil {
		return nil, errs.Wrap(op, errs.KindRange, "validate range", err)
	}

	baseCommit, err := e.Repo.CommitByRev(stack.BaseRef())
	if err != nil {
		return nil, errs.Wrap(op, errs.KindRepoShape, "resolve base", err)
	}

	info, err := state.Reconcile(e.Repo, baseCommit.Hash, stack.HeadBranch)
	if err != nil {
		return nil, errs.Wrap(op, errs.KindRepoShape, "reconcile state", err)
	}

	branchName, err := resolveBranchName(patches, info, r, givenName)
	if err != nil {
		return nil, errs.Wrap(op, errs.KindBranchAssoc, "resolve branch name", err)
	}

	ref := plumbing.NewBranchReferenceName(branchName)
	if err := e.Repo.SetRefForce(ref, baseCommit.Hash); err != nil {
		return nil, errs.Wrap(op, errs.KindRepoShape, "force-create destination branch", err)
	}

	startOID := patches[r.Start].OID
	endOID := patches[r.EndOr()].OID

	engine := &cherrypick.Engine{Repo: e.Repo, Factory: e.Factory}
	newTip, err := engine.Pick(ctx, cherrypick.Request{
		Root:             startOID,
		Leaf:             &endOID,
		DestRef:          ref,
		DestOldTarget:    baseCommit.Hash,
		CommitterOffsetS: 1,
		RootInclusive:    true,
		Sign:             sign,
	})
	if err != nil {
		return nil, errs.Wrap(op, errs.KindCherryPick, "cherry-pick range", err)
	}
	if newTip == nil {
		return nil, errs.New(op, errs.KindCherryPick, "no commits cherry-picked, expected at least one")
	}

	if e.Config.Branch.PushToRemote {
		if err := gitfacade.Push(ctx, e.Exec, e.Repo.Root(), true, e.Remote, string(ref), string(ref)); err != nil {
			return nil, errs.Wrap(op, errs.KindSubprocess, "push destination branch", err)
		}
	}

	return &projectionResult{BranchName: branchName, NewTip: *newTip, Patches: patches, Stack: stack}, nil
}

// resolveBranchName implements the projection's branch-name resolution
// order: user-supplied name, else the range's sole associated branch, else
// (single patch, no association) a generated ps/rr/<slug>, else an
// ambiguity/requires-name error.
func resolveBranchName(patches []patch.ListPatch, info map[uuid.UUID]*state.PatchGitInfo, r patch.IndexRange, givenName string) (string, error) {
	if givenName != "" {
		return givenName, nil
	}

	names := patch.UniqueBranchNames(patches, info, r.Start, r.End)
	switch len(names) {
	case 0:
		if r.End == nil {
			p := patches[r.Start]
			return patch.GenerateRRBranchName(p.Summary), nil
		}
		return "", fmt.Errorf("patch series requires an explicit branch name (-n)")
	case 1:
		return names[0], nil
	default:
		return "", fmt.Errorf("associated branch is ambiguous: %v", names)
	}
}

// Branch projects [start..=end?] to a disposable topic branch, per §4.7.3.
func (e *Env) Branch(ctx context.Context, r patch.IndexRange, givenName string) (string, error) {
	res, err := e.projectRange(ctx, "branch", r, givenName)
	if err != nil {
		return "", err
	}
	return res.BranchName, nil
}
