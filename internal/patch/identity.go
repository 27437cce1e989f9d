package patch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"

	"github.com/patchwork-dev/git-ps/internal/commitfactory"
	"github.com/patchwork-dev/git-ps/internal/gitfacade"
)

// identityPlan is the output of planIdentities: which stack indices need a
// freshly minted UUID, keyed by index so executeIdentities can look them up
// while walking in order.
type identityPlan struct {
	needsID map[int]uuid.UUID
}

// planIdentities computes the set of indices needing stamping and the UUID
// to mint for each, without touching the repository. Separated from
// executeIdentities per the design notes' "pure pipeline" re-architecture:
// plan -> execute -> swap, each independently testable.
func planIdentities(patches []ListPatch) identityPlan {
	plan := identityPlan{needsID: map[int]uuid.UUID{}}
	for _, p := range patches {
		if p.ID == nil {
			plan.needsID[p.Index] = uuid.New()
		}
	}
	return plan
}

// executeIdentities walks the stack once, rewriting only the commits from
// the first id-less patch onward (earlier patches, already identified, are
// left byte-for-byte alone by simply not touching that portion of the
// rewrite — but since commits are immutable, "leaving alone" in practice
// means re-parenting later commits onto the untouched earlier chain).
// Returns the new stack-head tip.
func executeIdentities(
	ctx context.Context,
	repo *gitfacade.Repo,
	factory *commitfactory.Factory,
	patches []ListPatch,
	plan identityPlan,
	sign bool,
) (gitfacade.Hash, error) {
	if len(plan.needsID) == 0 {
		if len(patches) == 0 {
			return gitfacade.Hash{}, fmt.Errorf("empty stack")
		}
		return patches[len(patches)-1].OID, nil
	}

	firstIdx := len(patches)
	for idx := range plan.needsID {
		if idx < firstIdx {
			firstIdx = idx
		}
	}

	tip := patches[firstIdx].OID
	if firstIdx > 0 {
		tip = patches[firstIdx-1].OID
	} else {
		c, err := repo.Raw().CommitObject(patches[0].OID)
		if err != nil {
			return gitfacade.Hash{}, err
		}
		if c.NumParents() != 1 {
			return gitfacade.Hash{}, fmt.Errorf("patch %s has unexpected parent count", c.Hash)
		}
		tip = c.ParentHashes[0]
	}

	offsetSeconds := int64(1)
	for i := firstIdx; i < len(patches); i++ {
		src, err := repo.Raw().CommitObject(patches[i].OID)
		if err != nil {
			return gitfacade.Hash{}, err
		}
		if err := gitfacade.RequireSingleParent(src); err != nil {
			return gitfacade.Hash{}, err
		}

		message := src.Message
		if id, needs := plan.needsID[i]; needs {
			message = AppendID(message, id)
		}

		// The committer signature is refreshed to the current user/time on
		// every stamp, not copied from the commit being rewritten: this is a
		// re-commit by whoever is running git-ps right now, not the original
		// author replaying their own change.
		committer, err := repo.DefaultSignature()
		if err != nil {
			committer = src.Committer
			committer.When = time.Now()
		}
		committer.When = commitfactory.NowOffset(committer.When, offsetSeconds)
		offsetSeconds++

		req := commitfactory.Request{
			DestRef:   "", // caller (identity.go's AddPatchIDs) updates the branch ref itself
			Author:    src.Author,
			Committer: committer,
			Message:   message,
			Tree:      src.TreeHash,
			Parents:   []gitfacade.Hash{tip},
			Sign:      sign,
		}
		newHash, err := factory.CreateLoose(ctx, req)
		if err != nil {
			return gitfacade.Hash{}, fmt.Errorf("rewrite patch %d: %w", i, err)
		}
		tip = newHash
	}
	return tip, nil
}

// AddPatchIDs is the identity-injection protocol: walk the stack,
// stamp any patch lacking a ps-id trailer with a freshly minted UUID,
// and atomically advance the stack head branch to the new tip. Idempotent:
// a second invocation with no id-less patches is a no-op returning the
// current head unchanged.
func AddPatchIDs(ctx context.Context, repo *gitfacade.Repo, factory *commitfactory.Factory, stack *Stack, sign bool) (gitfacade.Hash, error) {
	patches, err := GetList(repo, stack)
	if err != nil {
		return gitfacade.Hash{}, err
	}
	if len(patches) == 0 {
		headHash, err := repo.BranchHash(stack.HeadBranch)
		return headHash, err
	}

	plan := planIdentities(patches)
	if len(plan.needsID) == 0 {
		return patches[len(patches)-1].OID, nil
	}

	newTip, err := executeIdentities(ctx, repo, factory, patches, plan, sign)
	if err != nil {
		return gitfacade.Hash{}, err
	}

	oldTip := patches[len(patches)-1].OID
	ref := plumbing.NewBranchReferenceName(stack.HeadBranch)
	if err := repo.UpdateRefCAS(ref, newTip, oldTip); err != nil {
		return gitfacade.Hash{}, fmt.Errorf("swap %s to new tip: %w", stack.HeadBranch, err)
	}
	return newTip, nil
}
