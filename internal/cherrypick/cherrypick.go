// Package cherrypick replays a commit or an inclusive range onto a named
// destination reference, detecting merges and conflicts, optionally
// stamping missing identities, and offsetting committer timestamps to keep
// ordering stable under same-second writes. Line-for-line grounded on
// original_source/src/ps/private/cherry_picking.rs.
package cherrypick

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"

	"github.com/patchwork-dev/git-ps/internal/commitfactory"
	"github.com/patchwork-dev/git-ps/internal/gitfacade"
	"github.com/patchwork-dev/git-ps/internal/patch"
)

// ErrMergeCommit is returned when a source commit in the range has more
// than one parent.
type ErrMergeCommit struct{ OID gitfacade.Hash }

func (e *ErrMergeCommit) Error() string {
	return fmt.Sprintf("merge commit detected in range at %s; flatten the stack with an interactive rebase first", e.OID)
}

// ErrConflicts is returned when the three-way tree merge for a source
// commit cannot be resolved automatically.
type ErrConflicts struct {
	Src, Dst gitfacade.Hash
	Paths    []string
}

func (e *ErrConflicts) Error() string {
	return fmt.Sprintf("cherry-pick %s onto %s conflicts in: %v", e.Src, e.Dst, e.Paths)
}

// Request configures one cherry-pick invocation.
type Request struct {
	Root             gitfacade.Hash  // range start; excluded unless RootInclusive or Leaf is nil
	Leaf             *gitfacade.Hash // nil: pick only Root; else pick Root..Leaf
	DestRef          plumbing.ReferenceName
	DestOldTarget    gitfacade.Hash
	CommitterOffsetS int64
	AddMissingIDs    bool
	RootInclusive    bool
	Sign             bool
}

// Engine wires the façade and commit factory the cherry-pick algorithm
// needs.
type Engine struct {
	Repo    *gitfacade.Repo
	Factory *commitfactory.Factory
}

// Pick performs the cherry-pick and returns the new destination tip, or
// nil if nothing was picked (empty range).
func (e *Engine) Pick(ctx context.Context, req Request) (*gitfacade.Hash, error) {
	hiddenBoundary := req.Root
	if req.RootInclusive || req.Leaf == nil {
		rootCommit, err := e.Repo.Raw().CommitObject(req.Root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", req.Root, err)
		}
		if rootCommit.NumParents() == 0 {
			return nil, fmt.Errorf("root %s has no parent to shift the hidden boundary to", req.Root)
		}
		hiddenBoundary = rootCommit.ParentHashes[0]
	}

	leaf := req.Root
	if req.Leaf != nil {
		leaf = *req.Leaf
	}

	commits, err := e.Repo.RevWalk(hiddenBoundary, leaf, gitfacade.SortTopoOldestFirst)
	if err != nil {
		if errors.Is(err, gitfacade.ErrMergeCommit) {
			// RevWalk stops at the first merge commit; find it again so the
			// error names it.
			for cur := leaf; cur != hiddenBoundary; {
				c, cerr := e.Repo.Raw().CommitObject(cur)
				if cerr != nil || c.NumParents() == 0 {
					break
				}
				if c.NumParents() > 1 {
					return nil, &ErrMergeCommit{OID: c.Hash}
				}
				cur = c.ParentHashes[0]
			}
		}
		return nil, err
	}
	if len(commits) == 0 {
		return nil, nil
	}

	destTip := req.DestOldTarget
	offset := req.CommitterOffsetS
	if offset == 0 {
		offset = 1
	}

	var lastPicked gitfacade.Hash
	for _, src := range commits {
		if err := gitfacade.RequireSingleParent(src); err != nil {
			return nil, &ErrMergeCommit{OID: src.Hash}
		}

		parentCommit, err := src.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("resolve parent of %s: %w", src.Hash, err)
		}
		parentTree, err := parentCommit.Tree()
		if err != nil {
			return nil, err
		}
		srcTree, err := src.Tree()
		if err != nil {
			return nil, err
		}

		destCommit, err := e.Repo.Raw().CommitObject(destTip)
		if err != nil {
			return nil, fmt.Errorf("resolve destination tip %s: %w", destTip, err)
		}
		destTree, err := destCommit.Tree()
		if err != nil {
			return nil, err
		}

		mergedTreeHash, mergeErr := e.Repo.MergeTrees(parentTree, destTree, srcTree)
		if mergeErr != nil {
			var conflicts *gitfacade.MergeTreesConflicts
			if errors.As(mergeErr, &conflicts) {
				return nil, &ErrConflicts{Src: src.Hash, Dst: destTip, Paths: conflicts.Paths}
			}
			return nil, fmt.Errorf("merge trees: %w", mergeErr)
		}

		message := src.Message
		if req.AddMissingIDs {
			if id := patch.ExtractID(message); id == nil {
				message = patch.AppendID(message, uuid.New())
			}
		}

		committer, err := e.Repo.DefaultSignature()
		if err != nil {
			committer = src.Committer
			committer.When = time.Now()
		}
		committer.When = commitfactory.NowOffset(committer.When, offset)
		offset++

		newHash, err := e.Factory.CreateLoose(ctx, commitfactory.Request{
			Author:    src.Author,
			Committer: committer,
			Message:   message,
			Tree:      mergedTreeHash,
			Parents:   []gitfacade.Hash{destTip},
			Sign:      req.Sign,
		})
		if err != nil {
			return nil, fmt.Errorf("create cherry-picked commit for %s: %w", src.Hash, err)
		}
		destTip = newHash
		lastPicked = newHash
	}

	if err := e.Repo.UpdateRefCAS(req.DestRef, destTip, req.DestOldTarget); err != nil {
		return nil, fmt.Errorf("update %s: %w", req.DestRef, err)
	}
	return &lastPicked, nil
}
