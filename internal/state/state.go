// Package state implements state reconciliation (C6): walking every local
// branch reachable from the stack base to build a UUID -> branches mapping
// used to answer "does this patch have a branch", "has it drifted", and
// "is it behind" — without any persisted sidecar file. Grounded on
// original_source/src/ps/private/state_computation.rs, with the teacher's
// pending.go worker-pool pattern used to overlap the per-branch walks.
package state

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/patchwork-dev/git-ps/internal/gitfacade"
)

// PatchInfo is the per-patch projection observed on one branch: identity
// plus the diff-hash at which it was observed there.
type PatchInfo struct {
	PatchID      uuid.UUID
	CommitDiffID string
}

// UpstreamBranchInfo is the projection of a local branch's upstream.
type UpstreamBranchInfo struct {
	Name        string
	Reference   string
	Patches     []PatchInfo
	CommitCount int
}

// BranchInfo is one local branch's projection.
type BranchInfo struct {
	Name        string
	Reference   string
	Patches     []PatchInfo
	CommitCount int
	Upstream    *UpstreamBranchInfo
}

// PatchGitInfo aggregates, for one patch UUID, every branch it was
// observed on.
type PatchGitInfo struct {
	Branches []BranchInfo
}

// HasBranch reports whether the patch appears on any branch.
func (g *PatchGitInfo) HasBranch() bool { return len(g.Branches) > 0 }

// Ambiguous reports whether the patch appears on more than one branch.
func (g *PatchGitInfo) Ambiguous() bool { return len(g.Branches) > 1 }

// Sole returns the single branch a patch is associated with, and whether
// there was exactly one.
func (g *PatchGitInfo) Sole() (BranchInfo, bool) {
	if len(g.Branches) != 1 {
		return BranchInfo{}, false
	}
	return g.Branches[0], true
}

func patchInfoOf(b BranchInfo, id uuid.UUID) (PatchInfo, bool) {
	for _, p := range b.Patches {
		if p.PatchID == id {
			return p, true
		}
	}
	return PatchInfo{}, false
}

// DriftLocal reports whether patch id's diff-hash on branch b differs from
// the stack's current diff-hash currentDiffID.
func DriftLocal(b BranchInfo, id uuid.UUID, currentDiffID string) bool {
	pi, ok := patchInfoOf(b, id)
	if !ok {
		return true
	}
	return pi.CommitDiffID != currentDiffID
}

// DriftRemote is DriftLocal against b's upstream projection; false if there
// is no upstream.
func DriftRemote(b BranchInfo, id uuid.UUID, currentDiffID string) bool {
	if b.Upstream == nil {
		return false
	}
	for _, p := range b.Upstream.Patches {
		if p.PatchID == id {
			return p.CommitDiffID != currentDiffID
		}
	}
	return true
}

// Behind reports whether branch b carries commits unaccounted for by
// identities (len(Patches) < CommitCount).
func Behind(b BranchInfo) bool { return len(b.Patches) < b.CommitCount }

// Reconcile walks every local branch except headBranch, computing each
// branch's (and its upstream's, if any) patch projection from
// merge-base(branch, base) to branch head, and aggregates the result by
// patch UUID.
func Reconcile(repo *gitfacade.Repo, base gitfacade.Hash, headBranch string) (map[uuid.UUID]*PatchGitInfo, error) {
	names, err := repo.LocalBranches()
	if err != nil {
		return nil, fmt.Errorf("list local branches: %w", err)
	}

	var targets []string
	for _, n := range names {
		if n != headBranch {
			targets = append(targets, n)
		}
	}

	type result struct {
		info BranchInfo
		err  error
	}
	work := make(chan string, len(targets))
	results := make(chan result, len(targets))
	for _, n := range targets {
		work <- n
	}
	close(work)

	workers := len(targets)
	if workers > 10 {
		workers = 10
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range work {
				info, err := walkBranch(repo, base, name)
				results <- result{info: info, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	agg := map[uuid.UUID]*PatchGitInfo{}
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		for _, p := range res.info.Patches {
			g, ok := agg[p.PatchID]
			if !ok {
				g = &PatchGitInfo{}
				agg[p.PatchID] = g
			}
			g.Branches = append(g.Branches, res.info)
		}
	}
	return agg, nil
}

func walkBranch(repo *gitfacade.Repo, base gitfacade.Hash, name string) (BranchInfo, error) {
	head, err := repo.BranchHash(name)
	if err != nil {
		return BranchInfo{}, fmt.Errorf("resolve %s: %w", name, err)
	}
	mergeBase, err := repo.CommonAncestor(head, base)
	if err != nil {
		return BranchInfo{}, fmt.Errorf("merge-base(%s, base): %w", name, err)
	}

	patches, count, err := walkProjection(repo, mergeBase, head)
	if err != nil {
		return BranchInfo{}, fmt.Errorf("walk %s: %w", name, err)
	}

	info := BranchInfo{
		Name:        name,
		Reference:   "refs/heads/" + name,
		Patches:     patches,
		CommitCount: count,
	}

	if remote, upstreamShort, err := repo.BranchUpstream(name); err == nil && remote != "" {
		upstreamRef := remote + "/" + upstreamShort
		if uHead, err := repo.CommitByRev(upstreamRef); err == nil {
			uMergeBase, err := repo.CommonAncestor(uHead.Hash, base)
			if err == nil {
				uPatches, uCount, err := walkProjection(repo, uMergeBase, uHead.Hash)
				if err == nil {
					info.Upstream = &UpstreamBranchInfo{
						Name:        upstreamShort,
						Reference:   "refs/remotes/" + upstreamRef,
						Patches:     uPatches,
						CommitCount: uCount,
					}
				}
			}
		}
	}

	return info, nil
}

func walkProjection(repo *gitfacade.Repo, exclusiveLow, inclusiveHigh gitfacade.Hash) ([]PatchInfo, int, error) {
	commits, err := repo.RevWalk(exclusiveLow, inclusiveHigh, gitfacade.SortTopoOldestFirst)
	if err != nil {
		return nil, 0, err
	}
	var patches []PatchInfo
	for _, c := range commits {
		id := extractID(c.Message)
		if id == nil {
			continue
		}
		diffID, err := repo.CommitDiffPatchID(c)
		if err != nil {
			continue
		}
		patches = append(patches, PatchInfo{PatchID: *id, CommitDiffID: diffID})
	}
	return patches, len(commits), nil
}
