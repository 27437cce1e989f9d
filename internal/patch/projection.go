package patch

import (
	"github.com/google/uuid"

	"github.com/patchwork-dev/git-ps/internal/state"
)

// UniqueBranchNames returns, in first-seen order, the set of branch names
// on which any patch in [start, end] appears, per the aggregated
// UUID->PatchGitInfo projection from state reconciliation. Mirrors
// patch_series_unique_branch_names.
func UniqueBranchNames(patches []ListPatch, info map[uuid.UUID]*state.PatchGitInfo, start uint64, end *uint64) []string {
	hi := start
	if end != nil {
		hi = *end
	}

	seen := map[string]bool{}
	var names []string
	for i := start; i <= hi; i++ {
		if i >= uint64(len(patches)) {
			break
		}
		p := patches[i]
		if p.ID == nil {
			continue
		}
		gi, ok := info[*p.ID]
		if !ok {
			continue
		}
		for _, b := range gi.Branches {
			if !seen[b.Name] {
				seen[b.Name] = true
				names = append(names, b.Name)
			}
		}
	}
	return names
}

// IsBehind reports whether branchPatches fails to account for p: true when
// p has no identity, when p's identity is absent from branchPatches, or when
// the diff-hash recorded there differs from diffID. list uses it for the
// "*" drift flags (original_source's commit_is_behind).
func IsBehind(branchPatches []state.PatchInfo, p ListPatch, diffID string) bool {
	if p.ID == nil {
		return true
	}
	for _, bp := range branchPatches {
		if bp.PatchID == *p.ID {
			return bp.CommitDiffID != diffID
		}
	}
	return true
}
