package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/patchwork-dev/git-ps/internal/errs"
	"github.com/patchwork-dev/git-ps/internal/hooks"
	"github.com/patchwork-dev/git-ps/internal/patch"
	"github.com/patchwork-dev/git-ps/internal/state"
)

// List renders the stack as a table: index, abbreviated oid, summary, and
// a branch/state block, per §4.7.1.
func (e *Env) List(ctx context.Context) error {
	const op = "list"
	rc := e.startReleaseCheck()
	defer e.joinReleaseCheck(rc)

	stack, err := patch.GetStack(e.Repo)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve stack", err)
	}
	patches, err := patch.GetList(e.Repo, stack)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "walk stack", err)
	}

	baseHash, err := e.Repo.CommitByRev(stack.BaseRef())
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve base", err)
	}
	info, err := state.Reconcile(e.Repo, baseHash.Hash, stack.HeadBranch)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "reconcile state", err)
	}

	order := make([]patch.ListPatch, len(patches))
	copy(order, patches)
	if e.Config.List.ReverseOrder {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}

	for _, p := range order {
		row := fmt.Sprintf("%-4d %-7s %-50s", p.Index, abbrev(p.OID.String()), truncate(p.Summary, 50))

		var branchBlocks []string
		if p.ID != nil {
			if gi, ok := info[*p.ID]; ok {
				var diffID string
				if commit, err := e.Repo.Raw().CommitObject(p.OID); err == nil {
					diffID, _ = e.Repo.CommitDiffPatchID(commit)
				}
				for _, b := range gi.Branches {
					s := stateString(b, *p.ID, diffID)
					block := fmt.Sprintf("%s(%s)", b.Name, s)
					if e.Config.List.AddExtraPatchInfo {
						extra, err := hookExtraInfo(ctx, e, p, s)
						if err == nil && extra != "" {
							block += " " + padTrunc(extra, int(e.Config.List.ExtraPatchInfoLength))
						}
					}
					branchBlocks = append(branchBlocks, block)
				}
			}
		}
		if len(branchBlocks) > 0 {
			row += " ( " + strings.Join(branchBlocks, ", ") + " )"
		}

		fmt.Fprintln(e.Stdout, row)
	}
	return nil
}

// stateString builds the per-branch state flags, reusing patch.IsBehind (the
// same predicate available to integrate's caught-up check) against the
// patch's live diff-hash rather than a value pulled out of the branch's own
// projection.
func stateString(b state.BranchInfo, id uuid.UUID, diffID string) string {
	var sb strings.Builder
	sb.WriteByte('l')
	target := patch.ListPatch{ID: &id}
	if patch.IsBehind(b.Patches, target, diffID) {
		sb.WriteByte('*')
	}
	if state.Behind(b) {
		sb.WriteByte('!')
	}
	if b.Upstream != nil {
		sb.WriteByte('r')
		if patch.IsBehind(b.Upstream.Patches, target, diffID) {
			sb.WriteByte('*')
		}
		if len(b.Upstream.Patches) < b.Upstream.CommitCount {
			sb.WriteByte('!')
		}
	}
	return sb.String()
}

func hookExtraInfo(ctx context.Context, e *Env, p patch.ListPatch, stateStr string) (string, error) {
	path, err := hooks.Find(e.Repo.Root(), e.Repo.GitDir(), "list_additional_information")
	if err != nil {
		return "", err
	}
	out, _, err := e.Exec.Output(ctx, e.Repo.Root(), path,
		fmt.Sprintf("%d", p.Index), stateStr, p.OID.String(), p.Summary)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(strings.TrimSpace(out), "\n", " "), nil
}

func abbrev(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func padTrunc(s string, n int) string {
	if n <= 0 {
		return s
	}
	if len(s) > n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}
