package ops

import (
	"context"
	"fmt"

	"github.com/patchwork-dev/git-ps/internal/errs"
	"github.com/patchwork-dev/git-ps/internal/gitfacade"
	"github.com/patchwork-dev/git-ps/internal/patch"
)

// Fetch refreshes the remote view and, if configured, lists patches new
// upstream since the last sync.
func (e *Env) Fetch(ctx context.Context) error {
	const op = "fetch"
	rc := e.startReleaseCheck()
	defer e.joinReleaseCheck(rc)

	stack, err := patch.GetStack(e.Repo)
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve stack", err)
	}
	before, err := e.Repo.CommitByRev(stack.BaseRef())
	if err != nil {
		return errs.Wrap(op, errs.KindRepoShape, "resolve base", err)
	}

	if err := gitfacade.Fetch(ctx, e.Exec, e.Repo.Root()); err != nil {
		return errs.Wrap(op, errs.KindSubprocess, "git fetch", err)
	}

	if e.Config.Fetch.ShowUpstreamPatchesAfterFetch {
		after, err := e.Repo.CommitByRev(stack.BaseRef())
		if err == nil && after.Hash != before.Hash {
			commits, err := e.Repo.RevWalk(before.Hash, after.Hash, gitfacade.SortTopoOldestFirst)
			if err == nil {
				for _, c := range commits {
					fmt.Fprintf(e.Stdout, "%s %s\n", abbrev(c.Hash.String()), gitfacade.Summary(c))
				}
			}
		}
	}
	return nil
}

// Pull fetches then rebases, and lists the stack afterward if configured.
func (e *Env) Pull(ctx context.Context) error {
	const op = "pull"
	if err := e.Fetch(ctx); err != nil {
		return err
	}
	if err := e.Rebase(ctx, false); err != nil {
		return errs.Wrap(op, errs.KindSubprocess, "rebase", err)
	}
	if e.Config.Pull.ShowListPostPull {
		if err := e.List(ctx); err != nil {
			return err
		}
	}
	return nil
}
