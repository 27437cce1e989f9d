package ops

import (
	"context"
	"fmt"

	"github.com/patchwork-dev/git-ps/internal/errs"
	"github.com/patchwork-dev/git-ps/internal/gitfacade"
	"github.com/patchwork-dev/git-ps/internal/hooks"
	"github.com/patchwork-dev/git-ps/internal/patch"
)

// RequestReview implements §4.7.4 for a single range: optionally verifies
// isolation first, projects the range exactly as Branch does, always
// force-pushes to the remote under the branch's associated upstream name
// (or the branch's own name if it has none yet), and invokes the
// request_review_post_sync hook.
func (e *Env) RequestReview(ctx context.Context, r patch.IndexRange, givenName string) (string, error) {
	const op = "request-review"

	if e.Config.RequestReview.VerifyIsolation {
		if err := e.VerifyIsolation(ctx, r); err != nil {
			return "", errs.Wrap(op, errs.KindCherryPick, "verify isolation", err)
		}
	}

	res, err := e.projectRange(ctx, op, r, givenName)
	if err != nil {
		return "", err
	}

	remoteName, upstreamShort, err := e.Repo.BranchUpstream(res.BranchName)
	rerequesting := err == nil
	pushRemote := e.Remote
	pushDst := res.BranchName
	if rerequesting {
		pushRemote = remoteName
		pushDst = upstreamShort
	}

	ref := "refs/heads/" + res.BranchName
	dstRef := "refs/heads/" + pushDst
	if err := gitfacade.Push(ctx, e.Exec, e.Repo.Root(), true, pushRemote, ref, dstRef); err != nil {
		return "", errs.Wrap(op, errs.KindSubprocess, "push review branch", err)
	}

	if err := hooks.Run(ctx, e.Exec, e.Repo.Root(), e.Repo.GitDir(), "request_review_post_sync", false,
		fmt.Sprintf("%t", rerequesting), pushDst, res.Stack.BaseRef()); err != nil {
		return "", errs.Wrap(op, errs.KindHook, "request_review_post_sync", err)
	}

	return res.BranchName, nil
}

// RequestReviewBatch processes a space-separated list of ranges
// sequentially; -n is forbidden when more than one range is given.
func (e *Env) RequestReviewBatch(ctx context.Context, ranges []patch.IndexRange, givenName string) ([]string, error) {
	const op = "request-review"
	if len(ranges) > 1 && givenName != "" {
		return nil, errs.New(op, errs.KindBranchAssoc, "-n is not allowed with more than one range")
	}
	var names []string
	for _, r := range ranges {
		name, err := e.RequestReview(ctx, r, givenName)
		if err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}
