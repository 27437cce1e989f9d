// Package ops implements the public operations (C9): list, show, sha, id,
// branch, request-review, integrate, isolate, verify-isolation, sync,
// pull, fetch, rebase, push, append, backup-stack, checkout, create-patch,
// amend-patch, plus thin status/add/unstage/log wrappers. Each operation
// is a method on Env, composing C1-C8.
package ops

import (
	"io"

	"go.uber.org/zap"

	"github.com/patchwork-dev/git-ps/internal/commitfactory"
	"github.com/patchwork-dev/git-ps/internal/config"
	"github.com/patchwork-dev/git-ps/internal/gitfacade"
	"github.com/patchwork-dev/git-ps/internal/releasecheck"
	"github.com/patchwork-dev/git-ps/internal/signer"
)

// Env is the dependency set every operation needs, replacing the teacher's
// package-level flags/verbose/noRun globals with explicit injection (we
// are a library with a thin separate CLI adapter, not a single package
// main the way git-codereview is).
type Env struct {
	Repo    *gitfacade.Repo
	Exec    gitfacade.Exec
	Factory *commitfactory.Factory
	Signer  signer.Signer
	Config  config.Settings
	Log     *zap.Logger

	Stdout io.Writer
	Stderr io.Writer

	// ReleaseCheckEndpoint, when non-empty, is queried in the background
	// by operations that the spec names (list, pull, fetch, ...).
	ReleaseCheckEndpoint string
	Version              string

	// Prompt reads a line of user confirmation (integrate's
	// "are you sure" gate); nil means "always assume yes" (used by tests
	// and -y-style automation wrappers).
	Prompt func(question string) (string, error)

	// Remote is the stack's configured remote name, e.g. "origin".
	Remote string
}

// startReleaseCheck launches the background version check if configured,
// joining it before the caller returns via the returned closer.
func (e *Env) startReleaseCheck() *releasecheck.Handle {
	if e.ReleaseCheckEndpoint == "" {
		return nil
	}
	return releasecheck.Start(e.ReleaseCheckEndpoint, e.Version, e.Log)
}

func (e *Env) joinReleaseCheck(h *releasecheck.Handle) {
	if h == nil {
		return
	}
	res := h.Join()
	if res.Err != nil {
		e.Log.Warn("release check failed", zap.Error(res.Err))
		return
	}
	if res.NewerExists {
		e.Log.Warn("a newer git-ps release is available", zap.String("latest", res.LatestVersion))
	}
}
