// Package hooks resolves and invokes user-defined lifecycle hooks
// (isolate_post_checkout, isolate_post_cleanup, integrate_verify,
// integrate_post_push, request_review_post_sync,
// list_additional_information) at the well-defined points operations call
// them. Grounded on original_source's ps/private/hooks.rs find_hook and
// the teacher's hook.go gitPath/installHook resolution style.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/patchwork-dev/git-ps/internal/gitfacade"
)

// ErrNotFound is returned when no tier has the named hook.
var ErrNotFound = errors.New("hook not found")

// ErrNotExecutable is returned when a hook file exists but lacks the
// executable bit.
var ErrNotExecutable = errors.New("hook not executable")

// Find resolves a hook by name, checking communal
// (<repoRoot>/.git-ps/hooks/<name>) -> repository-level
// (<gitDir>/git-ps/hooks/<name>) -> user-global
// (~/.config/git-ps/hooks/<name>), in that order.
func Find(repoRoot, gitDir, name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	candidates := []string{
		filepath.Join(repoRoot, ".git-ps", "hooks", name),
		filepath.Join(gitDir, "git-ps", "hooks", name),
	}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, ".config", "git-ps", "hooks", name))
	}

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.Mode()&0o111 == 0 {
			return "", fmt.Errorf("%w: %s", ErrNotExecutable, path)
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Run locates and executes the named hook with args, inheriting stdio.
// Nonzero exit aborts the caller. If required is false and the hook is
// simply absent, Run returns nil (optional hooks are silently skipped).
func Run(ctx context.Context, ex gitfacade.Exec, repoRoot, gitDir, name string, required bool, args ...string) error {
	path, err := Find(repoRoot, gitDir, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) && !required {
			return nil
		}
		return err
	}
	if err := ex.Run(ctx, repoRoot, path, args...); err != nil {
		return fmt.Errorf("hook %s failed: %w", name, err)
	}
	return nil
}
