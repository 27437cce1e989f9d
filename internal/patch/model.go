// Package patch defines the patch/stack data model: identity extraction
// and injection, index-range parsing and validation, branch-name
// generation, and the unique-branch-name projection used by branch/
// request-review/integrate. Grounded on original_source's
// ps/private/branch.rs and state_computation.rs.
package patch

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/patchwork-dev/git-ps/internal/gitfacade"
)

// Stack is the head/base branch pair a patch series lives between.
type Stack struct {
	HeadBranch string // shorthand, e.g. "main"
	BaseRemote string
	BaseBranch string // shorthand of the upstream, e.g. "main" on origin
}

// ListPatch is one entry of get_patch_list: a stack-relative index, the
// commit it names, and its first message line.
type ListPatch struct {
	Index   int
	OID     gitfacade.Hash
	Summary string
	ID      *uuid.UUID // nil if not yet stamped
}

var psIDRE = regexp.MustCompile(`ps-id:\s(?P<id>[0-9a-fA-F-]+)`)

// ExtractID parses the ps-id trailer out of a commit message, if present.
func ExtractID(message string) *uuid.UUID {
	m := psIDRE.FindStringSubmatch(message)
	if m == nil {
		return nil
	}
	id, err := uuid.Parse(m[1])
	if err != nil {
		return nil
	}
	return &id
}

// AppendID returns message with a freshly-formatted ps-id trailer appended
// on a new line, matching "\n<!-- ps-id: <uuid> -->".
func AppendID(message string, id uuid.UUID) string {
	return fmt.Sprintf("%s\n<!-- ps-id: %s -->\n", trimTrailingNewlines(message), id)
}

func trimTrailingNewlines(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// GetStack resolves the current branch and its configured upstream into a
// Stack, failing if HEAD is detached or has no configured upstream.
func GetStack(repo *gitfacade.Repo) (*Stack, error) {
	head, ok := repo.CurrentBranch()
	if !ok {
		return nil, fmt.Errorf("HEAD is detached or unnamed")
	}
	remote, branch, err := repo.BranchUpstream(head)
	if err != nil {
		return nil, fmt.Errorf("%s has no configured upstream: %w", head, err)
	}
	return &Stack{HeadBranch: head, BaseRemote: remote, BaseBranch: branch}, nil
}

// BaseRef is the stack base's local tracking ref shorthand, e.g. "origin/main".
func (s *Stack) BaseRef() string { return s.BaseRemote + "/" + s.BaseBranch }

// GetList walks from the stack head down to (excluding) the stack base,
// reversed so index 0 is the oldest patch, matching get_patch_list.
func GetList(repo *gitfacade.Repo, stack *Stack) ([]ListPatch, error) {
	headHash, err := repo.BranchHash(stack.HeadBranch)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", stack.HeadBranch, err)
	}
	baseHash, err := repo.CommitByRev(stack.BaseRef())
	if err != nil {
		return nil, fmt.Errorf("resolve base %s: %w", stack.BaseRef(), err)
	}

	commits, err := repo.RevWalk(baseHash.Hash, headHash, gitfacade.SortTopoOldestFirst)
	if err != nil {
		return nil, err
	}

	out := make([]ListPatch, len(commits))
	for i, c := range commits {
		out[i] = ListPatch{
			Index:   i,
			OID:     c.Hash,
			Summary: gitfacade.Summary(c),
			ID:      ExtractID(c.Message),
		}
	}
	return out, nil
}
