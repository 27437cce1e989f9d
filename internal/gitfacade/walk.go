package gitfacade

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// Sort controls the direction RevWalk visits commits in.
type Sort int

const (
	// SortTopoOldestFirst walks ancestor-then-descendant (oldest first),
	// used by the stack walk (index 0 = oldest patch) and the cherry-pick
	// engine (oldest source commit picked first).
	SortTopoOldestFirst Sort = iota
	// SortTopoNewestFirst walks descendant-then-ancestor (newest first).
	SortTopoNewestFirst
)

// RevWalk walks the linear chain of single-parent commits strictly between
// exclusiveLow (hidden, not included) and inclusiveHigh (pushed, included),
// matching get_revs's exclusive-low/inclusive-high contract. A commit with
// more than one parent aborts the walk with ErrMergeCommit.
func (r *Repo) RevWalk(exclusiveLow, inclusiveHigh Hash, sort Sort) ([]*object.Commit, error) {
	var chain []*object.Commit
	cur := inclusiveHigh
	for {
		if cur == exclusiveLow {
			break
		}
		c, err := r.raw.CommitObject(cur)
		if err != nil {
			return nil, fmt.Errorf("walk: %w", err)
		}
		chain = append(chain, c)
		if c.NumParents() == 0 {
			break
		}
		if err := RequireSingleParent(c); err != nil {
			return nil, err
		}
		cur = c.ParentHashes[0]
	}
	// chain is newest-first (we walked backward from inclusiveHigh).
	if sort == SortTopoOldestFirst {
		reverseCommits(chain)
	}
	return chain, nil
}

func reverseCommits(cs []*object.Commit) {
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
	}
}

// CountCommits returns len(RevWalk(fromInclusive's ancestry excluding
// toExclusive, ..., fromInclusive)) without building the full chain,
// matching count_commits(from_inclusive, to_exclusive).
func (r *Repo) CountCommits(fromInclusive, toExclusive Hash) (int, error) {
	chain, err := r.RevWalk(toExclusive, fromInclusive, SortTopoNewestFirst)
	if err != nil {
		return 0, err
	}
	return len(chain), nil
}
