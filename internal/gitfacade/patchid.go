package gitfacade

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// hunkHeaderRE matches a unified-diff hunk header so its line-number pair
// (not content) can be stripped before hashing: two identical edits applied
// at different offsets in the same file must still produce the same
// diff-hash, matching the original's git_diff_patchid-backed commit_diff_
// patch_id, which is deliberately blind to where in the file a hunk lands.
var hunkHeaderRE = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+\d+(?:,\d+)? @@`)

// CommitDiff returns the unified diff of c against its single parent.
// Fails ErrMergeCommit for commits with more than one parent, matching
// commit_diff's parent-count == 1 requirement.
func (r *Repo) CommitDiff(c *object.Commit) (*object.Patch, error) {
	if err := RequireSingleParent(c); err != nil {
		return nil, err
	}
	if c.NumParents() == 0 {
		tree, err := c.Tree()
		if err != nil {
			return nil, err
		}
		empty := &object.Tree{}
		return empty.Diff(tree)
	}
	parent, err := c.Parent(0)
	if err != nil {
		return nil, err
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, err
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	return parentTree.Diff(tree)
}

// CommitDiffPatchID computes the diff-hash: a SHA-256 over the commit's
// patch text with path headers kept (so renames-with-content-changes
// differ) but "index" blob-id lines dropped and hunk line-number headers
// stripped (so the hash is invariant
// under where in the file a hunk lands, and entirely under
// author/committer/timestamp rewrite, since none of that enters the diff
// text at all).
func (r *Repo) CommitDiffPatchID(c *object.Commit) (string, error) {
	patch, err := r.CommitDiff(c)
	if err != nil {
		return "", fmt.Errorf("diff-hash: %w", err)
	}
	h := sha256.New()
	sc := bufio.NewScanner(strings.NewReader(patch.String()))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "index ") {
			// blob ids depend on the whole file, not just the edit
			continue
		}
		if hunkHeaderRE.MatchString(line) {
			line = hunkHeaderRE.ReplaceAllString(line, "@@ @@")
		}
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
