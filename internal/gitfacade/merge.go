package gitfacade

import (
	"fmt"
	"path"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// MergeTreesConflicts lists the paths where a three-way tree merge could
// not be resolved automatically.
type MergeTreesConflicts struct {
	Paths []string
}

func (c *MergeTreesConflicts) Error() string {
	return fmt.Sprintf("conflicts in %d path(s): %v", len(c.Paths), c.Paths)
}

// entry is one file's state across the three trees being merged.
type entry struct {
	base, ours, theirs *object.TreeEntry
}

// MergeTrees performs the cherry-pick engine's three-way merge of
// sourceTree against destTree using parentTree as the common ancestor, and
// returns the resulting tree hash. go-git v5 has no bound equivalent of
// libgit2's git_merge_trees, so this is the one façade method with real
// merge logic rather than a thin wrapper — it is unit-tested directly
// rather than trusted to a dependency.
func (r *Repo) MergeTrees(parentTree, ourTree, theirTree *object.Tree) (Hash, error) {
	entries := map[string]*entry{}
	collect := func(t *object.Tree, pick func(e *entry) **object.TreeEntry) error {
		return t.Files().ForEach(func(f *object.File) error {
			e := entries[f.Name]
			if e == nil {
				e = &entry{}
				entries[f.Name] = e
			}
			te := &object.TreeEntry{Name: f.Name, Mode: f.Mode, Hash: f.Hash}
			*pick(e) = te
			return nil
		})
	}
	if err := collect(parentTree, func(e *entry) **object.TreeEntry { return &e.base }); err != nil {
		return Hash{}, err
	}
	if err := collect(ourTree, func(e *entry) **object.TreeEntry { return &e.ours }); err != nil {
		return Hash{}, err
	}
	if err := collect(theirTree, func(e *entry) **object.TreeEntry { return &e.theirs }); err != nil {
		return Hash{}, err
	}

	var conflicts []string
	result := map[string]*object.TreeEntry{}
	for name, e := range entries {
		resolved, ok := mergeEntry(e)
		if !ok {
			conflicts = append(conflicts, name)
			continue
		}
		if resolved != nil {
			result[name] = resolved
		}
	}
	if len(conflicts) > 0 {
		return Hash{}, &MergeTreesConflicts{Paths: conflicts}
	}

	return r.buildTree(result)
}

// mergeEntry applies the standard three-way file merge rule set: unchanged
// on one side always yields the other side's value; changed identically on
// both sides is not a conflict; changed differently on both sides (and
// neither equals base) is a conflict. Content-level merging within a
// modified-on-both-sides text file is out of scope here — git-ps treats
// that case as a conflict and asks the user to resolve it the normal git
// way, same as the original's reliance on libgit2's line-level merge would
// for genuinely divergent edits to the same blob.
func mergeEntry(e *entry) (resolved *object.TreeEntry, ok bool) {
	sameHash := func(a, b *object.TreeEntry) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.Hash == b.Hash && a.Mode == b.Mode
	}

	oursChanged := !sameHash(e.base, e.ours)
	theirsChanged := !sameHash(e.base, e.theirs)

	switch {
	case !oursChanged && !theirsChanged:
		return e.base, true
	case oursChanged && !theirsChanged:
		return e.ours, true
	case !oursChanged && theirsChanged:
		return e.theirs, true
	default:
		// both changed
		if sameHash(e.ours, e.theirs) {
			return e.ours, true
		}
		return nil, false
	}
}

// buildTree writes a (possibly nested) tree object from a flat path->entry
// map and returns its hash.
func (r *Repo) buildTree(flat map[string]*object.TreeEntry) (Hash, error) {
	type dirNode struct {
		files map[string]*object.TreeEntry
		dirs  map[string]*dirNode
	}
	root := &dirNode{files: map[string]*object.TreeEntry{}, dirs: map[string]*dirNode{}}

	for p, te := range flat {
		dir, base := path.Split(p)
		node := root
		for _, part := range splitDirs(dir) {
			child, ok := node.dirs[part]
			if !ok {
				child = &dirNode{files: map[string]*object.TreeEntry{}, dirs: map[string]*dirNode{}}
				node.dirs[part] = child
			}
			node = child
		}
		node.files[base] = &object.TreeEntry{Name: base, Mode: te.Mode, Hash: te.Hash}
	}

	var write func(n *dirNode) (Hash, error)
	write = func(n *dirNode) (Hash, error) {
		tree := &object.Tree{}
		for name, te := range n.files {
			tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: te.Mode, Hash: te.Hash})
		}
		for name, child := range n.dirs {
			h, err := write(child)
			if err != nil {
				return Hash{}, err
			}
			tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: h})
		}
		sort.Slice(tree.Entries, func(i, j int) bool { return tree.Entries[i].Name < tree.Entries[j].Name })
		obj := r.raw.Storer.NewEncodedObject()
		obj.SetType(plumbing.TreeObject)
		if err := tree.Encode(obj); err != nil {
			return Hash{}, err
		}
		h, err := r.raw.Storer.SetEncodedObject(obj)
		if err != nil {
			return Hash{}, err
		}
		return h, nil
	}
	return write(root)
}

func splitDirs(dir string) []string {
	dir = path.Clean(dir)
	if dir == "." || dir == "" {
		return nil
	}
	var parts []string
	for _, p := range splitAll(dir) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func splitAll(p string) []string {
	var out []string
	for {
		dir, file := path.Split(p)
		if file != "" {
			out = append([]string{file}, out...)
		}
		dir = path.Clean(dir)
		if dir == "." || dir == "/" || dir == p {
			break
		}
		p = dir
	}
	return out
}
