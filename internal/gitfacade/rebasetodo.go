package gitfacade

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TodoCommand is one line of a "git rebase -i" todo file.
type TodoCommand int

const (
	TodoPick TodoCommand = iota
	TodoRevert
	TodoEdit
	TodoReword
	TodoSquash
	TodoFixup
	TodoDrop
	TodoMerge
	TodoExec
	TodoBreak
	TodoLabel
	TodoReset
	TodoUpdateRef
	TodoNoop
	TodoComment
)

// FixupOption is the -C/-c flag on a fixup/merge line: -C keeps the
// commit message verbatim, -c keeps it but opens the editor.
type FixupOption int

const (
	FixupNone FixupOption = iota
	FixupKeepMessage
	FixupKeepMessageAndEdit
)

// RebaseTodo is one parsed line of a rebase-merge todo/done file.
type RebaseTodo struct {
	Command RebaseTodoCommand
	SHA     string
	Rest    string // the free-text remainder (commit subject, label name, exec command line, ...)
	Option  FixupOption
	Label   string // merge: the label being merged
	Oneline bool   // merge: -C/-c with a single combined message line
	Reword  bool   // merge: reword requested
	Raw     string // original source line, preserved for round-tripping comments
}

// RebaseTodoCommand is kept distinct from TodoCommand to avoid a stutter
// import alias; it is the same enumeration.
type RebaseTodoCommand = TodoCommand

var commandNames = map[string]TodoCommand{
	"pick": TodoPick, "p": TodoPick,
	"revert": TodoRevert,
	"edit":   TodoEdit, "e": TodoEdit,
	"reword": TodoReword, "r": TodoReword,
	"squash": TodoSquash, "s": TodoSquash,
	"fixup": TodoFixup, "f": TodoFixup,
	"drop": TodoDrop, "d": TodoDrop,
	"merge": TodoMerge, "m": TodoMerge,
	"exec": TodoExec, "x": TodoExec,
	"break": TodoBreak, "b": TodoBreak,
	"label":      TodoLabel, "l": TodoLabel,
	"reset":      TodoReset, "t": TodoReset,
	"update-ref": TodoUpdateRef, "u": TodoUpdateRef,
	"noop": TodoNoop,
}

// ParseRebaseTodo parses the full rebase todo grammar: pick/revert/edit/
// reword/squash/drop + sha + rest; fixup with -C/-c; merge with -C/-c,
// label, oneline, reword; exec/break/label/reset/update-ref/noop; comments
// (including the empty-line canonicalization, which we represent as a
// TodoComment with an empty Raw).
func ParseRebaseTodo(content string) ([]RebaseTodo, error) {
	var out []RebaseTodo
	for _, line := range strings.Split(strings.TrimSuffix(content, "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			out = append(out, RebaseTodo{Command: TodoComment, Raw: line})
			continue
		}
		fields := strings.Fields(trimmed)
		cmdWord := fields[0]
		cmd, ok := commandNames[cmdWord]
		if !ok {
			return nil, fmt.Errorf("rebase todo: unrecognized command %q", cmdWord)
		}
		t := RebaseTodo{Command: cmd, Raw: line}
		rest := fields[1:]
		switch cmd {
		case TodoPick, TodoRevert, TodoEdit, TodoReword, TodoSquash, TodoDrop:
			if len(rest) == 0 {
				return nil, fmt.Errorf("rebase todo: %q missing sha", cmdWord)
			}
			t.SHA = rest[0]
			t.Rest = strings.Join(rest[1:], " ")
		case TodoFixup:
			idx := 0
			if len(rest) > 0 && (rest[0] == "-C" || rest[0] == "-c") {
				if rest[0] == "-C" {
					t.Option = FixupKeepMessage
				} else {
					t.Option = FixupKeepMessageAndEdit
				}
				idx = 1
			}
			if len(rest) <= idx {
				return nil, fmt.Errorf("rebase todo: fixup missing sha")
			}
			t.SHA = rest[idx]
			t.Rest = strings.Join(rest[idx+1:], " ")
		case TodoMerge:
			idx := 0
			for idx < len(rest) {
				switch rest[idx] {
				case "-C":
					t.Option = FixupKeepMessage
					idx++
					if idx < len(rest) {
						t.SHA = rest[idx]
						idx++
					}
				case "-c":
					t.Option = FixupKeepMessageAndEdit
					t.Reword = true
					idx++
					if idx < len(rest) {
						t.SHA = rest[idx]
						idx++
					}
				default:
					t.Label = rest[idx]
					idx++
				}
			}
			t.Rest = strings.Join(rest, " ")
		case TodoExec, TodoLabel, TodoReset, TodoUpdateRef:
			t.Rest = strings.Join(rest, " ")
		case TodoBreak, TodoNoop:
			// no arguments
		}
		out = append(out, t)
	}
	return out, nil
}

// RebaseState reads the rebase-merge state directory for a repository's
// .git dir, if an interactive rebase is in progress.
type RebaseState struct {
	HeadName string
	Onto     string
	Todo     []RebaseTodo
	Done     []RebaseTodo
}

// InRebase reports whether gitDir has a rebase-merge in progress.
func InRebase(gitDir string) bool {
	_, err := os.Stat(filepath.Join(gitDir, "rebase-merge"))
	return err == nil
}

// ReadRebaseState loads head-name, onto, git-rebase-todo, and done from
// gitDir/rebase-merge.
func ReadRebaseState(gitDir string) (*RebaseState, error) {
	dir := filepath.Join(gitDir, "rebase-merge")
	readLine := func(name string) (string, error) {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	headName, err := readLine("head-name")
	if err != nil {
		return nil, fmt.Errorf("read head-name: %w", err)
	}
	onto, err := readLine("onto")
	if err != nil {
		return nil, fmt.Errorf("read onto: %w", err)
	}
	todoRaw, err := os.ReadFile(filepath.Join(dir, "git-rebase-todo"))
	if err != nil {
		return nil, fmt.Errorf("read git-rebase-todo: %w", err)
	}
	todos, err := ParseRebaseTodo(string(todoRaw))
	if err != nil {
		return nil, err
	}
	var done []RebaseTodo
	if doneRaw, err := os.ReadFile(filepath.Join(dir, "done")); err == nil {
		done, err = ParseRebaseTodo(string(doneRaw))
		if err != nil {
			return nil, err
		}
	}
	return &RebaseState{HeadName: headName, Onto: onto, Todo: todos, Done: done}, nil
}
