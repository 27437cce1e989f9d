package gitfacade

import "testing"

func TestParseRebaseTodoPickLines(t *testing.T) {
	todos, err := ParseRebaseTodo("pick abc1234 add feature\np def5678 fix bug\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(todos) != 2 {
		t.Fatalf("got %d todos, want 2", len(todos))
	}
	if todos[0].Command != TodoPick || todos[0].SHA != "abc1234" || todos[0].Rest != "add feature" {
		t.Fatalf("todos[0] = %+v", todos[0])
	}
	if todos[1].Command != TodoPick || todos[1].SHA != "def5678" {
		t.Fatalf("todos[1] = %+v", todos[1])
	}
}

func TestParseRebaseTodoCommentsAndBlankLines(t *testing.T) {
	todos, err := ParseRebaseTodo("# a comment\n\npick abc1234 msg\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(todos) != 3 {
		t.Fatalf("got %d todos, want 3", len(todos))
	}
	if todos[0].Command != TodoComment || todos[1].Command != TodoComment {
		t.Fatalf("expected the first two lines to be comments, got %+v %+v", todos[0], todos[1])
	}
	if todos[2].Command != TodoPick {
		t.Fatalf("expected the third line to be a pick, got %+v", todos[2])
	}
}

func TestParseRebaseTodoFixupWithKeepMessageOption(t *testing.T) {
	todos, err := ParseRebaseTodo("fixup -C abc1234\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(todos) != 1 {
		t.Fatalf("got %d todos, want 1", len(todos))
	}
	if todos[0].Command != TodoFixup || todos[0].Option != FixupKeepMessage || todos[0].SHA != "abc1234" {
		t.Fatalf("todos[0] = %+v", todos[0])
	}
}

func TestParseRebaseTodoExecLine(t *testing.T) {
	todos, err := ParseRebaseTodo("exec go test ./...\n")
	if err != nil {
		t.Fatal(err)
	}
	if todos[0].Command != TodoExec || todos[0].Rest != "go test ./..." {
		t.Fatalf("todos[0] = %+v", todos[0])
	}
}

func TestParseRebaseTodoUnrecognizedCommandErrors(t *testing.T) {
	if _, err := ParseRebaseTodo("bogus abc1234 msg\n"); err == nil {
		t.Fatalf("expected an error for an unrecognized command")
	}
}

func TestParseRebaseTodoMissingSHAErrors(t *testing.T) {
	if _, err := ParseRebaseTodo("pick\n"); err == nil {
		t.Fatalf("expected an error for a pick line missing a sha")
	}
}
