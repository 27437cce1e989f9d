package patch

import "testing"

func TestSlugDeterministic(t *testing.T) {
	a := Slug("Fix the Foo/Bar bug!")
	b := Slug("Fix the Foo/Bar bug!")
	if a != b {
		t.Fatalf("Slug is not deterministic: %q != %q", a, b)
	}
	if a != "fix_the_foo_bar_bug_" {
		t.Fatalf("got %q", a)
	}
}

func TestSlugLowercasesAndPreservesDigits(t *testing.T) {
	if got := Slug("Issue 123"); got != "issue_123" {
		t.Fatalf("got %q, want issue_123", got)
	}
}

func TestGenerateRRBranchName(t *testing.T) {
	got := GenerateRRBranchName("Add retry logic")
	want := "ps/rr/add_retry_logic"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
