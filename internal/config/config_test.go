package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsMatchDocumentedValues(t *testing.T) {
	d := Defaults()
	if !d.RequestReview.VerifyIsolation {
		t.Errorf("request_review.verify_isolation should default true")
	}
	if d.Branch.PushToRemote {
		t.Errorf("branch.push_to_remote should default false")
	}
	if !d.Pull.ShowListPostPull {
		t.Errorf("pull.show_list_post_pull should default true")
	}
	if !d.Integrate.PromptForReassurance || !d.Integrate.VerifyIsolation || !d.Integrate.PullAfterIntegrate {
		t.Errorf("integrate defaults should all be true")
	}
	if d.List.ExtraPatchInfoLength != 80 {
		t.Errorf("list.extra_patch_info_length default = %d, want 80", d.List.ExtraPatchInfoLength)
	}
}

func TestLoadWithNoConfigFilesReturnsDefaults(t *testing.T) {
	repoRoot := t.TempDir()
	gitDir := filepath.Join(repoRoot, ".git")
	t.Setenv("HOME", t.TempDir())

	settings, err := Load(repoRoot, gitDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings != Defaults() {
		t.Fatalf("got %+v, want defaults %+v", settings, Defaults())
	}
}

func TestLoadCommunalLayerOverridesRepoLevel(t *testing.T) {
	repoRoot := t.TempDir()
	gitDir := filepath.Join(repoRoot, ".git")
	t.Setenv("HOME", t.TempDir())

	writeTOML(t, PersonalRepoPath(gitDir), "[branch]\npushtoremote = true\n")
	writeTOML(t, CommunalRepoPath(repoRoot), "[branch]\npushtoremote = false\n")

	settings, err := Load(repoRoot, gitDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Branch.PushToRemote {
		t.Fatalf("communal layer (later) should have won over personal-repo layer")
	}
}

func writeTOML(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
