// Package config loads and merges the three-tier TOML configuration
// (user-global -> personal-repo -> communal-repo, later wins) into a typed
// Settings value. Grounded on original_source's
// ps/private/config/get_config.rs Mergable chain; viper's layered
// MergeConfigMap is the Go-native way to express that same "later layer
// wins" merge.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Settings is the merged, typed configuration every operation reads.
type Settings struct {
	RequestReview struct {
		VerifyIsolation bool
	}
	Branch struct {
		VerifyIsolation bool
		PushToRemote    bool
	}
	Pull struct {
		ShowListPostPull bool
	}
	Integrate struct {
		PromptForReassurance bool
		VerifyIsolation      bool
		PullAfterIntegrate   bool
	}
	Fetch struct {
		ShowUpstreamPatchesAfterFetch bool
	}
	List struct {
		ReverseOrder         bool
		AddExtraPatchInfo    bool
		ExtraPatchInfoLength uint64
		AlternateColors      bool
		ColorPairs           [6][2]string
	}
}

// Defaults returns the spec's documented defaults.
func Defaults() Settings {
	var s Settings
	s.RequestReview.VerifyIsolation = true
	s.Branch.VerifyIsolation = false
	s.Branch.PushToRemote = false
	s.Pull.ShowListPostPull = true
	s.Integrate.PromptForReassurance = true
	s.Integrate.VerifyIsolation = true
	s.Integrate.PullAfterIntegrate = true
	s.Fetch.ShowUpstreamPatchesAfterFetch = true
	s.List.ReverseOrder = false
	s.List.AddExtraPatchInfo = false
	s.List.ExtraPatchInfoLength = 80
	s.List.AlternateColors = false
	return s
}

// UserGlobalPath is ~/.config/git-ps/config.toml.
func UserGlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "git-ps", "config.toml"), nil
}

// PersonalRepoPath is <repo>/.git/git-ps/config.toml.
func PersonalRepoPath(gitDir string) string {
	return filepath.Join(gitDir, "git-ps", "config.toml")
}

// CommunalRepoPath is <repo>/.git-ps/config.toml.
func CommunalRepoPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".git-ps", "config.toml")
}

// Load merges the three layers (absent files are empty layers) over
// Defaults, later paths winning.
func Load(repoRoot, gitDir string) (Settings, error) {
	settings := Defaults()

	userPath, err := UserGlobalPath()
	if err != nil {
		return settings, fmt.Errorf("resolve user config path: %w", err)
	}

	merged := viper.New()
	bindDefaults(merged, settings)

	for _, path := range []string{userPath, PersonalRepoPath(gitDir), CommunalRepoPath(repoRoot)} {
		layer := viper.New()
		layer.SetConfigFile(path)
		layer.SetConfigType("toml")
		if err := layer.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				continue
			}
			return settings, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := merged.MergeConfigMap(layer.AllSettings()); err != nil {
			return settings, fmt.Errorf("merge config %s: %w", path, err)
		}
	}

	if err := merged.Unmarshal(&settings); err != nil {
		return settings, fmt.Errorf("unmarshal merged config: %w", err)
	}
	return settings, nil
}

func bindDefaults(v *viper.Viper, s Settings) {
	v.SetDefault("requestreview.verifyisolation", s.RequestReview.VerifyIsolation)
	v.SetDefault("branch.verifyisolation", s.Branch.VerifyIsolation)
	v.SetDefault("branch.pushtoremote", s.Branch.PushToRemote)
	v.SetDefault("pull.showlistpostpull", s.Pull.ShowListPostPull)
	v.SetDefault("integrate.promptforreassurance", s.Integrate.PromptForReassurance)
	v.SetDefault("integrate.verifyisolation", s.Integrate.VerifyIsolation)
	v.SetDefault("integrate.pullafterintegrate", s.Integrate.PullAfterIntegrate)
	v.SetDefault("fetch.showupstreampatchesafterfetch", s.Fetch.ShowUpstreamPatchesAfterFetch)
	v.SetDefault("list.reverseorder", s.List.ReverseOrder)
	v.SetDefault("list.addextrapatchinfo", s.List.AddExtraPatchInfo)
	v.SetDefault("list.extrapatchinfolength", s.List.ExtraPatchInfoLength)
	v.SetDefault("list.alternatecolors", s.List.AlternateColors)
}
