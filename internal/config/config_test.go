package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Default()

	if cfg.General.MaxParallelJobs != 4 {
		t.Errorf("MaxParallelJobs = %d, want 4", cfg.General.MaxParallelJobs)
	}
	if cfg.General.FailurePolicy != "fail-branch" {
		t.Errorf("FailurePolicy = %q, want fail-branch", cfg.General.FailurePolicy)
	}
	if len(cfg.Tools.InstallCmd) == 0 {
		t.Error("InstallCmd is empty")
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `
[general]
max_parallel_jobs = 8
failure_policy = "fail-fast"

[tools]
install_cmd = ["uv", "pip", "install"]
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.General.MaxParallelJobs != 8 {
		t.Errorf("MaxParallelJobs = %d, want 8", cfg.General.MaxParallelJobs)
	}
	if cfg.General.FailurePolicy != "fail-fast" {
		t.Errorf("FailurePolicy = %q, want fail-fast", cfg.General.FailurePolicy)
	}
	if len(cfg.Tools.InstallCmd) != 3 || cfg.Tools.InstallCmd[0] != "uv" {
		t.Errorf("InstallCmd = %v", cfg.Tools.InstallCmd)
	}
	// unset sections keep defaults
	if cfg.General.DatabasePath == "" {
		t.Error("DatabasePath default lost")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.General.MaxParallelJobs != 4 {
		t.Errorf("MaxParallelJobs = %d, want default 4", cfg.General.MaxParallelJobs)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	if got := ExpandPath("~/x"); got != filepath.Join(home, "x") {
		t.Errorf("ExpandPath(~/x) = %q", got)
	}
	if got := ExpandPath("/abs/x"); got != "/abs/x" {
		t.Errorf("ExpandPath(/abs/x) = %q", got)
	}
}
