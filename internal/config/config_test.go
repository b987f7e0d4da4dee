package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := ValidateVersion(cfg.Version); err != nil {
		t.Fatalf("default config should have a valid version: %v", err)
	}
	if cfg.API.BaseURL == "" || cfg.API.Model == "" {
		t.Fatal("expected default API settings to be populated")
	}
}

func TestPermissionRuleToPolicyRule(t *testing.T) {
	r := PermissionRule{Tool: "Bash", Args: "command:rm*", Action: "block", Description: "no rm"}
	pr := r.ToPolicyRule()
	if pr.Tool != "Bash" || string(pr.Action) != "block" {
		t.Fatalf("unexpected conversion: %+v", pr)
	}
}

func withWorkingDir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadMergesProjectConfigOverDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".relay"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	toml := "[api]\nmodel = \"claude-opus-4-6\"\n"
	if err := os.WriteFile(filepath.Join(dir, ".relay", "config.toml"), []byte(toml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	withWorkingDir(t, dir)

	t.Setenv("RELAY_API_KEY", "")
	t.Setenv("RELAY_MODEL", "")
	t.Setenv("RELAY_BASE_URL", "")
	t.Setenv("RELAY_MAX_RETRIES", "")
	t.Setenv("RELAY_LUDICROUS", "")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Model != "claude-opus-4-6" {
		t.Fatalf("expected project config to override model, got %q", cfg.API.Model)
	}
	if cfg.API.BaseURL != "https://api.anthropic.com" {
		t.Fatalf("expected default base url to survive merge, got %q", cfg.API.BaseURL)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	withWorkingDir(t, dir)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RELAY_MODEL", "claude-env-model")

	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Model != "claude-env-model" {
		t.Fatalf("expected env to set model, got %q", cfg.API.Model)
	}
}

func TestLoadOverridesWinOverEnv(t *testing.T) {
	dir := t.TempDir()
	withWorkingDir(t, dir)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RELAY_MODEL", "claude-env-model")

	cfg, err := Load(Overrides{Model: "claude-flag-model"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Model != "claude-flag-model" {
		t.Fatalf("expected flag override to win, got %q", cfg.API.Model)
	}
}
