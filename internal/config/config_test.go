package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/majorcontext/keepsake/internal/guard"
)

// withHome points HOME at a temp dir and clears keepsake env vars.
func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, k := range []string{"KEEPSAKE_CONFIG", "KEEPSAKE_BACKUP_ROOT", "KEEPSAKE_SOURCE_ROOT", "KEEPSAKE_GUARD_PROCESS", "KEEPSAKE_GUARD_TIMEOUT", "KEEPSAKE_GITIGNORE"} {
		t.Setenv(k, "")
	}
	return home
}

func writeConfig(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, ".keepsake")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	home := withHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(home, ".keepsake", "backups"); cfg.BackupRoot != want {
		t.Errorf("BackupRoot = %q, want %q", cfg.BackupRoot, want)
	}
	if cfg.Guard.BackupPolicy != "close" || cfg.Guard.RestorePolicy != "ask" {
		t.Errorf("Guard policies = %q/%q, want close/ask", cfg.Guard.BackupPolicy, cfg.Guard.RestorePolicy)
	}
	if cfg.Debug.RetentionDays != 14 {
		t.Errorf("expected default RetentionDays=14, got %d", cfg.Debug.RetentionDays)
	}
	if _, ok := cfg.NewGuard().(guard.None); !ok {
		t.Errorf("NewGuard() = %T, want guard.None with no process configured", cfg.NewGuard())
	}
}

func TestLoadFile(t *testing.T) {
	home := withHome(t)
	writeConfig(t, home, `
backup_root: ~/bk
source_root: /src
exclude:
  - bin/
  - obj/
gitignore: true
guard:
  process: devenv.exe
  restore_policy: abort
  timeout: 30s
  interval: 1s
debug:
  retention_days: 7
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(home, "bk"); cfg.BackupRoot != want {
		t.Errorf("BackupRoot = %q, want %q", cfg.BackupRoot, want)
	}
	if cfg.SourceRoot != "/src" {
		t.Errorf("SourceRoot = %q", cfg.SourceRoot)
	}
	if strings.Join(cfg.Exclude, ",") != "bin/,obj/" {
		t.Errorf("Exclude = %v", cfg.Exclude)
	}
	if !cfg.Gitignore {
		t.Error("Gitignore should be true")
	}
	if cfg.Guard.Timeout != 30*time.Second || cfg.Guard.Interval != time.Second {
		t.Errorf("Guard wait = %s/%s", cfg.Guard.Timeout, cfg.Guard.Interval)
	}
	if cfg.Guard.BackupPolicy != "close" {
		t.Errorf("unset BackupPolicy should keep default, got %q", cfg.Guard.BackupPolicy)
	}
	if cfg.Guard.RestorePolicy != "abort" {
		t.Errorf("RestorePolicy = %q", cfg.Guard.RestorePolicy)
	}
	if cfg.Debug.RetentionDays != 7 {
		t.Errorf("expected RetentionDays=7, got %d", cfg.Debug.RetentionDays)
	}
	g, ok := cfg.NewGuard().(guard.Process)
	if !ok || g.Name != "devenv.exe" {
		t.Errorf("NewGuard() = %#v", cfg.NewGuard())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	home := withHome(t)
	writeConfig(t, home, "backup_root: [unclosed\n")

	if _, err := Load(); err == nil {
		t.Error("Load should fail on a malformed config file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	home := withHome(t)
	writeConfig(t, home, "backup_root: /from/file\n")

	t.Setenv("KEEPSAKE_BACKUP_ROOT", "/from/env")
	t.Setenv("KEEPSAKE_SOURCE_ROOT", "/src/env")
	t.Setenv("KEEPSAKE_GUARD_PROCESS", "code")
	t.Setenv("KEEPSAKE_GUARD_TIMEOUT", "45s")
	t.Setenv("KEEPSAKE_GITIGNORE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackupRoot != "/from/env" {
		t.Errorf("BackupRoot = %q, want /from/env", cfg.BackupRoot)
	}
	if cfg.SourceRoot != "/src/env" {
		t.Errorf("SourceRoot = %q", cfg.SourceRoot)
	}
	if cfg.Guard.Process != "code" {
		t.Errorf("Guard.Process = %q", cfg.Guard.Process)
	}
	if cfg.Guard.Timeout != 45*time.Second {
		t.Errorf("Guard.Timeout = %s", cfg.Guard.Timeout)
	}
	if !cfg.Gitignore {
		t.Error("Gitignore should be set from env")
	}
}

func TestLoadEnvInvalid(t *testing.T) {
	withHome(t)
	t.Setenv("KEEPSAKE_GITIGNORE", "maybe")
	if _, err := Load(); err == nil {
		t.Error("Load should reject an unparseable KEEPSAKE_GITIGNORE")
	}
}

func TestLoadAlternatePath(t *testing.T) {
	withHome(t)
	path := filepath.Join(t.TempDir(), "alt.yaml")
	if err := os.WriteFile(path, []byte("backup_root: /alt\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KEEPSAKE_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackupRoot != "/alt" {
		t.Errorf("BackupRoot = %q, want /alt", cfg.BackupRoot)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty backup root", func(c *Config) { c.BackupRoot = "" }},
		{"bad backup policy", func(c *Config) { c.Guard.BackupPolicy = "kill" }},
		{"bad restore policy", func(c *Config) { c.Guard.RestorePolicy = "later" }},
		{"negative timeout", func(c *Config) { c.Guard.Timeout = -time.Second }},
		{"negative interval", func(c *Config) { c.Guard.Interval = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate should fail")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate: %v", err)
	}
}
