// Package config loads keepsake settings from ~/.keepsake/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/majorcontext/keepsake/internal/guard"
)

// Config holds keepsake settings.
type Config struct {
	// BackupRoot holds the date buckets.
	BackupRoot string `yaml:"backup_root"`
	// SourceRoot is where folders to back up are offered from.
	SourceRoot string `yaml:"source_root,omitempty"`
	// Exclude holds gitignore-style patterns left out of every backup.
	Exclude []string `yaml:"exclude,omitempty"`
	// Gitignore also honors .gitignore files found in the source tree.
	Gitignore bool        `yaml:"gitignore"`
	Guard     GuardConfig `yaml:"guard"`
	Debug     DebugConfig `yaml:"debug"`
}

// GuardConfig configures the check for an application holding the tree
// open. An empty Process disables the check.
type GuardConfig struct {
	Process       string        `yaml:"process,omitempty"`
	BackupPolicy  string        `yaml:"backup_policy"`
	RestorePolicy string        `yaml:"restore_policy"`
	Timeout       time.Duration `yaml:"timeout"`
	Interval      time.Duration `yaml:"interval"`
}

// DebugConfig holds debug logging settings.
type DebugConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		BackupRoot: filepath.Join(Dir(), "backups"),
		Guard: GuardConfig{
			BackupPolicy:  string(guard.PolicyClose),
			RestorePolicy: string(guard.PolicyAsk),
			Timeout:       guard.DefaultTimeout,
			Interval:      guard.DefaultInterval,
		},
		Debug: DebugConfig{
			RetentionDays: 14,
		},
	}
}

// Dir returns the path to ~/.keepsake.
func Dir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".keepsake")
	}
	return filepath.Join(homeDir, ".keepsake")
}

// Path returns the config file location. KEEPSAKE_CONFIG overrides it.
func Path() string {
	if p := os.Getenv("KEEPSAKE_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads the config file and applies environment overrides. A missing
// file yields the defaults; a malformed one is an error, since the paths
// it names are written to and cleared.
func Load() (*Config, error) {
	cfg := Default()

	path := Path()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.BackupRoot = expandHome(cfg.BackupRoot)
	cfg.SourceRoot = expandHome(cfg.SourceRoot)
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("KEEPSAKE_BACKUP_ROOT"); v != "" {
		c.BackupRoot = v
	}
	if v := os.Getenv("KEEPSAKE_SOURCE_ROOT"); v != "" {
		c.SourceRoot = v
	}
	if v := os.Getenv("KEEPSAKE_GUARD_PROCESS"); v != "" {
		c.Guard.Process = v
	}
	if v := os.Getenv("KEEPSAKE_GUARD_TIMEOUT"); v != "" {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return fmt.Errorf("KEEPSAKE_GUARD_TIMEOUT: %w", err)
		}
		c.Guard.Timeout = d
	}
	if v := os.Getenv("KEEPSAKE_GITIGNORE"); v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("KEEPSAKE_GITIGNORE: %w", err)
		}
		c.Gitignore = b
	}
	return nil
}

// Validate checks settings that would otherwise fail mid-operation.
func (c *Config) Validate() error {
	if c.BackupRoot == "" {
		return errors.New("backup_root is not set")
	}
	if _, err := guard.ParsePolicy(c.Guard.BackupPolicy); err != nil {
		return fmt.Errorf("guard.backup_policy: %w", err)
	}
	if _, err := guard.ParsePolicy(c.Guard.RestorePolicy); err != nil {
		return fmt.Errorf("guard.restore_policy: %w", err)
	}
	if c.Guard.Timeout < 0 {
		return fmt.Errorf("guard.timeout must not be negative, got %s", c.Guard.Timeout)
	}
	if c.Guard.Interval < 0 {
		return fmt.Errorf("guard.interval must not be negative, got %s", c.Guard.Interval)
	}
	return nil
}

// NewGuard returns the guard described by the config.
func (c *Config) NewGuard() guard.Guard {
	if c.Guard.Process == "" {
		return guard.None{}
	}
	return guard.Process{Name: c.Guard.Process}
}

// WaitOptions returns the guard wait bounds.
func (c *Config) WaitOptions() guard.WaitOptions {
	return guard.WaitOptions{Timeout: c.Guard.Timeout, Interval: c.Guard.Interval}
}

// DebugDir returns where debug logs are written.
func DebugDir() string {
	return filepath.Join(Dir(), "debug")
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(homeDir, strings.TrimPrefix(p, "~"))
}
