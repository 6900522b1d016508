// Package config loads and persists the abm global configuration.
//
// The configuration is a single JSON document at <store>/.abm.json,
// loaded through koanf so that ABM_AIRFLOW_REPO and ABM_WORKTREE_BASE
// environment variables override the stored values without editing the
// file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// SchemaVersion is the current on-disk schema version. Records with an
// older version are migrated on load.
const SchemaVersion = 1

// ErrNotInitialized indicates abm init has not been run yet.
var ErrNotInitialized = errors.New("abm not initialized")

// Config is the global configuration singleton.
type Config struct {
	SchemaVersion int    `json:"schema_version" koanf:"schema_version"`
	AirflowRepo   string `json:"airflow_repo" koanf:"airflow_repo"`
	WorktreeBase  string `json:"worktree_base" koanf:"worktree_base"`
}

// Paths locates the abm store on disk.
type Paths struct {
	// StoreRoot is the abm home directory, ~/.airflow-breeze-manager
	// unless overridden by ABM_HOME.
	StoreRoot string
}

// DefaultPaths resolves the store root from ABM_HOME or the home
// directory.
func DefaultPaths() (Paths, error) {
	if v := os.Getenv("ABM_HOME"); v != "" {
		return Paths{StoreRoot: v}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to get home directory: %w", err)
	}
	return Paths{StoreRoot: filepath.Join(home, ".airflow-breeze-manager")}, nil
}

// ConfigFile is the global config document.
func (p Paths) ConfigFile() string { return filepath.Join(p.StoreRoot, ".abm.json") }

// ProjectsDir holds one folder per managed project.
func (p Paths) ProjectsDir() string { return filepath.Join(p.StoreRoot, "projects") }

// DefaultAirflowRepo is the conventional checkout location offered by
// abm init.
func DefaultAirflowRepo() string {
	if v := os.Getenv("ABM_AIRFLOW_REPO"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "code", "airflow")
}

// DefaultWorktreeBase is the conventional worktree root offered by
// abm init.
func DefaultWorktreeBase() string {
	if v := os.Getenv("ABM_WORKTREE_BASE"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "code", "airflow-worktree")
}

// Load reads the global config, applying environment overrides.
// Returns ErrNotInitialized when the config file does not exist.
func Load(paths Paths) (*Config, error) {
	content, err := os.ReadFile(paths.ConfigFile())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: run 'abm init' first", ErrNotInitialized)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	content, err = migrate(content)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), kjson.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", paths.ConfigFile(), err)
	}

	// ABM_AIRFLOW_REPO -> airflow_repo, ABM_WORKTREE_BASE -> worktree_base.
	// Other ABM_* variables are not config keys and are dropped.
	if err := k.Load(env.Provider("ABM_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "ABM_"))
		switch key {
		case "airflow_repo", "worktree_base":
			return key
		}
		return ""
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.AirflowRepo == "" || cfg.WorktreeBase == "" {
		return nil, fmt.Errorf("config file %s is incomplete (airflow_repo and worktree_base are required)", paths.ConfigFile())
	}
	return &cfg, nil
}

// Save writes the config atomically with owner-only permissions.
func (c *Config) Save(paths Paths) error {
	if err := os.MkdirAll(paths.StoreRoot, 0o700); err != nil {
		return fmt.Errorf("failed to create store root %s: %w", paths.StoreRoot, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	tmp := paths.ConfigFile() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, paths.ConfigFile()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// migrate upgrades an older schema_version document to the current
// schema before decoding. Version 1 is current; unknown future versions
// are rejected rather than guessed at.
func migrate(content []byte) ([]byte, error) {
	var probe struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(content, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	switch {
	case probe.SchemaVersion > SchemaVersion:
		return nil, fmt.Errorf("config schema version %d is newer than supported version %d (upgrade abm)", probe.SchemaVersion, SchemaVersion)
	default:
		return content, nil
	}
}
