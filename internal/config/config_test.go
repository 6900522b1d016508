package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNotInitialized(t *testing.T) {
	paths := Paths{StoreRoot: t.TempDir()}
	_, err := Load(paths)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	paths := Paths{StoreRoot: t.TempDir()}
	want := &Config{
		SchemaVersion: SchemaVersion,
		AirflowRepo:   "/home/dev/code/airflow",
		WorktreeBase:  "/home/dev/code/airflow-worktree",
	}
	require.NoError(t, want.Save(paths))

	got, err := Load(paths)
	require.NoError(t, err)
	assert.Equal(t, want.AirflowRepo, got.AirflowRepo)
	assert.Equal(t, want.WorktreeBase, got.WorktreeBase)
}

func TestLoadEnvOverrides(t *testing.T) {
	paths := Paths{StoreRoot: t.TempDir()}
	cfg := &Config{
		SchemaVersion: SchemaVersion,
		AirflowRepo:   "/stored/airflow",
		WorktreeBase:  "/stored/worktrees",
	}
	require.NoError(t, cfg.Save(paths))

	t.Setenv("ABM_AIRFLOW_REPO", "/override/airflow")
	t.Setenv("ABM_LOG_LEVEL", "debug") // not a config key, must be ignored

	got, err := Load(paths)
	require.NoError(t, err)
	assert.Equal(t, "/override/airflow", got.AirflowRepo)
	assert.Equal(t, "/stored/worktrees", got.WorktreeBase)
}

func TestLoadIncompleteConfig(t *testing.T) {
	paths := Paths{StoreRoot: t.TempDir()}
	require.NoError(t, os.WriteFile(paths.ConfigFile(), []byte(`{"schema_version": 1, "airflow_repo": "/a"}`), 0o600))

	_, err := Load(paths)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worktree_base")
}

func TestLoadRejectsNewerSchema(t *testing.T) {
	paths := Paths{StoreRoot: t.TempDir()}
	data := `{"schema_version": 99, "airflow_repo": "/a", "worktree_base": "/b"}`
	require.NoError(t, os.WriteFile(paths.ConfigFile(), []byte(data), 0o600))

	_, err := Load(paths)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer")
}

func TestDefaultPathsHonorsABMHome(t *testing.T) {
	t.Setenv("ABM_HOME", "/custom/abm-home")
	paths, err := DefaultPaths()
	require.NoError(t, err)
	assert.Equal(t, "/custom/abm-home", paths.StoreRoot)
	assert.Equal(t, filepath.Join("/custom/abm-home", ".abm.json"), paths.ConfigFile())
	assert.Equal(t, filepath.Join("/custom/abm-home", "projects"), paths.ProjectsDir())
}
