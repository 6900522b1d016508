package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProjectCurrentFormat(t *testing.T) {
	data := []byte(`{
		"name": "dag-ui",
		"branch": "feature/dag-ui",
		"worktree_path": "/home/dev/code/airflow-worktree/dag-ui",
		"ports": {"webserver": 28183, "flower": 25658, "postgres": 25536, "mysql": 23409, "redis": 26482, "ssh": 12425},
		"backend": "postgres",
		"python_version": "3.11",
		"adopted": true,
		"frozen": false
	}`)

	p, err := decodeProject(data)
	require.NoError(t, err)
	assert.Equal(t, "dag-ui", p.Name)
	assert.True(t, p.Adopted)
	assert.Equal(t, 28183, p.Ports.Webserver)
	assert.Equal(t, 12425, p.Ports.SSH)
}

func TestDecodeProjectLegacyManagedWorktree(t *testing.T) {
	tests := []struct {
		name        string
		record      string
		wantAdopted bool
	}{
		{
			name:        "managed worktree is not adopted",
			record:      `{"name": "a", "managed_worktree": true, "ports": {"webserver": 28183, "flower": 25658, "postgres": 25536, "mysql": 23409, "redis": 26482, "ssh": 12425}}`,
			wantAdopted: false,
		},
		{
			name:        "unmanaged worktree is adopted",
			record:      `{"name": "a", "managed_worktree": false, "ports": {"webserver": 28183, "flower": 25658, "postgres": 25536, "mysql": 23409, "redis": 26482, "ssh": 12425}}`,
			wantAdopted: true,
		},
		{
			name:        "explicit adopted wins over legacy flag",
			record:      `{"name": "a", "adopted": true, "managed_worktree": true, "ports": {"webserver": 28183, "flower": 25658, "postgres": 25536, "mysql": 23409, "redis": 26482, "ssh": 12425}}`,
			wantAdopted: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := decodeProject([]byte(tt.record))
			require.NoError(t, err)
			assert.Equal(t, tt.wantAdopted, p.Adopted)
		})
	}
}

func TestDecodeProjectDerivesMissingSSHPort(t *testing.T) {
	// Record written before the ssh service existed, offset +3 from the
	// old defaults.
	data := []byte(`{
		"name": "old",
		"ports": {"webserver": 28083, "flower": 25558, "postgres": 25436, "mysql": 23309, "redis": 26382}
	}`)

	p, err := decodeProject(data)
	require.NoError(t, err)
	// Offset is preserved through the default shift: +3 above current.
	assert.Equal(t, 12425, p.Ports.SSH)
	assert.Equal(t, 28183, p.Ports.Webserver)
}

func TestDecodeProjectShiftsLegacyDefaultPorts(t *testing.T) {
	data := []byte(`{
		"name": "old",
		"ports": {"webserver": 28080, "flower": 25555, "postgres": 25433, "mysql": 23306, "redis": 26379, "ssh": 12322}
	}`)

	p, err := decodeProject(data)
	require.NoError(t, err)
	assert.Equal(t, 28180, p.Ports.Webserver)
	assert.Equal(t, 25655, p.Ports.Flower)
	assert.Equal(t, 25533, p.Ports.Postgres)
	assert.Equal(t, 23406, p.Ports.MySQL)
	assert.Equal(t, 26479, p.Ports.Redis)
	assert.Equal(t, 12422, p.Ports.SSH)
}

func TestDecodeProjectKeepsCurrentPorts(t *testing.T) {
	// A record already in the current default block must not be shifted
	// again.
	data := []byte(`{
		"name": "fresh",
		"ports": {"webserver": 28185, "flower": 25660, "postgres": 25538, "mysql": 23411, "redis": 26484, "ssh": 12427}
	}`)

	p, err := decodeProject(data)
	require.NoError(t, err)
	assert.Equal(t, 28185, p.Ports.Webserver)
	assert.Equal(t, 12427, p.Ports.SSH)
}

func TestDecodeProjectInvalidJSON(t *testing.T) {
	_, err := decodeProject([]byte("{broken"))
	assert.Error(t, err)
}
