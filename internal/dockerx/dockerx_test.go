package dockerx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContainers(t *testing.T) {
	out := "abc123\tabm-dag-ui-postgres-1\tpostgres\t/home/dev/wt/dag-ui\n" +
		"def456\tsome-other\t\t\n" +
		"\n" +
		"ghi789\tbad-line-too-few-fields\n"

	containers := parseContainers(out)
	require.Len(t, containers, 2)

	assert.Equal(t, "abc123", containers[0].ID)
	assert.Equal(t, "abm-dag-ui-postgres-1", containers[0].Name)
	assert.Equal(t, "postgres", containers[0].Service)
	assert.Equal(t, "/home/dev/wt/dag-ui", containers[0].WorkingDir)

	assert.Equal(t, "def456", containers[1].ID)
	assert.Empty(t, containers[1].WorkingDir)
}

func TestBelongsTo(t *testing.T) {
	tests := []struct {
		name       string
		workingDir string
		worktree   string
		want       bool
	}{
		{name: "exact match", workingDir: "/wt/dag-ui", worktree: "/wt/dag-ui", want: true},
		{name: "subdirectory", workingDir: "/wt/dag-ui/airflow-core", worktree: "/wt/dag-ui", want: true},
		{name: "name prefix is not a match", workingDir: "/wt/dag-ui-v2", worktree: "/wt/dag-ui", want: false},
		{name: "unrelated", workingDir: "/elsewhere", worktree: "/wt/dag-ui", want: false},
		{name: "no label", workingDir: "", worktree: "/wt/dag-ui", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := Container{WorkingDir: tt.workingDir}
			assert.Equal(t, tt.want, ct.BelongsTo(tt.worktree))
		})
	}
}
