package gitx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorktreeListHasBranch(t *testing.T) {
	porcelain := `worktree /home/dev/code/airflow
HEAD 0123456789abcdef0123456789abcdef01234567
branch refs/heads/main

worktree /home/dev/code/airflow-worktree/dag-ui
HEAD fedcba9876543210fedcba9876543210fedcba98
branch refs/heads/feature/dag-ui

worktree /home/dev/code/airflow-worktree/detached
HEAD 1111111111111111111111111111111111111111
detached
`

	tests := []struct {
		branch string
		want   bool
	}{
		{"main", true},
		{"feature/dag-ui", true},
		{"dag-ui", false},  // suffix of a checked-out branch
		{"feature", false}, // prefix of a checked-out branch
		{"nonexistent", false},
	}
	for _, tt := range tests {
		t.Run(tt.branch, func(t *testing.T) {
			assert.Equal(t, tt.want, worktreeListHasBranch(porcelain, tt.branch))
		})
	}
}
