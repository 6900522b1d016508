package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/abm/internal/config"
	"github.com/fyrsmithlabs/abm/internal/ports"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	paths := config.Paths{StoreRoot: t.TempDir()}
	require.NoError(t, os.MkdirAll(paths.ProjectsDir(), 0o755))
	return New(paths, nil)
}

func testProject(name string) *Project {
	return &Project{
		Name:          name,
		Branch:        name,
		WorktreePath:  "/tmp/worktrees/" + name,
		Ports:         ports.Ports{Webserver: 28180, Flower: 25655, Postgres: 25533, MySQL: 23406, Redis: 26479, SSH: 12422},
		Description:   "test project",
		Backend:       "sqlite",
		PythonVersion: "3.11",
		CreatedAt:     "2025-06-01T10:00:00Z",
	}
}

func TestPutGetRoundtrip(t *testing.T) {
	s := newTestStore(t)
	want := testProject("dag-ui")
	pr := 45123
	want.PRNumber = &pr
	want.Adopted = true

	require.NoError(t, s.Put(want))
	got, err := s.Get("dag-ui")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSorted(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"zebra", "alpha", "middle"} {
		require.NoError(t, s.Put(testProject(name)))
	}

	projects, err := s.List()
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "alpha", projects[0].Name)
	assert.Equal(t, "middle", projects[1].Name)
	assert.Equal(t, "zebra", projects[2].Name)
}

func TestListSkipsCorruptAndMismatchedRecords(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(testProject("good")))

	// Corrupt record.
	corrupt := s.ProjectDir("corrupt")
	require.NoError(t, os.MkdirAll(corrupt, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(corrupt, recordFile), []byte("{not json"), 0o644))

	// Record whose name does not match its folder.
	liar := s.ProjectDir("liar")
	require.NoError(t, os.MkdirAll(liar, 0o755))
	data := `{"name":"impostor","branch":"b","worktree_path":"/tmp/x","ports":{"webserver":28180,"flower":25655,"postgres":25533,"mysql":23406,"redis":26479,"ssh":12422}}`
	require.NoError(t, os.WriteFile(filepath.Join(liar, recordFile), []byte(data), 0o644))

	// Docs-only folder, as left behind by remove --keep-docs.
	leftover := s.ProjectDir("leftover")
	require.NoError(t, os.MkdirAll(leftover, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(leftover, "PROJECT.md"), []byte("# notes"), 0o644))

	projects, err := s.List()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "good", projects[0].Name)
}

func TestListEmptyStore(t *testing.T) {
	s := New(config.Paths{StoreRoot: filepath.Join(t.TempDir(), "nonexistent")}, nil)
	projects, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(testProject("doomed")))

	require.NoError(t, s.Delete("doomed", false))
	_, err := s.Get("doomed")
	assert.ErrorIs(t, err, ErrNotFound)
	_, statErr := os.Stat(s.ProjectDir("doomed"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDeleteKeepDocs(t *testing.T) {
	s := newTestStore(t)
	p := testProject("keeper")
	require.NoError(t, s.Put(p))
	require.NoError(t, s.WriteDocs(p))

	require.NoError(t, s.Delete("keeper", true))

	_, err := s.Get("keeper")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = os.Stat(filepath.Join(s.ProjectDir("keeper"), "PROJECT.md"))
	assert.NoError(t, err, "PROJECT.md survives --keep-docs")
	_, err = os.Stat(filepath.Join(s.ProjectDir("keeper"), "CLAUDE.md"))
	assert.True(t, os.IsNotExist(err), "CLAUDE.md does not survive")
}

func TestFindByWorktree(t *testing.T) {
	s := newTestStore(t)
	p := testProject("dag-ui")
	p.WorktreePath = filepath.Join(t.TempDir(), "dag-ui")
	require.NoError(t, s.Put(p))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "exact path", path: p.WorktreePath},
		{name: "path inside worktree", path: filepath.Join(p.WorktreePath, "airflow-core", "src")},
		{name: "sibling with common prefix", path: p.WorktreePath + "-v2", wantErr: true},
		{name: "unrelated path", path: "/somewhere/else", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindByWorktree(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "dag-ui", got.Name)
		})
	}
}

func TestWriteDocsPreservesExisting(t *testing.T) {
	s := newTestStore(t)
	p := testProject("notes")
	require.NoError(t, s.WriteDocs(p))

	custom := []byte("# my own notes\n")
	require.NoError(t, os.WriteFile(filepath.Join(s.ProjectDir("notes"), "PROJECT.md"), custom, 0o644))

	require.NoError(t, s.WriteDocs(p))
	got, err := os.ReadFile(filepath.Join(s.ProjectDir("notes"), "PROJECT.md"))
	require.NoError(t, err)
	assert.Equal(t, custom, got)
}

func TestLockExcludes(t *testing.T) {
	s := newTestStore(t)

	lock, err := s.Lock("dag-ui")
	require.NoError(t, err)

	_, err = s.Lock("dag-ui")
	assert.ErrorIs(t, err, ErrLockBusy)

	// A different record is unaffected.
	other, err := s.Lock("other")
	require.NoError(t, err)
	require.NoError(t, other.Release())

	require.NoError(t, lock.Release())
	relocked, err := s.Lock("dag-ui")
	require.NoError(t, err)
	require.NoError(t, relocked.Release())
}

func TestLockReleaseIdempotent(t *testing.T) {
	s := newTestStore(t)
	lock, err := s.Lock("dag-ui")
	require.NoError(t, err)
	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())
}

func TestWithLockReleasesOnError(t *testing.T) {
	s := newTestStore(t)

	err := s.WithLock("dag-ui", func() error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)

	// The lock must have been released despite the error.
	lock, err := s.Lock("dag-ui")
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}
