package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepoFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func TestReconcileCreatesSymlinkAndExcludesIt(t *testing.T) {
	repoFiles := setupRepoFiles(t, map[string]string{"notes/plan.md": "hello"})
	worktree := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(worktree, ".git"), 0o755))

	result := Reconcile(Request{
		WorktreeDir:  worktree,
		RepoFilesDir: repoFiles,
		Files:        []string{"notes/plan.md"},
	})

	require.Len(t, result.Files, 1)
	assert.Equal(t, StatusInSync, result.Files[0].Status)

	target := filepath.Join(worktree, "notes/plan.md")
	info, err := os.Lstat(target)
	require.NoError(t, err)
	assert.True(t, info.Mode()&os.ModeSymlink != 0)

	excludeContent, err := os.ReadFile(filepath.Join(worktree, ".git", "info", "exclude"))
	require.NoError(t, err)
	assert.Contains(t, string(excludeContent), "notes/plan.md")
}

func TestReconcileDeferredWhenWorktreeAbsent(t *testing.T) {
	repoFiles := setupRepoFiles(t, map[string]string{"a.txt": "x"})
	result := Reconcile(Request{
		WorktreeDir:  filepath.Join(t.TempDir(), "missing"),
		RepoFilesDir: repoFiles,
		Files:        []string{"a.txt"},
	})
	require.Len(t, result.Files, 1)
	assert.Equal(t, StatusDeferredWorktreeAbsent, result.Files[0].Status)
}

func TestReconcileFailsSourceMissing(t *testing.T) {
	repoFiles := t.TempDir()
	worktree := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(worktree, ".git"), 0o755))

	result := Reconcile(Request{
		WorktreeDir:  worktree,
		RepoFilesDir: repoFiles,
		Files:        []string{"ghost.txt"},
	})
	require.Len(t, result.Files, 1)
	assert.Equal(t, StatusFailedSourceMissing, result.Files[0].Status)
}

func TestReconcileConflictsWithForeignFile(t *testing.T) {
	repoFiles := setupRepoFiles(t, map[string]string{"a.txt": "source"})
	worktree := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(worktree, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(worktree, "a.txt"), []byte("unrelated"), 0o644))

	result := Reconcile(Request{
		WorktreeDir:  worktree,
		RepoFilesDir: repoFiles,
		Files:        []string{"a.txt"},
	})
	require.Len(t, result.Files, 1)
	assert.Equal(t, StatusFailedConflict, result.Files[0].Status)
}

func TestReconcileRemovesStaleTargets(t *testing.T) {
	repoFiles := setupRepoFiles(t, map[string]string{"keep.txt": "k"})
	worktree := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(worktree, ".git"), 0o755))

	staleDir := filepath.Join(worktree, "old")
	require.NoError(t, os.MkdirAll(staleDir, 0o755))
	staleTarget := filepath.Join(staleDir, "gone.txt")
	require.NoError(t, os.Symlink(filepath.Join(repoFiles, "keep.txt"), staleTarget))

	result := Reconcile(Request{
		WorktreeDir:            worktree,
		RepoFilesDir:           repoFiles,
		Files:                  []string{"keep.txt"},
		PreviousManagedTargets: []string{staleTarget},
	})

	assert.Contains(t, result.RemovedStaleTargets, staleTarget)
	_, err := os.Lstat(staleTarget)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(staleDir)
	assert.True(t, os.IsNotExist(err), "emptied parent directory should be pruned")
}

func TestReconcileIsIdempotent(t *testing.T) {
	repoFiles := setupRepoFiles(t, map[string]string{"a.txt": "x"})
	worktree := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(worktree, ".git"), 0o755))

	req := Request{WorktreeDir: worktree, RepoFilesDir: repoFiles, Files: []string{"a.txt"}}
	first := Reconcile(req)
	second := Reconcile(req)
	assert.Equal(t, StatusInSync, first.Files[0].Status)
	assert.Equal(t, StatusInSync, second.Files[0].Status)
}
