// Package paths resolves jeeves's on-disk data layout (C1): a
// platform-specific root directory, overridable by environment variable,
// holding the issue tree, worktrees, repo-file cache, sqlite database, and
// the active-issue pointer.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"jeeves/internal/domain"
)

// EnvLookup abstracts os.LookupEnv so tests can inject a fixed environment
// without mutating the process's real one.
type EnvLookup func(key string) (string, bool)

// DefaultEnvLookup reads from the process environment.
func DefaultEnvLookup(key string) (string, bool) { return os.LookupEnv(key) }

func lookup(env EnvLookup, key string) (string, bool) {
	if env == nil {
		env = DefaultEnvLookup
	}
	v, ok := env(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Layout resolves all of jeeves's data paths against a single root.
type Layout struct {
	Root string
}

// Resolve computes the data root: $JEEVES_DATA_DIR override if set,
// otherwise the platform default (Windows %LOCALAPPDATA%/jeeves, macOS
// ~/Library/Application Support/jeeves, Linux $XDG_DATA_HOME/jeeves or
// ~/.local/share/jeeves).
func Resolve(env EnvLookup, goos, home string) Layout {
	if override, ok := lookup(env, "JEEVES_DATA_DIR"); ok {
		return Layout{Root: override}
	}
	return Layout{Root: defaultRoot(env, goos, home)}
}

// ResolveDefault resolves using the real process environment, runtime.GOOS,
// and os.UserHomeDir.
func ResolveDefault() Layout {
	home, _ := os.UserHomeDir()
	return Resolve(DefaultEnvLookup, runtime.GOOS, home)
}

func defaultRoot(env EnvLookup, goos, home string) string {
	switch goos {
	case "windows":
		if localAppData, ok := lookup(env, "LOCALAPPDATA"); ok {
			return filepath.Join(localAppData, "jeeves")
		}
		return filepath.Join(home, "AppData", "Local", "jeeves")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "jeeves")
	default:
		if dataHome, ok := lookup(env, "XDG_DATA_HOME"); ok {
			return filepath.Join(dataHome, "jeeves")
		}
		return filepath.Join(home, ".local", "share", "jeeves")
	}
}

// IssueDir is <root>/issues/<owner>/<repo>/<number>, the legacy on-disk
// issue directory still supported on read.
func (l Layout) IssueDir(ref domain.IssueRef) string {
	return filepath.Join(l.Root, "issues", ref.Owner, ref.Repo, strconv.Itoa(ref.Number))
}

// LegacyIssueJSON is the legacy issue.json path under IssueDir.
func (l Layout) LegacyIssueJSON(ref domain.IssueRef) string {
	return filepath.Join(l.IssueDir(ref), "issue.json")
}

// LegacyTasksJSON is the legacy tasks.json path under IssueDir.
func (l Layout) LegacyTasksJSON(ref domain.IssueRef) string {
	return filepath.Join(l.IssueDir(ref), "tasks.json")
}

// ActiveIssueFile is <root>/active-issue.json, the legacy pointer to the
// currently selected issue.
func (l Layout) ActiveIssueFile() string {
	return filepath.Join(l.Root, "active-issue.json")
}

// WorktreeDir is <root>/worktrees/<owner>/<repo>/issue-<number>.
func (l Layout) WorktreeDir(ref domain.IssueRef) string {
	return filepath.Join(l.Root, "worktrees", ref.Owner, ref.Repo, "issue-"+strconv.Itoa(ref.Number))
}

// IssueStateDir is the canonical state directory for an issue: <worktree>/.jeeves.
func (l Layout) IssueStateDir(ref domain.IssueRef) string {
	return filepath.Join(l.WorktreeDir(ref), ".jeeves")
}

// RepoFilesIndex is <root>/repo-files/<owner>/<repo>/index.json.
func (l Layout) RepoFilesIndex(owner, repo string) string {
	return filepath.Join(l.Root, "repo-files", owner, repo, "index.json")
}

// RepoFileBlob is <root>/repo-files/<owner>/<repo>/blobs/<id>.
func (l Layout) RepoFileBlob(owner, repo, id string) string {
	return filepath.Join(l.Root, "repo-files", owner, repo, "blobs", id)
}

// DatabasePath is <root>/jeeves.db, the sqlite store.
func (l Layout) DatabasePath() string {
	return filepath.Join(l.Root, "jeeves.db")
}
