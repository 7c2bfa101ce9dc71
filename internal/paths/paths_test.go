package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"jeeves/internal/domain"
)

func fixedEnv(values map[string]string) EnvLookup {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestResolveOverrideWins(t *testing.T) {
	l := Resolve(fixedEnv(map[string]string{"JEEVES_DATA_DIR": "/custom/root"}), "linux", "/home/u")
	assert.Equal(t, "/custom/root", l.Root)
}

func TestResolveLinuxXDG(t *testing.T) {
	l := Resolve(fixedEnv(map[string]string{"XDG_DATA_HOME": "/home/u/.data"}), "linux", "/home/u")
	assert.Equal(t, filepath.Join("/home/u/.data", "jeeves"), l.Root)
}

func TestResolveLinuxDefault(t *testing.T) {
	l := Resolve(fixedEnv(nil), "linux", "/home/u")
	assert.Equal(t, filepath.Join("/home/u", ".local", "share", "jeeves"), l.Root)
}

func TestResolveDarwin(t *testing.T) {
	l := Resolve(fixedEnv(nil), "darwin", "/Users/u")
	assert.Equal(t, filepath.Join("/Users/u", "Library", "Application Support", "jeeves"), l.Root)
}

func TestResolveWindows(t *testing.T) {
	l := Resolve(fixedEnv(map[string]string{"LOCALAPPDATA": `C:\Users\u\AppData\Local`}), "windows", `C:\Users\u`)
	assert.Equal(t, filepath.Join(`C:\Users\u\AppData\Local`, "jeeves"), l.Root)
}

func TestIssueStateDirIsUnderWorktree(t *testing.T) {
	l := Layout{Root: "/data"}
	ref := domain.IssueRef{Owner: "acme", Repo: "widget", Number: 42}
	assert.Equal(t, filepath.Join("/data", "worktrees", "acme", "widget", "issue-42", ".jeeves"), l.IssueStateDir(ref))
}

func TestLegacyIssueDirLayout(t *testing.T) {
	l := Layout{Root: "/data"}
	ref := domain.IssueRef{Owner: "acme", Repo: "widget", Number: 7}
	assert.Equal(t, filepath.Join("/data", "issues", "acme", "widget", "7", "issue.json"), l.LegacyIssueJSON(ref))
}
