package reconcile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jeeves/internal/atomicfile"
)

// addToGitExclude idempotently adds target (relative to worktreeDir) to
// <worktreeDir>/.git/info/exclude.
func addToGitExclude(worktreeDir, target string) error {
	rel, err := filepath.Rel(worktreeDir, target)
	if err != nil {
		rel = target
	}
	rel = filepath.ToSlash(rel)

	excludePath := filepath.Join(worktreeDir, ".git", "info", "exclude")
	existing, err := atomicfile.ReadFileOrEmpty(excludePath)
	if err != nil {
		return fmt.Errorf("reconcile: read git exclude: %w", err)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(existing)))
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == rel {
			return nil // already present
		}
	}

	var b strings.Builder
	b.Write(existing)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString(rel)
	b.WriteByte('\n')

	if err := os.MkdirAll(filepath.Dir(excludePath), 0o755); err != nil {
		return fmt.Errorf("reconcile: ensure git info dir: %w", err)
	}
	return atomicfile.WriteTextAtomic(excludePath, b.String())
}
