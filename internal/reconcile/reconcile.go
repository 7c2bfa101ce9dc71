// Package reconcile implements the projected-file reconciler (C13): it
// links cached repo-file blobs into an issue's worktree via symlink (or a
// hard-link fallback where symlinks are refused) and keeps the worktree's
// git-exclude list and the managed-file set in sync across runs.
package reconcile

import (
	"os"
	"path/filepath"
)

// SyncStatus is one file's reconciliation outcome.
type SyncStatus string

const (
	StatusInSync                 SyncStatus = "in_sync"
	StatusDeferredWorktreeAbsent SyncStatus = "deferred_worktree_absent"
	StatusFailedConflict         SyncStatus = "failed_conflict"
	StatusFailedLinkCreate       SyncStatus = "failed_link_create"
	StatusFailedSourceMissing    SyncStatus = "failed_source_missing"
	StatusFailedExclude          SyncStatus = "failed_exclude"
	StatusNeverAttempted         SyncStatus = "never_attempted"
)

// FileResult is one file's reconciliation outcome.
type FileResult struct {
	RelPath    string
	Status     SyncStatus
	LastError  string
	TargetPath string
}

// Request is the reconciler's input: a worktree, the repo-files cache
// directory, the files to project, and the managed targets from the
// previous reconciliation (for stale cleanup).
type Request struct {
	WorktreeDir            string
	RepoFilesDir            string
	Files                   []string // relative paths to project, sourced from RepoFilesDir
	PreviousManagedTargets  []string // absolute target paths from the prior run
}

// Result is the reconciler's output.
type Result struct {
	Files              []FileResult
	RemovedStaleTargets []string
}

// Reconcile projects Request.Files into the worktree and removes any
// previously-managed target no longer in the current file set.
func Reconcile(req Request) Result {
	var result Result

	worktreeExists := dirExists(req.WorktreeDir)
	currentTargets := make(map[string]struct{}, len(req.Files))

	for _, relPath := range req.Files {
		target := filepath.Join(req.WorktreeDir, relPath)
		currentTargets[target] = struct{}{}

		if !worktreeExists {
			result.Files = append(result.Files, FileResult{RelPath: relPath, Status: StatusDeferredWorktreeAbsent, TargetPath: target})
			continue
		}
		source := filepath.Join(req.RepoFilesDir, relPath)
		result.Files = append(result.Files, reconcileOne(req.WorktreeDir, source, target, relPath))
	}

	for _, prevTarget := range req.PreviousManagedTargets {
		if _, stillWanted := currentTargets[prevTarget]; stillWanted {
			continue
		}
		removeManagedTarget(prevTarget)
		result.RemovedStaleTargets = append(result.RemovedStaleTargets, prevTarget)
	}
	pruneEmptyParents(result.RemovedStaleTargets, req.WorktreeDir)

	return result
}

func reconcileOne(worktreeDir, source, target, relPath string) FileResult {
	if !fileExists(source) {
		return FileResult{RelPath: relPath, Status: StatusFailedSourceMissing, TargetPath: target}
	}

	if existing, err := os.Lstat(target); err == nil {
		if !pointsTo(target, source, existing) {
			return FileResult{RelPath: relPath, Status: StatusFailedConflict, TargetPath: target}
		}
		if err := addToGitExclude(worktreeDir, target); err != nil {
			return FileResult{RelPath: relPath, Status: StatusFailedExclude, LastError: err.Error(), TargetPath: target}
		}
		return FileResult{RelPath: relPath, Status: StatusInSync, TargetPath: target}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return FileResult{RelPath: relPath, Status: StatusFailedLinkCreate, LastError: err.Error(), TargetPath: target}
	}
	if err := os.Symlink(source, target); err != nil {
		if linkErr := os.Link(source, target); linkErr != nil {
			return FileResult{RelPath: relPath, Status: StatusFailedLinkCreate, LastError: linkErr.Error(), TargetPath: target}
		}
	}
	if err := addToGitExclude(worktreeDir, target); err != nil {
		return FileResult{RelPath: relPath, Status: StatusFailedExclude, LastError: err.Error(), TargetPath: target}
	}
	return FileResult{RelPath: relPath, Status: StatusInSync, TargetPath: target}
}

// pointsTo reports whether target (already known to exist, per existing)
// resolves to source, either as a symlink or as a hard link (same device
// and inode).
func pointsTo(target, source string, existing os.FileInfo) bool {
	if existing.Mode()&os.ModeSymlink != 0 {
		resolved, err := os.Readlink(target)
		if err != nil {
			return false
		}
		return resolved == source || filepath.Clean(resolved) == filepath.Clean(source)
	}
	return sameInode(target, source)
}

func removeManagedTarget(target string) {
	_ = os.Remove(target)
}

func pruneEmptyParents(removed []string, worktreeDir string) {
	seen := map[string]struct{}{}
	for _, target := range removed {
		dir := filepath.Dir(target)
		for dir != worktreeDir && dir != "." && dir != "/" {
			if _, done := seen[dir]; done {
				break
			}
			seen[dir] = struct{}{}
			entries, err := os.ReadDir(dir)
			if err != nil || len(entries) > 0 {
				break
			}
			if rmErr := os.Remove(dir); rmErr != nil {
				break
			}
			dir = filepath.Dir(dir)
		}
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
