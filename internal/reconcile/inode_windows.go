//go:build windows

package reconcile

import "os"

// sameInode falls back to a size+modtime heuristic on Windows, where
// syscall.Stat_t's device/inode fields are not available through os.FileInfo.
func sameInode(target, source string) bool {
	ti, err := os.Stat(target)
	if err != nil {
		return false
	}
	si, err := os.Stat(source)
	if err != nil {
		return false
	}
	return ti.Size() == si.Size() && ti.ModTime().Equal(si.ModTime())
}
