//go:build !windows

package reconcile

import (
	"os"
	"syscall"
)

// sameInode reports whether target and source are hard links to the same
// file (same device and inode), the only reliable "is this our link"
// signal once symlink resolution has been ruled out.
func sameInode(target, source string) bool {
	ti, err := os.Stat(target)
	if err != nil {
		return false
	}
	si, err := os.Stat(source)
	if err != nil {
		return false
	}
	tStat, ok := ti.Sys().(*syscall.Stat_t)
	if !ok {
		return false
	}
	sStat, ok := si.Sys().(*syscall.Stat_t)
	if !ok {
		return false
	}
	return tStat.Dev == sStat.Dev && tStat.Ino == sStat.Ino
}
