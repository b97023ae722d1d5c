//go:build linux

package storage

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// CreationTime returns the filesystem birth time of path when the kernel and
// filesystem report one, and the modification time otherwise.
func CreationTime(path string, info fs.FileInfo) time.Time {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_STATX_SYNC_AS_STAT, unix.STATX_BTIME, &stx)
	if err != nil || stx.Mask&unix.STATX_BTIME == 0 || stx.Btime.Sec == 0 {
		return info.ModTime()
	}

	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
}
