//go:build linux || darwin

package store

import (
	"time"

	"golang.org/x/sys/unix"
)

// lchtimes sets atime/mtime on path without following a trailing symlink,
// using AT_SYMLINK_NOFOLLOW — required by invariant I2, which stamps the
// symlink itself, never its target.
func lchtimes(path string, atime, mtime time.Time) error {
	ts := []unix.Timespec{
		unix.NsecToTimespec(atime.UnixNano()),
		unix.NsecToTimespec(mtime.UnixNano()),
	}
	return unix.UtimesNanoAt(unix.AT_FDCWD, path, ts, unix.AT_SYMLINK_NOFOLLOW)
}
