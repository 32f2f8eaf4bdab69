//go:build unix

package main

import "golang.org/x/sys/unix"

// checkDiskSpace returns the free bytes available to the daemon on the
// filesystem holding path.
func checkDiskSpace(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}
