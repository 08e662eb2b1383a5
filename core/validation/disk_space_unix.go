//go:build !windows

package validation

import "golang.org/x/sys/unix"

// statfs reports the size of the filesystem holding dir and the bytes
// available to unprivileged users.
func statfs(dir string) (total, free int64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, 0, err
	}
	bsize := int64(st.Bsize)
	return int64(st.Blocks) * bsize, int64(st.Bavail) * bsize, nil
}
