//go:build windows

package validation

import "golang.org/x/sys/windows"

// statfs reports the size of the volume holding dir and the bytes
// available to the calling user.
func statfs(dir string) (total, free int64, err error) {
	p, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return 0, 0, err
	}
	var avail, size, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(p, &avail, &size, &totalFree); err != nil {
		return 0, 0, err
	}
	return int64(size), int64(avail), nil
}
