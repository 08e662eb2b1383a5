package validation

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// DiskSpaceInfo describes the filesystem holding a path.
type DiskSpaceInfo struct {
	Path  string
	Total int64
	Free  int64
}

// UsedPercent is the share of the filesystem in use, 0 to 100.
func (d *DiskSpaceInfo) UsedPercent() float64 {
	if d.Total <= 0 {
		return 0
	}
	return float64(d.Total-d.Free) / float64(d.Total) * 100
}

// DiskSpaceError reports insufficient free space.
type DiskSpaceError struct {
	Path      string
	Required  int64
	Available int64
}

func (e *DiskSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space at %s: need %s, have %s free",
		e.Path, humanize.IBytes(uint64(e.Required)), humanize.IBytes(uint64(e.Available)))
}

// GetDiskSpace reports space for the filesystem containing path. A path that
// does not exist yet is resolved through its nearest existing parent.
func GetDiskSpace(path string) (*DiskSpaceInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	for {
		info, err := os.Stat(abs)
		if err == nil {
			if !info.IsDir() {
				abs = filepath.Dir(abs)
			}
			break
		}
		parent := filepath.Dir(abs)
		if !os.IsNotExist(err) || parent == abs {
			return nil, fmt.Errorf("cannot access path %s: %w", path, err)
		}
		abs = parent
	}

	total, free, err := statfs(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk space for %s: %w", abs, err)
	}
	return &DiskSpaceInfo{Path: abs, Total: total, Free: free}, nil
}

// CheckDiskSpace returns a *DiskSpaceError when path has less than
// requiredBytes free.
func CheckDiskSpace(path string, requiredBytes int64) error {
	info, err := GetDiskSpace(path)
	if err != nil {
		return err
	}
	if info.Free < requiredBytes {
		return &DiskSpaceError{Path: info.Path, Required: requiredBytes, Available: info.Free}
	}
	return nil
}
