package fswatch

import "os"

// statSize returns the file's size in bytes, or 0 if it can no longer
// be stat'd (already deleted, or a deleted-path event where there is
// nothing left to measure).
func statSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
