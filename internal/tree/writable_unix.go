//go:build unix

package tree

import (
	"os"

	"golang.org/x/sys/unix"
)

// makeWritable grants the owner write access to path. Directories also get
// read and search access so their entries can be listed and removed.
func makeWritable(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil
	}
	mode := uint32(info.Mode().Perm()) | unix.S_IWUSR
	if info.IsDir() {
		mode |= unix.S_IRUSR | unix.S_IXUSR
	}
	return unix.Chmod(path, mode)
}
