//go:build !unix && !windows

package tree

import "os"

func makeWritable(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	return os.Chmod(path, info.Mode().Perm()|0700)
}
