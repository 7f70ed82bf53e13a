package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ClearError reports an entry that could not be removed while clearing a
// directory. The directory may be partially cleared.
type ClearError struct {
	Path string
	Err  error
}

func (e *ClearError) Error() string {
	return fmt.Sprintf("clear: remove %s: %v", e.Path, e.Err)
}

func (e *ClearError) Unwrap() error {
	return e.Err
}

// Clear removes every entry inside dir, leaving dir itself in place.
//
// Files and symlinks are removed directly and directories recursively.
// An entry refusing removal because it (or its parent) is read-only gets
// its write permission restored and is retried once.
func Clear(dir string) error {
	entries, err := readDirWithRetry(dir)
	if err != nil {
		return &ClearError{Path: dir, Err: err}
	}
	for _, entry := range entries {
		if err := removeTree(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func removeTree(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &ClearError{Path: path, Err: err}
	}

	if info.IsDir() {
		entries, err := readDirWithRetry(path)
		if err != nil {
			return &ClearError{Path: path, Err: err}
		}
		for _, entry := range entries {
			if err := removeTree(filepath.Join(path, entry.Name())); err != nil {
				return err
			}
		}
	}

	if err := removeWithRetry(path); err != nil {
		return &ClearError{Path: path, Err: err}
	}
	return nil
}

// removeWithRetry removes a single file, symlink or empty directory.
func removeWithRetry(path string) error {
	err := remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if !errors.Is(err, fs.ErrPermission) {
		return err
	}

	if werr := makeWritable(path); werr != nil {
		return errors.Join(err, werr)
	}
	if werr := makeWritable(filepath.Dir(path)); werr != nil {
		return errors.Join(err, werr)
	}
	if err := remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func readDirWithRetry(dir string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err == nil || !errors.Is(err, fs.ErrPermission) {
		return entries, err
	}
	if werr := makeWritable(dir); werr != nil {
		return nil, errors.Join(err, werr)
	}
	return os.ReadDir(dir)
}
