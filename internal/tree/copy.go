// Package tree copies and clears directory trees.
package tree

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// CopyError reports a failure while copying a tree.
type CopyError struct {
	Op   string
	Path string
	Err  error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CopyError) Unwrap() error {
	return e.Err
}

// ErrSymlinkCycle is returned when following symlinks would recurse into a
// directory that is already being copied.
var ErrSymlinkCycle = errors.New("symlink cycle")

// CopyOptions configures Copy.
type CopyOptions struct {
	// Skip reports whether the entry at rel (relative to the copy root,
	// OS separators) should be left out. Skipped directories are not
	// descended into.
	Skip func(rel string, isDir bool) bool
	// Overwrite allows copying into existing directories and replacing
	// existing files. Without it the destination must not exist.
	Overwrite bool
}

// Copy copies src to dst. src may be a file or a directory.
//
// Symlinks are followed: the backup holds the data they point at, never the
// links themselves. File contents, permission bits and modification times
// are preserved.
func Copy(src, dst string, opts CopyOptions) error {
	c := copier{opts: opts, active: make(map[string]bool)}
	return c.copy(src, dst, ".")
}

type copier struct {
	opts CopyOptions
	// active holds the resolved paths of directories currently being
	// copied, to detect symlink loops.
	active map[string]bool
}

func (c *copier) copy(src, dst, rel string) error {
	info, err := os.Stat(src)
	if err != nil {
		return &CopyError{Op: "stat", Path: src, Err: err}
	}

	switch {
	case info.IsDir():
		return c.copyDir(src, dst, rel, info)
	case info.Mode().IsRegular():
		return c.copyFile(src, dst, info)
	default:
		return &CopyError{Op: "stat", Path: src, Err: fmt.Errorf("unsupported file type %s", info.Mode().Type())}
	}
}

func (c *copier) copyDir(src, dst, rel string, info fs.FileInfo) error {
	resolved, err := filepath.EvalSymlinks(src)
	if err != nil {
		return &CopyError{Op: "resolve", Path: src, Err: err}
	}
	if c.active[resolved] {
		return &CopyError{Op: "resolve", Path: src, Err: ErrSymlinkCycle}
	}
	c.active[resolved] = true
	defer delete(c.active, resolved)

	if err := os.Mkdir(dst, info.Mode().Perm()|0700); err != nil {
		existing, statErr := os.Stat(dst)
		if !c.opts.Overwrite || !errors.Is(err, fs.ErrExist) || statErr != nil || !existing.IsDir() {
			return &CopyError{Op: "mkdir", Path: dst, Err: err}
		}
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return &CopyError{Op: "read", Path: src, Err: err}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := entry.Name()
		childRel := name
		if rel != "." {
			childRel = filepath.Join(rel, name)
		}
		childSrc := filepath.Join(src, name)

		if c.opts.Skip != nil {
			isDir := entry.IsDir()
			if entry.Type()&fs.ModeSymlink != 0 {
				if target, err := os.Stat(childSrc); err == nil {
					isDir = target.IsDir()
				}
			}
			if c.opts.Skip(childRel, isDir) {
				continue
			}
		}

		if err := c.copy(childSrc, filepath.Join(dst, name), childRel); err != nil {
			return err
		}
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return &CopyError{Op: "chmod", Path: dst, Err: err}
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return &CopyError{Op: "chtimes", Path: dst, Err: err}
	}
	return nil
}

func (c *copier) copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return &CopyError{Op: "open", Path: src, Err: err}
	}
	defer in.Close()

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if c.opts.Overwrite {
		if existing, err := os.Lstat(dst); err == nil {
			if existing.IsDir() {
				return &CopyError{Op: "create", Path: dst, Err: fmt.Errorf("destination is a directory")}
			}
			if err := removeWithRetry(dst); err != nil {
				return &CopyError{Op: "replace", Path: dst, Err: err}
			}
		}
	}

	out, err := os.OpenFile(dst, flags, info.Mode().Perm()|0200)
	if err != nil {
		return &CopyError{Op: "create", Path: dst, Err: err}
	}
	_, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	if copyErr != nil {
		return &CopyError{Op: "write", Path: dst, Err: copyErr}
	}
	if closeErr != nil {
		return &CopyError{Op: "close", Path: dst, Err: closeErr}
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return &CopyError{Op: "chmod", Path: dst, Err: err}
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return &CopyError{Op: "chtimes", Path: dst, Err: err}
	}
	return nil
}
