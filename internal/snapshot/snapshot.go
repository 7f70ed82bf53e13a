// Package snapshot copies a source tree into an allocated backup slot and
// records where it came from.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/majorcontext/keepsake/internal/log"
	"github.com/majorcontext/keepsake/internal/manifest"
	"github.com/majorcontext/keepsake/internal/slot"
	"github.com/majorcontext/keepsake/internal/tree"
)

// timeLayout is the manifest Time field layout.
const timeLayout = "15:04:05"

// Writer fills allocated slots.
type Writer struct {
	// Exclude leaves matching entries out of the copy. Nil copies everything.
	Exclude Matcher
	// Now returns the time recorded in the manifest. Defaults to time.Now.
	Now func() time.Time
}

// Result describes a written snapshot.
type Result struct {
	SlotPath     string
	ManifestPath string
	Manifest     manifest.Manifest
}

// Write copies source into slotPath/item and then writes the slot's
// manifest with description appended.
//
// The manifest is written only after the whole tree has been copied. On a
// copy failure the partial copy is removed and a *tree.CopyError returned,
// so the slot never carries a manifest for incomplete data. If the copy
// succeeds but the manifest cannot be written, a *manifest.WriteError is
// returned and the copied tree is kept.
func (w *Writer) Write(source, item, slotPath, description string) (Result, error) {
	slotName := filepath.Base(slotPath)
	slotItem, n, ok := slot.ParseName(slotName)
	if !ok {
		return Result{}, fmt.Errorf("not a slot directory: %s", slotPath)
	}
	if slotItem != item {
		return Result{}, fmt.Errorf("slot %s does not belong to item %q", slotName, item)
	}
	bucket := filepath.Base(filepath.Dir(slotPath))

	absSource, err := filepath.Abs(source)
	if err != nil {
		return Result{}, &tree.CopyError{Op: "resolve", Path: source, Err: err}
	}
	absSlot, err := filepath.Abs(slotPath)
	if err != nil {
		return Result{}, &tree.CopyError{Op: "resolve", Path: slotPath, Err: err}
	}
	if within(absSource, absSlot) {
		return Result{}, &tree.CopyError{Op: "resolve", Path: absSource, Err: errors.New("backup slot lies inside the source tree")}
	}

	dst := filepath.Join(absSlot, item)
	opts := tree.CopyOptions{}
	if w.Exclude != nil {
		opts.Skip = w.Exclude.Match
	}

	log.Debug("copying source tree", "source", absSource, "dest", dst)
	if err := tree.Copy(absSource, dst, opts); err != nil {
		if rmErr := os.RemoveAll(dst); rmErr != nil {
			log.Warn("failed to remove partial copy", "path", dst, "error", rmErr)
		}
		return Result{}, err
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	m := manifest.Manifest{
		OriginalPath: absSource,
		BackupPath:   absSlot,
		SolutionName: item,
		Date:         bucket,
		Time:         now().Format(timeLayout),
		Description:  description,
	}
	manifestPath := filepath.Join(absSlot, slot.ManifestName(bucket, n, item))
	if err := manifest.Write(manifestPath, m); err != nil {
		return Result{}, err
	}
	log.Debug("manifest written", "path", manifestPath)

	return Result{SlotPath: absSlot, ManifestPath: manifestPath, Manifest: m}, nil
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
