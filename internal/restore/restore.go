// Package restore replaces a directory's contents with a backed-up tree.
//
// The destination of a restore always comes from the manifest stored in the
// slot; it is never derived from the slot's own location.
package restore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/majorcontext/keepsake/internal/log"
	"github.com/majorcontext/keepsake/internal/manifest"
	"github.com/majorcontext/keepsake/internal/slot"
	"github.com/majorcontext/keepsake/internal/tree"
)

// ErrManifestMissing is returned when a slot holds no manifest.
var ErrManifestMissing = errors.New("slot has no manifest")

// ErrOverlap is wrapped in the *tree.ClearError returned when a restore
// destination is the slot, lies inside it, or contains it.
var ErrOverlap = errors.New("destination overlaps the backup")

// ManifestConflictError is returned when a slot holds more than one file
// matching its manifest name. The slot is treated as corrupt.
type ManifestConflictError struct {
	Slot  string
	Names []string
}

func (e *ManifestConflictError) Error() string {
	return fmt.Sprintf("slot %s has %d manifests %v; refusing to pick one", e.Slot, len(e.Names), e.Names)
}

// Plan is a resolved restore: what to copy and where to.
type Plan struct {
	SlotPath     string
	Item         string
	ManifestName string
	Manifest     manifest.Manifest
	Destination  string
}

// Source returns the directory whose contents are restored.
func (p Plan) Source() string {
	return filepath.Join(p.SlotPath, p.Item)
}

// FindManifest returns the name of the single manifest file in slotPath.
func FindManifest(slotPath string) (string, error) {
	item, n, ok := slot.ParseName(filepath.Base(slotPath))
	if !ok {
		return "", fmt.Errorf("not a slot directory: %s", slotPath)
	}

	entries, err := os.ReadDir(slotPath)
	if err != nil {
		return "", fmt.Errorf("read slot %s: %w", slotPath, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && slot.IsManifestName(e.Name(), n, item) {
			names = append(names, e.Name())
		}
	}

	switch len(names) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrManifestMissing, slotPath)
	case 1:
		return names[0], nil
	default:
		sort.Strings(names)
		return "", &ManifestConflictError{Slot: slotPath, Names: names}
	}
}

// Resolve locates the manifest in slotPath and reads the original path
// recorded in it.
func Resolve(slotPath string) (Plan, error) {
	name, err := FindManifest(slotPath)
	if err != nil {
		return Plan{}, err
	}
	m, err := manifest.Read(filepath.Join(slotPath, name))
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		SlotPath:     slotPath,
		Item:         slot.ItemFromSlot(filepath.Base(slotPath)),
		ManifestName: name,
		Manifest:     m,
		Destination:  m.OriginalPath,
	}, nil
}

// Restore replaces the contents of destination with the tree backed up in
// slotPath, leaving out the manifest file.
//
// The slot is validated before destination is touched, and a destination
// overlapping the slot is refused since clearing it would destroy the
// backup being restored. After that the
// restore is best-effort: a failure part-way leaves destination partially
// cleared or partially populated, and the error says where it stopped.
func Restore(slotPath, manifestName, destination string) error {
	if _, err := os.Stat(filepath.Join(slotPath, manifestName)); err != nil {
		return fmt.Errorf("%w: %s", ErrManifestMissing, slotPath)
	}
	item := slot.ItemFromSlot(filepath.Base(slotPath))
	source := filepath.Join(slotPath, item)

	entries, err := os.ReadDir(source)
	if err != nil {
		return &tree.CopyError{Op: "read", Path: source, Err: err}
	}

	overlap, err := tree.Overlap(slotPath, destination)
	if err != nil {
		return &tree.ClearError{Path: destination, Err: err}
	}
	if overlap {
		return &tree.ClearError{Path: destination, Err: fmt.Errorf("%w: %s", ErrOverlap, slotPath)}
	}

	info, err := os.Stat(destination)
	switch {
	case err == nil && !info.IsDir():
		return &tree.ClearError{Path: destination, Err: errors.New("destination is not a directory")}
	case err == nil:
		log.Debug("clearing destination", "path", destination)
		if err := tree.Clear(destination); err != nil {
			return err
		}
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(destination, 0755); err != nil {
			return &tree.CopyError{Op: "mkdir", Path: destination, Err: err}
		}
	default:
		return &tree.ClearError{Path: destination, Err: err}
	}

	for _, e := range entries {
		if e.Name() == manifestName {
			continue
		}
		src := filepath.Join(source, e.Name())
		dst := filepath.Join(destination, e.Name())
		if err := tree.Copy(src, dst, tree.CopyOptions{Overwrite: true}); err != nil {
			return err
		}
	}
	log.Debug("restore copied entries", "source", source, "dest", destination, "count", len(entries))
	return nil
}

// Apply runs a resolved plan.
func Apply(p Plan) error {
	return Restore(p.SlotPath, p.ManifestName, p.Destination)
}
