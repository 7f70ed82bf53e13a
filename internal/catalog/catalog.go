// Package catalog lists what a backup root holds: date buckets and, inside
// each bucket, slots. Listings are most recent first.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/majorcontext/keepsake/internal/restore"
	"github.com/majorcontext/keepsake/internal/slot"
)

// ErrEmptyCatalog matches every *EmptyCatalogError.
var ErrEmptyCatalog = errors.New("nothing to choose")

// Level names the catalog layer that came up empty.
type Level string

const (
	LevelBuckets Level = "buckets"
	LevelSlots   Level = "slots"
	LevelFolders Level = "folders"
)

// EmptyCatalogError is returned when a listing has no entries.
type EmptyCatalogError struct {
	Path  string
	Level Level
}

func (e *EmptyCatalogError) Error() string {
	if e.Level == LevelFolders {
		return fmt.Sprintf("no folders found in %s", e.Path)
	}
	return fmt.Sprintf("no backup %s in %s", e.Level, e.Path)
}

func (e *EmptyCatalogError) Is(target error) bool {
	return target == ErrEmptyCatalog
}

// Entry is one directory in a listing.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

// Slot is a slot directory with its parsed name.
type Slot struct {
	Entry
	Item    string `json:"item"`
	Ordinal int    `json:"ordinal"`
	Bucket  string `json:"bucket"`
	// Complete is true when the slot holds exactly one manifest.
	Complete bool `json:"complete"`
	// Problem explains why the slot is incomplete.
	Problem string `json:"problem,omitempty"`
}

// ListDateBuckets returns the date buckets under root, most recent first.
//
// Every non-hidden directory counts as a bucket; names are not checked
// against the date layout so hand-made folders still show up.
func ListDateBuckets(root string) ([]Entry, error) {
	entries, err := listDirs(root)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, &EmptyCatalogError{Path: root, Level: LevelBuckets}
	}
	return entries, nil
}

// ListFolders returns the non-hidden directories in dir, most recent
// first. It is how backup sources are offered for choice.
func ListFolders(dir string) ([]Entry, error) {
	entries, err := listDirs(dir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, &EmptyCatalogError{Path: dir, Level: LevelFolders}
	}
	return entries, nil
}

// ListSlots returns the slots in a bucket, most recent first. Directories
// whose names do not parse as slots are left out.
func ListSlots(bucketPath string) ([]Slot, error) {
	entries, err := listDirs(bucketPath)
	if err != nil {
		return nil, err
	}
	bucket := filepath.Base(bucketPath)

	var slots []Slot
	for _, e := range entries {
		item, n, ok := slot.ParseName(e.Name)
		if !ok {
			continue
		}
		s := Slot{Entry: e, Item: item, Ordinal: n, Bucket: bucket}
		if _, err := restore.FindManifest(e.Path); err != nil {
			s.Problem = err.Error()
		} else {
			s.Complete = true
		}
		slots = append(slots, s)
	}
	if len(slots) == 0 {
		return nil, &EmptyCatalogError{Path: bucketPath, Level: LevelSlots}
	}
	return slots, nil
}

// ListAll returns every slot under root in bucket order, then slot order.
// Buckets without slots are skipped.
func ListAll(root string) ([]Slot, error) {
	buckets, err := ListDateBuckets(root)
	if err != nil {
		return nil, err
	}
	var all []Slot
	for _, b := range buckets {
		slots, err := ListSlots(b.Path)
		if errors.Is(err, ErrEmptyCatalog) {
			continue
		}
		if err != nil {
			return nil, err
		}
		all = append(all, slots...)
	}
	if len(all) == 0 {
		return nil, &EmptyCatalogError{Path: root, Level: LevelSlots}
	}
	return all, nil
}

// Names returns the names of entries, in order.
func Names(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// SlotNames returns the names of slots, in order.
func SlotNames(slots []Slot) []string {
	names := make([]string, len(slots))
	for i, s := range slots {
		names[i] = s.Name
	}
	return names
}

// listDirs returns the non-hidden subdirectories of dir, newest first.
// A missing dir lists as empty.
func listDirs(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(des))
	for _, d := range des {
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		info, err := d.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		entries = append(entries, Entry{
			Name:    d.Name(),
			Path:    filepath.Join(dir, d.Name()),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].ModTime.Equal(entries[j].ModTime) {
			return entries[i].ModTime.After(entries[j].ModTime)
		}
		return entries[i].Name > entries[j].Name
	})
	return entries, nil
}
