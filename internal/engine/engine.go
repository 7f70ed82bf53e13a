// Package engine runs whole backup and restore operations: it gates on the
// guard, allocates slots, writes snapshots and replaces trees.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/majorcontext/keepsake/internal/catalog"
	"github.com/majorcontext/keepsake/internal/chooser"
	"github.com/majorcontext/keepsake/internal/guard"
	"github.com/majorcontext/keepsake/internal/log"
	"github.com/majorcontext/keepsake/internal/restore"
	"github.com/majorcontext/keepsake/internal/slot"
	"github.com/majorcontext/keepsake/internal/snapshot"
	"github.com/majorcontext/keepsake/internal/tree"
)

// solutionExt marks a solution file; backing one up backs up its folder.
const solutionExt = ".sln"

// Engine holds the settings shared by every operation.
type Engine struct {
	// Root holds the date buckets.
	Root string

	Guard         guard.Guard
	BackupPolicy  guard.Policy
	RestorePolicy guard.Policy
	Wait          guard.WaitOptions
	// Confirm answers guard questions under guard.PolicyAsk.
	Confirm func(prompt string) (bool, error)

	// Exclude holds gitignore-style patterns left out of every backup.
	Exclude      []string
	UseGitignore bool

	// DryRun plans without writing anything.
	DryRun bool

	// Now defaults to time.Now. The bucket is computed from it on every
	// backup, so long sessions roll over at midnight.
	Now func() time.Time
}

// BackupRequest describes one backup.
type BackupRequest struct {
	// Source is a directory, or a solution file standing for its directory.
	Source string
	// Item names the slot. Empty means the source's base name.
	Item        string
	Description string
}

// BackupResult is a completed or planned backup.
type BackupResult struct {
	Source string
	Item   string
	Bucket string
	snapshot.Result
	// Planned is set on dry runs; nothing was written.
	Planned bool
}

// RestoreRequest describes one restore.
type RestoreRequest struct {
	Slot string
	// To overrides the destination recorded in the manifest.
	To string
	// SafetyBackup backs up the current destination before replacing it.
	SafetyBackup bool
}

// RestoreResult is a completed or planned restore.
type RestoreResult struct {
	Plan   restore.Plan
	Safety *BackupResult
	// Planned is set on dry runs; nothing was written.
	Planned bool
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) gate(ctx context.Context, policy guard.Policy) error {
	if policy == "" {
		policy = guard.PolicyAsk
	}
	return guard.Gate(ctx, e.Guard, policy, e.Wait, e.Confirm)
}

// ResolveSource turns a backup source into the directory to copy and the
// item name it is stored under.
func ResolveSource(source string) (dir, item string, err error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", "", fmt.Errorf("backup source: %w", err)
	}
	if info.IsDir() {
		return abs, filepath.Base(abs), nil
	}
	if strings.EqualFold(filepath.Ext(abs), solutionExt) {
		stem := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
		return filepath.Dir(abs), stem, nil
	}
	return "", "", fmt.Errorf("backup source %s is neither a directory nor a %s file", abs, solutionExt)
}

// Backup copies req.Source into a fresh slot in today's bucket.
func (e *Engine) Backup(ctx context.Context, req BackupRequest) (BackupResult, error) {
	dir, item, err := ResolveSource(req.Source)
	if err != nil {
		return BackupResult{}, err
	}
	if req.Item != "" {
		item = req.Item
	}
	if err := slot.ValidateItem(item); err != nil {
		return BackupResult{}, err
	}

	if err := e.gate(ctx, e.BackupPolicy); err != nil {
		return BackupResult{}, err
	}
	return e.backup(dir, item, req.Description)
}

// backup runs after the guard has been cleared.
func (e *Engine) backup(dir, item, description string) (BackupResult, error) {
	bucket := slot.Bucket(e.now())
	res := BackupResult{Source: dir, Item: item, Bucket: bucket}

	if e.DryRun {
		p, err := slot.Peek(e.Root, bucket, item)
		if err != nil {
			return res, err
		}
		res.SlotPath = p
		res.Planned = true
		return res, nil
	}

	matcher, err := snapshot.NewMatcher(dir, e.UseGitignore, e.Exclude)
	if err != nil {
		return res, err
	}

	slotPath, err := slot.Allocate(e.Root, bucket, item)
	if err != nil {
		return res, err
	}
	log.Debug("slot allocated", "slot", slotPath, "source", dir)

	w := &snapshot.Writer{Exclude: matcher, Now: e.Now}
	written, err := w.Write(dir, item, slotPath, description)
	if err != nil {
		var copyErr *tree.CopyError
		if errors.As(err, &copyErr) {
			// Give the ordinal back; Remove refuses if anything is left.
			_ = os.Remove(slotPath)
		}
		return res, err
	}
	res.Result = written
	log.Info("backup written", "slot", written.SlotPath, "item", item)
	return res, nil
}

// BackupAll backs up every folder directly under sourceRoot, one after
// another, and stops at the first failure. Results for the backups that
// succeeded are returned alongside the error.
func (e *Engine) BackupAll(ctx context.Context, sourceRoot, description string) ([]BackupResult, error) {
	sourceRoot, err := filepath.Abs(sourceRoot)
	if err != nil {
		return nil, err
	}
	dirs, err := listFolders(sourceRoot)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, &catalog.EmptyCatalogError{Path: sourceRoot, Level: catalog.LevelFolders}
	}

	if err := e.gate(ctx, e.BackupPolicy); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(e.Root)
	if err != nil {
		return nil, err
	}

	var results []BackupResult
	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if tree.Within(d, root) {
			log.Debug("skipping folder holding the backup root", "folder", d)
			continue
		}
		res, err := e.backup(d, filepath.Base(d), description)
		if err != nil {
			return results, fmt.Errorf("backing up %s: %w", d, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Restore replaces the destination recorded in req.Slot's manifest, or
// req.To, with the slot's tree.
func (e *Engine) Restore(ctx context.Context, req RestoreRequest) (RestoreResult, error) {
	plan, err := restore.Resolve(req.Slot)
	if err != nil {
		return RestoreResult{}, err
	}
	if req.To != "" {
		to, err := filepath.Abs(req.To)
		if err != nil {
			return RestoreResult{}, err
		}
		plan.Destination = to
	}
	res := RestoreResult{Plan: plan}

	overlap, err := tree.Overlap(e.Root, plan.Destination)
	if err != nil {
		return res, err
	}
	if overlap {
		return res, &tree.ClearError{
			Path: plan.Destination,
			Err:  fmt.Errorf("%w: backup root %s", restore.ErrOverlap, e.Root),
		}
	}

	if e.DryRun {
		res.Planned = true
		return res, nil
	}

	if err := e.gate(ctx, e.RestorePolicy); err != nil {
		return res, err
	}

	if req.SafetyBackup {
		if info, err := os.Stat(plan.Destination); err == nil && info.IsDir() {
			desc := "Safety backup before restoring " + plan.SlotPath
			safety, err := e.backup(plan.Destination, plan.Item, desc)
			if err != nil {
				return res, fmt.Errorf("safety backup: %w", err)
			}
			res.Safety = &safety
		}
	}

	log.Info("restoring", "slot", plan.SlotPath, "dest", plan.Destination)
	if err := restore.Apply(plan); err != nil {
		return res, err
	}
	return res, nil
}

// SelectSlot asks ch for a bucket, then for a slot in it, most recent
// first in both lists.
func (e *Engine) SelectSlot(ch chooser.Chooser) (string, error) {
	buckets, err := catalog.ListDateBuckets(e.Root)
	if err != nil {
		return "", err
	}
	i, err := ch.Choose("Available backups:", catalog.Names(buckets))
	if err != nil {
		return "", err
	}

	slots, err := catalog.ListSlots(buckets[i].Path)
	if err != nil {
		return "", err
	}
	j, err := ch.Choose("Available copies in "+buckets[i].Name+":", catalog.SlotNames(slots))
	if err != nil {
		return "", err
	}
	return slots[j].Path, nil
}

// Verify lists every slot and checks that its manifest can be read.
// Slots that fail have Complete unset and Problem filled in.
func (e *Engine) Verify() ([]catalog.Slot, error) {
	slots, err := catalog.ListAll(e.Root)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		s := &slots[i]
		if !s.Complete {
			continue
		}
		plan, err := restore.Resolve(s.Path)
		if err != nil {
			s.Complete = false
			s.Problem = err.Error()
			continue
		}
		if _, err := os.Stat(plan.Source()); err != nil {
			s.Complete = false
			s.Problem = "backed-up tree missing: " + plan.Source()
		}
	}
	return slots, nil
}

// listFolders returns the non-hidden directories in root, sorted by name.
func listFolders(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
