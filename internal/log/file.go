package log

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

const dayLayout = "2006-01-02"

// DailyFile appends to dir/YYYY-MM-DD.jsonl, switching files when the
// local date changes.
type DailyFile struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	file *os.File
	day  string
}

// OpenDailyFile creates dir if needed and opens today's file.
func OpenDailyFile(dir string) (*DailyFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating debug log dir: %w", err)
	}
	d := &DailyFile{dir: dir, now: time.Now}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.openLocked(d.now().Format(dayLayout)); err != nil {
		return nil, err
	}
	return d, nil
}

// Write implements io.Writer.
func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if day := d.now().Format(dayLayout); day != d.day || d.file == nil {
		if err := d.openLocked(day); err != nil {
			return 0, err
		}
	}
	return d.file.Write(p)
}

// Path returns the file currently written to.
func (d *DailyFile) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return filepath.Join(d.dir, d.day+".jsonl")
}

// Close closes the current file.
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *DailyFile) openLocked(day string) error {
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}
	f, err := os.OpenFile(filepath.Join(d.dir, day+".jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	d.file = f
	d.day = day
	return nil
}

var dailyName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\.jsonl$`)

// Prune removes daily files older than keepDays and returns how many it
// removed. Other files in dir are left alone.
func Prune(dir string, keepDays int) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -keepDays)

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := dailyName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		day, err := time.ParseInLocation(dayLayout, m[1], time.Local)
		if err != nil || !day.Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(dir, e.Name())) == nil {
			removed++
		}
	}
	return removed
}
