// Package slot allocates dated, ordinally numbered backup slots.
//
// A slot lives at <root>/<bucket>/<item>_copy_<n>, where bucket is a
// calendar day (YYYY-MM-DD) and n is the smallest positive integer whose
// slot directory did not exist when the slot was claimed.
package slot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Marker separates the item name from the ordinal in a slot name.
const Marker = "_copy_"

// BucketLayout is the time layout of a date bucket name.
const BucketLayout = "2006-01-02"

// manifestSuffix terminates every manifest file name.
const manifestSuffix = "_readme.txt"

var bucketPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// AllocationError is returned when a slot cannot be reserved.
type AllocationError struct {
	Path string
	Err  error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate slot %s: %v", e.Path, e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// Bucket returns the date bucket name for t.
func Bucket(t time.Time) string {
	return t.Format(BucketLayout)
}

// IsBucket reports whether name looks like a date bucket.
func IsBucket(name string) bool {
	if !bucketPattern.MatchString(name) {
		return false
	}
	_, err := time.Parse(BucketLayout, name)
	return err == nil
}

// ValidateItem checks that item can be used as a slot's item name.
func ValidateItem(item string) error {
	switch {
	case item == "":
		return errors.New("item name must not be empty")
	case item == "." || item == "..":
		return fmt.Errorf("item name %q is not a valid path segment", item)
	case strings.ContainsAny(item, `/\`) || strings.ContainsRune(item, os.PathSeparator):
		return fmt.Errorf("item name %q must not contain path separators", item)
	case strings.Contains(item, Marker):
		return fmt.Errorf("item name %q must not contain %q", item, Marker)
	}
	return nil
}

// Name returns the slot directory name for item and ordinal n.
func Name(item string, n int) string {
	return item + Marker + strconv.Itoa(n)
}

// ParseName splits a slot directory name into its item and ordinal.
// The ordinal must be a positive base-10 integer without leading zeros.
func ParseName(name string) (item string, n int, ok bool) {
	item, rest, found := strings.Cut(name, Marker)
	if !found || item == "" || rest == "" {
		return "", 0, false
	}
	if rest[0] == '0' {
		return "", 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return "", 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return "", 0, false
	}
	return item, n, true
}

// ItemFromSlot derives the item name from a slot directory name by taking
// everything before the first copy marker.
func ItemFromSlot(name string) string {
	item, _, _ := strings.Cut(name, Marker)
	return item
}

// ManifestName returns the manifest file name for a slot.
func ManifestName(bucket string, n int, item string) string {
	return bucket + Marker + strconv.Itoa(n) + "_" + item + manifestSuffix
}

// IsManifestName reports whether name is a manifest file for the slot of
// item with ordinal n, created on any date.
func IsManifestName(name string, n int, item string) bool {
	want := Marker + strconv.Itoa(n) + "_" + item + manifestSuffix
	if !strings.HasSuffix(name, want) {
		return false
	}
	return IsBucket(strings.TrimSuffix(name, want))
}

// Allocate reserves the next free slot for item under root/bucket and
// returns its path. The bucket directory is created if missing.
//
// Each ordinal is claimed with an exclusive mkdir, so two allocations never
// return the same slot even when another process is allocating concurrently.
// The returned directory exists and is empty.
func Allocate(root, bucket, item string) (string, error) {
	if err := ValidateItem(item); err != nil {
		return "", &AllocationError{Path: filepath.Join(root, bucket), Err: err}
	}
	if !IsBucket(bucket) {
		return "", &AllocationError{Path: filepath.Join(root, bucket), Err: fmt.Errorf("invalid date bucket %q", bucket)}
	}

	bucketPath := filepath.Join(root, bucket)
	if err := os.MkdirAll(bucketPath, 0755); err != nil {
		return "", &AllocationError{Path: bucketPath, Err: err}
	}

	for n := 1; ; n++ {
		path := filepath.Join(bucketPath, Name(item, n))
		err := os.Mkdir(path, 0755)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", &AllocationError{Path: path, Err: err}
	}
}

// Peek returns the path Allocate would claim next without creating
// anything. Dry runs use it; the answer may be stale by the time a real
// allocation happens.
func Peek(root, bucket, item string) (string, error) {
	if err := ValidateItem(item); err != nil {
		return "", &AllocationError{Path: filepath.Join(root, bucket), Err: err}
	}
	bucketPath := filepath.Join(root, bucket)
	for n := 1; ; n++ {
		path := filepath.Join(bucketPath, Name(item, n))
		_, err := os.Lstat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", &AllocationError{Path: path, Err: err}
		}
	}
}

// Ordinal returns the ordinal encoded in a slot path.
func Ordinal(slotPath string) (int, bool) {
	_, n, ok := ParseName(filepath.Base(slotPath))
	return n, ok
}
