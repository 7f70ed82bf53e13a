// Package manifest reads and writes the provenance record stored in every
// backup slot.
//
// A manifest is plain text: a header of "Key: value" lines in fixed order,
// a blank line, then a free-text description.
//
//	Original Path: /home/me/src/Foo
//	Backup Path: /backups/2024-01-01/Foo_copy_1
//	Solution Name: Foo
//	Date: 2024-01-01
//	Time: 14:03:59
//
//	Refactored the parser, next: wire the CLI.
//
// Only Original Path is needed to restore; the other fields are provenance
// for humans.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Field labels, in the order they are written.
const (
	FieldOriginalPath = "Original Path"
	FieldBackupPath   = "Backup Path"
	FieldSolutionName = "Solution Name"
	FieldDate         = "Date"
	FieldTime         = "Time"
)

var fieldOrder = []string{FieldOriginalPath, FieldBackupPath, FieldSolutionName, FieldDate, FieldTime}

// ErrNotFound is returned when a manifest carries no usable Original Path
// or cannot be read at all.
var ErrNotFound = errors.New("original path not found in manifest")

// MalformedError reports a manifest whose header cannot be parsed.
type MalformedError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("malformed manifest %s (line %d): %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed manifest (line %d): %s", e.Line, e.Reason)
}

// WriteError is returned when a manifest cannot be created after a
// successful tree copy. The slot is left without a manifest.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write manifest %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Manifest is the provenance record of one slot.
type Manifest struct {
	OriginalPath string `json:"original_path" yaml:"original_path"`
	BackupPath   string `json:"backup_path" yaml:"backup_path"`
	SolutionName string `json:"solution_name" yaml:"solution_name"`
	Date         string `json:"date" yaml:"date"`
	Time         string `json:"time" yaml:"time"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
}

func (m *Manifest) field(key string) *string {
	switch key {
	case FieldOriginalPath:
		return &m.OriginalPath
	case FieldBackupPath:
		return &m.BackupPath
	case FieldSolutionName:
		return &m.SolutionName
	case FieldDate:
		return &m.Date
	case FieldTime:
		return &m.Time
	}
	return nil
}

// Encode writes m to w in manifest format.
func Encode(w io.Writer, m Manifest) error {
	bw := bufio.NewWriter(w)
	for _, key := range fieldOrder {
		value := *m.field(key)
		if strings.ContainsAny(value, "\r\n") {
			return fmt.Errorf("manifest field %s contains a line break", key)
		}
		if _, err := fmt.Fprintf(bw, "%s: %s\n", key, value); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\n" + m.Description); err != nil {
		return err
	}
	return bw.Flush()
}

// Write creates the manifest file at path. It fails if the file already
// exists; a manifest is written once and never rewritten.
func Write(path string, m Manifest) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := Encode(f, m); err != nil {
		f.Close()
		os.Remove(path)
		return &WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// Parse reads a manifest from r.
//
// The header runs up to the first blank line. Every header line must be a
// known "Key: value" pair appearing at most once; anything else is a
// MalformedError. A missing or empty Original Path yields ErrNotFound.
func Parse(r io.Reader) (Manifest, error) {
	var m Manifest
	seen := make(map[string]bool, len(fieldOrder))

	sc := bufio.NewScanner(r)
	lineNo := 0
	inHeader := true
	var desc []string
	for sc.Scan() {
		lineNo++
		line := strings.TrimSuffix(sc.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if !inHeader {
			desc = append(desc, line)
			continue
		}
		if strings.TrimSpace(line) == "" {
			inHeader = false
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return Manifest{}, &MalformedError{Line: lineNo, Reason: fmt.Sprintf("expected \"Key: value\", got %q", line)}
		}
		key = strings.TrimSpace(key)
		dst := m.field(key)
		if dst == nil {
			return Manifest{}, &MalformedError{Line: lineNo, Reason: fmt.Sprintf("unknown field %q", key)}
		}
		if seen[key] {
			return Manifest{}, &MalformedError{Line: lineNo, Reason: fmt.Sprintf("duplicate field %q", key)}
		}
		seen[key] = true
		*dst = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	m.Description = strings.Join(desc, "\n")
	if m.OriginalPath == "" {
		return m, ErrNotFound
	}
	return m, nil
}

// Read parses the manifest file at path.
func Read(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		var malformed *MalformedError
		if errors.As(err, &malformed) {
			malformed.Path = path
			return Manifest{}, malformed
		}
		if errors.Is(err, ErrNotFound) {
			return m, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ReadOriginalPath returns the Original Path recorded in the manifest at
// path. The path is returned as recorded; whether it still exists is not
// checked.
func ReadOriginalPath(path string) (string, error) {
	m, err := Read(path)
	if err != nil {
		return "", err
	}
	return m.OriginalPath, nil
}
