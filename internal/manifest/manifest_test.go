package manifest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncodeFieldOrder(t *testing.T) {
	var buf bytes.Buffer
	m := Manifest{
		OriginalPath: "/src/Foo",
		BackupPath:   "/backups/2024-01-01/Foo_copy_1",
		SolutionName: "Foo",
		Date:         "2024-01-01",
		Time:         "10:11:12",
		Description:  "fixed the build\nnext: tests",
	}
	if err := Encode(&buf, m); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	want := "Original Path: /src/Foo\n" +
		"Backup Path: /backups/2024-01-01/Foo_copy_1\n" +
		"Solution Name: Foo\n" +
		"Date: 2024-01-01\n" +
		"Time: 10:11:12\n" +
		"\n" +
		"fixed the build\nnext: tests"
	if got := buf.String(); got != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", got, want)
	}

	parsed, err := Parse(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if parsed != m {
		t.Errorf("Parse() = %+v, want %+v", parsed, m)
	}
}

func TestEncodeRejectsLineBreaks(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, Manifest{OriginalPath: "/a\nOriginal Path: /b"})
	if err == nil {
		t.Fatal("Encode() should reject a field containing a newline")
	}
}

func TestParseWindowsPath(t *testing.T) {
	input := "Original Path: C:\\src\\Foo\r\nBackup Path: D:\\bk\\Foo_copy_1\r\n\r\n"
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if m.OriginalPath != `C:\src\Foo` {
		t.Errorf("OriginalPath = %q, want %q", m.OriginalPath, `C:\src\Foo`)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		malformed bool
		notFound  bool
	}{
		{name: "empty file", input: "", notFound: true},
		{name: "no original path", input: "Backup Path: /x\nDate: 2024-01-01\n\n", notFound: true},
		{name: "empty original path", input: "Original Path:   \n\n", notFound: true},
		{name: "line without colon", input: "Original Path: /x\ngarbage\n\n", malformed: true},
		{name: "unknown field", input: "Original Path: /x\nColor: blue\n\n", malformed: true},
		{name: "duplicate field", input: "Original Path: /x\nOriginal Path: /y\n\n", malformed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			var malformed *MalformedError
			if got := errors.As(err, &malformed); got != tt.malformed {
				t.Errorf("MalformedError = %v, want %v (err: %v)", got, tt.malformed, err)
			}
			if got := errors.Is(err, ErrNotFound); got != tt.notFound {
				t.Errorf("ErrNotFound = %v, want %v (err: %v)", got, tt.notFound, err)
			}
		})
	}
}

func TestParseDescriptionMayContainColons(t *testing.T) {
	input := "Original Path: /src/Foo\n\nTODO: a: b\n\nmore"
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if m.Description != "TODO: a: b\n\nmore" {
		t.Errorf("Description = %q", m.Description)
	}
}

func TestWriteOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2024-01-01_copy_1_Foo_readme.txt")
	m := Manifest{OriginalPath: "/src/Foo", SolutionName: "Foo"}

	if err := Write(path, m); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	err := Write(path, Manifest{OriginalPath: "/elsewhere"})
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("second Write() error = %v, want WriteError", err)
	}

	got, err := ReadOriginalPath(path)
	if err != nil {
		t.Fatalf("ReadOriginalPath() error: %v", err)
	}
	if got != "/src/Foo" {
		t.Errorf("ReadOriginalPath() = %q, want %q", got, "/src/Foo")
	}
}

func TestReadOriginalPathMissingFile(t *testing.T) {
	_, err := ReadOriginalPath(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadOriginalPath() error = %v, want ErrNotFound", err)
	}
}

func TestReadMalformedCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.txt")
	if err := os.WriteFile(path, []byte("Original Path /x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadOriginalPath(path)
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want MalformedError", err)
	}
	if malformed.Path != path || malformed.Line != 1 {
		t.Errorf("MalformedError = %+v", malformed)
	}
}

func TestReadLegacyManifest(t *testing.T) {
	// Layout produced by earlier versions of the tool: no trailing newline,
	// description directly after the blank line.
	path := filepath.Join(t.TempDir(), "m.txt")
	content := "Original Path: /src/Foo\nBackup Path: /b/Foo_copy_2\nSolution Name: Foo\nDate: 2023-05-06\nTime: 07:08:09\n\nwip"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if m.Time != "07:08:09" || m.Description != "wip" {
		t.Errorf("Read() = %+v", m)
	}
}
