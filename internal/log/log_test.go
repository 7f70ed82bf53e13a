package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInitFileLogging(t *testing.T) {
	dir := t.TempDir()
	if err := Init(Options{Dir: dir, Stderr: &bytes.Buffer{}}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Debug("slot allocated", "slot", "Foo_copy_1")
	Close()

	logFile := filepath.Join(dir, time.Now().Format("2006-01-02")+".jsonl")
	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &rec); err != nil {
		t.Fatalf("log file line is not JSON: %v\n%s", err, content)
	}
	if rec["msg"] != "slot allocated" || rec["slot"] != "Foo_copy_1" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestInitStderrLevels(t *testing.T) {
	var stderr bytes.Buffer
	if err := Init(Options{Stderr: &stderr}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Close()

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	output := stderr.String()
	if strings.Contains(output, "debug message") {
		t.Error("debug should not appear on stderr by default")
	}
	if strings.Contains(output, "info message") {
		t.Error("info should not appear on stderr by default")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("warn should appear on stderr")
	}
	if !strings.Contains(output, "error message") {
		t.Error("error should appear on stderr")
	}
}

func TestInitVerbose(t *testing.T) {
	var stderr bytes.Buffer
	if err := Init(Options{Verbose: true, Stderr: &stderr}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Close()

	Debug("debug message")
	Info("info message")

	output := stderr.String()
	if !strings.Contains(output, "debug message") || !strings.Contains(output, "info message") {
		t.Errorf("verbose stderr should carry debug and info, got:\n%s", output)
	}
}

func TestInitJSON(t *testing.T) {
	var stderr bytes.Buffer
	if err := Init(Options{JSON: true, Stderr: &stderr}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Close()

	Warn("clear failed", "path", "/tmp/x")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(stderr.Bytes()), &rec); err != nil {
		t.Fatalf("stderr is not JSON: %v\n%s", err, stderr.String())
	}
	if rec["path"] != "/tmp/x" {
		t.Errorf("path = %v", rec["path"])
	}
}

func TestInitPrunesOldFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, time.Now().AddDate(0, 0, -20).Format("2006-01-02")+".jsonl")
	if err := os.WriteFile(old, []byte("old log\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Init(Options{Dir: dir, KeepDays: 14, Stderr: &bytes.Buffer{}}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Close()

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old log file should have been pruned")
	}
}

func TestOperation(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	done := Operation("restore")
	Info("inside")
	done()
	Info("outside")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "op=restore") {
		t.Errorf("first line should carry op=restore: %s", lines[0])
	}
	if strings.Contains(lines[1], "op=") {
		t.Errorf("op should be cleared after done(): %s", lines[1])
	}
}
