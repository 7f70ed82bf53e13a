package ui

import (
	"bytes"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetWriter(&buf)
	t.Cleanup(func() { SetWriter(nil) })
	return &buf
}

func TestMessagesWithoutColor(t *testing.T) {
	SetColor(false)
	tests := []struct {
		name  string
		print func()
		want  string
	}{
		{"warn", func() { Warn("slot has no manifest") }, "Warning: slot has no manifest\n"},
		{"warnf", func() { Warnf("skipping %q", "obj") }, "Warning: skipping \"obj\"\n"},
		{"error", func() { Error("restore failed") }, "Error: restore failed\n"},
		{"errorf", func() { Errorf("clear %s: %s", "/dst", "denied") }, "Error: clear /dst: denied\n"},
		{"info", func() { Info("Backing up Foo") }, "Backing up Foo\n"},
		{"infof", func() { Infof("Restored %d entries", 3) }, "Restored 3 entries\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t)
			tt.print()
			if got := buf.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWarnWithColor(t *testing.T) {
	SetColor(true)
	defer SetColor(false)
	buf := capture(t)

	Warn("x")
	if !strings.Contains(buf.String(), "\033[33mWarning:\033[0m") {
		t.Errorf("expected colored prefix, got %q", buf.String())
	}
}

func TestStyles(t *testing.T) {
	SetColor(false)
	if Bold("a") != "a" || Dim("a") != "a" || Path("/p") != "/p" {
		t.Error("styles should be identity without color")
	}
	if OKTag() != "✓" || FailTag() != "✗" {
		t.Error("tags should be bare without color")
	}

	SetColor(true)
	defer SetColor(false)
	if got := Bold("a"); got != "\033[1ma\033[0m" {
		t.Errorf("Bold = %q", got)
	}
}
