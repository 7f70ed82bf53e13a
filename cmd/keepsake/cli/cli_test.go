package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/majorcontext/keepsake/internal/slot"
)

// execute runs the root command with args against a scratch home and
// resets the flag variables it touches afterwards.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("KEEPSAKE_CONFIG", filepath.Join(home, "missing.yaml"))

	t.Cleanup(func() {
		verbose, dryRun, jsonOut, rootFlag = false, false, false, ""
		backupName, backupMessage = "", ""
		restoreLatest, restoreTo, restoreSafety, restoreYes = false, "", false, false
		cfg, prompt = nil, nil
	})
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func writeTree(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "main.c"), []byte("int main;\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestBackupThenRestoreTo(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(t.TempDir(), "Foo")
	writeTree(t, source)

	if err := execute(t, "backup", "--root", root, "-m", "first cut", source); err != nil {
		t.Fatalf("backup: %v", err)
	}

	slotPath := filepath.Join(root, slot.Bucket(time.Now()), "Foo_copy_1")
	if _, err := os.Stat(filepath.Join(slotPath, "Foo", "src", "main.c")); err != nil {
		t.Fatalf("backed-up file missing: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "restored")
	if err := execute(t, "restore", "--root", root, "--yes", "--to", dest, slotPath); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "src", "main.c"))
	if err != nil {
		t.Fatalf("restored file missing: %v", err)
	}
	if string(got) != "int main;\n" {
		t.Errorf("restored content = %q", got)
	}
}

func TestBackupDryRunWritesNothing(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(t.TempDir(), "Foo")
	writeTree(t, source)

	if err := execute(t, "backup", "--root", root, "--dry-run", "-m", "x", source); err != nil {
		t.Fatalf("backup: %v", err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("dry run wrote %d entries to the backup root", len(entries))
	}
}

func TestRestoreNeedsYesWhenNotInteractive(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(t.TempDir(), "Foo")
	writeTree(t, source)
	if err := execute(t, "backup", "--root", root, "-m", "x", source); err != nil {
		t.Fatalf("backup: %v", err)
	}

	if err := execute(t, "restore", "--root", root, "--latest"); err == nil {
		t.Fatal("restore without --yes off a terminal should fail")
	}
}

func TestVerifyReportsIncompleteSlot(t *testing.T) {
	root := t.TempDir()
	if _, err := slot.Allocate(root, "2024-01-01", "Foo"); err != nil {
		t.Fatal(err)
	}
	if err := execute(t, "verify", "--root", root); err == nil {
		t.Fatal("verify should fail on a slot without a readme")
	}
}

func TestListEmptyRoot(t *testing.T) {
	if err := execute(t, "list", "--root", t.TempDir()); err != nil {
		t.Fatalf("list: %v", err)
	}
}
