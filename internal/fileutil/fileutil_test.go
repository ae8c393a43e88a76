package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendFileCreatesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue")

	if err := AppendFile(path, []byte("a\n"), 0o644, false); err != nil {
		t.Fatal(err)
	}
	if err := AppendFile(path, []byte("b\n"), 0o644, true); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "a\nb\n" {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestReadFileOrEmpty(t *testing.T) {
	dir := t.TempDir()
	data, err := ReadFileOrEmpty(filepath.Join(dir, "missing"))
	if err != nil || data != nil {
		t.Fatalf("expected nil data for missing file, got %q err=%v", data, err)
	}

	path := filepath.Join(dir, "present")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err = ReadFileOrEmpty(path)
	if err != nil || string(data) != "x" {
		t.Fatalf("unexpected read: %q err=%v", data, err)
	}
}

func TestWriteFileAtomicPreservesMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue")
	if err := os.WriteFile(path, []byte("old\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := WriteFileAtomic(path, []byte("new\n"), 0o644, true); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600 preserved, got %o", info.Mode().Perm())
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new\n" {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue")

	if err := WriteFileAtomic(path, []byte("first\n"), 0o644, false); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("temporary file left behind: %s", entry.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, got %d entries", len(entries))
	}
}

func TestWriteFileAtomicMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "queue")
	if err := WriteFileAtomic(path, []byte("x"), 0o644, false); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}
