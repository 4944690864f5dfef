package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"tmamon/internal/fileutil"
)

func TestCopyFileIfAbsent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	if err := os.WriteFile(src, []byte("first"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	copied, err := fileutil.CopyFileIfAbsent(src, dst)
	if err != nil || !copied {
		t.Fatalf("first copy: copied=%v err=%v", copied, err)
	}

	if err := os.WriteFile(src, []byte("second"), 0o644); err != nil {
		t.Fatalf("rewrite src: %v", err)
	}
	copied, err = fileutil.CopyFileIfAbsent(src, dst)
	if err != nil {
		t.Fatalf("second copy: %v", err)
	}
	if copied {
		t.Fatal("existing destination must not be overwritten")
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(data) != "first" {
		t.Fatalf("destination content = %q, want original", data)
	}
}

func TestMovePath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "batch")
	if err := os.MkdirAll(filepath.Join(src, "AB"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "AB", "essay.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dst := filepath.Join(dir, "batch.imported")
	if err := fileutil.MovePath(src, dst); err != nil {
		t.Fatalf("MovePath: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source still present, err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "AB", "essay.pdf")); err != nil {
		t.Fatalf("moved file missing: %v", err)
	}
}

func TestIsOSMetadata(t *testing.T) {
	for _, name := range []string{".DS_Store", "Thumbs.db", "desktop.ini"} {
		if !fileutil.IsOSMetadata(name) {
			t.Fatalf("%s should be metadata", name)
		}
	}
	if fileutil.IsOSMetadata("essay.pdf") {
		t.Fatal("essay.pdf is not metadata")
	}
}
