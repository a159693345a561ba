package filedownhttp

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tanq16/filedown/internal/utils"
)

func TestAllocateCreatesSizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "file.bin")
	target, err := Allocate(path, 4096)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if target.Reused {
		t.Error("expected a new file, got Reused=true")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() != 4096 {
		t.Errorf("expected size 4096, got %d", info.Size())
	}
}

func TestAllocateReusesMatchingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.bin")
	existing := bytes.Repeat([]byte("x"), 100)
	if err := os.WriteFile(path, existing, 0644); err != nil {
		t.Fatal(err)
	}

	target, err := Allocate(path, 100)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if !target.Reused {
		t.Error("expected Reused=true for a file with matching size")
	}
	// stale bytes are left in place
	assertFileContent(t, path, existing)
}

func TestAllocateResizesMismatchedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.bin")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 500), 0644); err != nil {
		t.Fatal(err)
	}

	target, err := Allocate(path, 100)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if target.Reused {
		t.Error("expected Reused=false for a file with a different size")
	}
	info, _ := os.Stat(path)
	if info.Size() != 100 {
		t.Errorf("expected size 100, got %d", info.Size())
	}
}

func TestAllocateErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Allocate(dir, 100); !errors.Is(err, utils.ErrAllocation) {
		t.Errorf("expected ErrAllocation for a directory, got %v", err)
	}
	if _, err := Allocate(filepath.Join(dir, "zero.bin"), 0); !errors.Is(err, utils.ErrAllocation) {
		t.Errorf("expected ErrAllocation for zero length, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "zero.bin")); !os.IsNotExist(err) {
		t.Error("expected no file for zero length")
	}
}

func TestAllocateRejectsReadOnlyMatchingFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	path := filepath.Join(t.TempDir(), "readonly.bin")
	if err := os.WriteFile(path, make([]byte, 100), 0444); err != nil {
		t.Fatal(err)
	}

	if _, err := Allocate(path, 100); !errors.Is(err, utils.ErrAllocation) {
		t.Errorf("expected ErrAllocation for a read-only file, got %v", err)
	}
}
