package platform

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureDir(t *testing.T) {
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "nested", "test_dir")

	if _, err := os.Stat(testDir); !os.IsNotExist(err) {
		t.Fatalf("Test directory already exists: %s", testDir)
	}

	if err := EnsureDir(testDir); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if info, err := os.Stat(testDir); err != nil || !info.IsDir() {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	if err := EnsureDir(testDir); err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}
}

func TestEnsureDir_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := EnsureDir(file); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("EnsureDir(file) error = %v, want ErrNotDirectory", err)
	}
}

func TestDefaultDownloadDir(t *testing.T) {
	downloadsDir, err := DefaultDownloadDir()
	if err != nil {
		t.Fatalf("Failed to get downloads directory: %v", err)
	}
	if downloadsDir == "" {
		t.Fatal("Downloads directory is empty")
	}
	if !strings.HasSuffix(downloadsDir, "Download") && filepath.Base(downloadsDir) != "Downloads" {
		t.Errorf("Expected a Downloads directory, got: %s", downloadsDir)
	}
}

func TestOpenFolder_NonExistent(t *testing.T) {
	err := OpenFolder(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("Expected error for non-existent folder, got nil")
	}
	if !strings.Contains(err.Error(), "folder does not exist") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOpenFolder_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if err := OpenFolder(file); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("OpenFolder(file) error = %v, want ErrNotDirectory", err)
	}
}
