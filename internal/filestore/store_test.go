package filestore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStore_WriteAndReadText(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "appdata")
	s := New(dir, nil)

	if s.Exists("a.txt") {
		t.Fatal("Exists() = true before write")
	}

	if err := s.WriteText("a.txt", "hello"); err != nil {
		t.Fatalf("WriteText() err = %v", err)
	}
	if !s.Exists("a.txt") {
		t.Fatal("Exists() = false after write")
	}

	got, err := s.ReadText("a.txt")
	if err != nil {
		t.Fatalf("ReadText() err = %v", err)
	}
	if got != "hello" {
		t.Errorf("ReadText() = %q, want hello", got)
	}

	if _, err := os.Stat(filepath.Join(dir, "a.txt"+tempSuffix)); !os.IsNotExist(err) {
		t.Error("temporary file left behind after write")
	}
}

func TestStore_Remove(t *testing.T) {
	s := New(t.TempDir(), nil)

	if err := s.Remove("missing.json"); err != nil {
		t.Errorf("Remove() of missing file err = %v, want nil", err)
	}

	s.WriteText("x.json", "{}")
	if err := s.Remove("x.json"); err != nil {
		t.Fatalf("Remove() err = %v", err)
	}
	if s.Exists("x.json") {
		t.Error("file still exists after Remove")
	}
}

func TestStore_InvalidName(t *testing.T) {
	s := New(t.TempDir(), nil)

	for _, name := range []string{"", "../escape.json", "/abs.json"} {
		if err := s.WriteText(name, "x"); !errors.Is(err, ErrInvalidName) {
			t.Errorf("WriteText(%q) err = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestStore_JSON(t *testing.T) {
	s := New(t.TempDir(), nil)

	in := map[string]any{"a": 1.0, "b": []any{"x"}}
	if !s.WriteJSON("doc.json", in) {
		t.Fatal("WriteJSON() = false")
	}

	raw, _ := s.ReadText("doc.json")
	if !strings.Contains(raw, "\n  \"a\": 1") {
		t.Errorf("WriteJSON() should indent with two spaces, got %q", raw)
	}

	var out map[string]any
	if !s.ReadJSON("doc.json", &out) {
		t.Fatal("ReadJSON() = false")
	}
	if out["a"] != 1.0 {
		t.Errorf("ReadJSON() a = %v, want 1", out["a"])
	}
}

func TestStore_ReadJSON_FailSoft(t *testing.T) {
	s := New(t.TempDir(), nil)

	var out []int
	if s.ReadJSON("missing.json", &out) {
		t.Error("ReadJSON() of missing file = true")
	}

	s.WriteText("broken.json", "[1, 2")
	if s.ReadJSON("broken.json", &out) {
		t.Error("ReadJSON() of corrupt file = true")
	}
}

func TestStore_WriteJSON_Unwritable(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	// root of the store is a regular file, so the directory cannot be created
	s := New(blocker, nil)
	if s.WriteJSON("doc.json", []int{1}) {
		t.Error("WriteJSON() into unwritable dir = true, want false")
	}
}

func TestFileStorage(t *testing.T) {
	s := New(t.TempDir(), nil)
	f := s.File(ParseHistoryFile)

	if f.Name() != ParseHistoryFile {
		t.Errorf("Name() = %s", f.Name())
	}
	if !f.Save([]string{"a"}) {
		t.Fatal("Save() = false")
	}
	var out []string
	if !f.Load(&out) || len(out) != 1 {
		t.Errorf("Load() = %v", out)
	}
	if !f.Remove() {
		t.Error("Remove() = false")
	}
	if f.Load(&out) {
		t.Error("Load() after Remove = true")
	}
}

func TestStore_EnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s := New(dir, nil)

	if err := s.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir() err = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("EnsureDir() did not create %s", dir)
	}
	if s.Root() != dir {
		t.Errorf("Root() = %s, want %s", s.Root(), dir)
	}
}
