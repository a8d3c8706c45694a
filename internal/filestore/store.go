// Package filestore persists JSON documents as files in the app data directory.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ParseHistoryFile is the document holding the parse history
const ParseHistoryFile = "parse_history.json"

// File permissions
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

const tempSuffix = ".tmp"

// ErrInvalidName is returned for names that would escape the data directory
var ErrInvalidName = errors.New("invalid file name")

// Store reads and writes files under a single root directory
type Store struct {
	root   string
	logger *zap.Logger
}

// New creates a store rooted at dir
func New(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{root: dir, logger: logger.Named("filestore")}
}

// Root returns the data directory
func (s *Store) Root() string {
	return s.root
}

func (s *Store) path(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.root, name), nil
}

// EnsureDir creates the data directory if it doesn't exist
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.root, DefaultDirPermissions); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	return nil
}

// Exists reports whether name exists in the data directory
func (s *Store) Exists(name string) bool {
	p, err := s.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// ReadText returns the content of name
func (s *Store) ReadText(name string) (string, error) {
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), nil
}

// WriteText replaces the content of name. The content is written to a
// temporary file first and renamed into place.
func (s *Store) WriteText(name, content string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), DefaultDirPermissions); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	tmp := p + tempSuffix
	if err := os.WriteFile(tmp, []byte(content), DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// Remove deletes name. A missing file is not an error.
func (s *Store) Remove(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// ReadJSON decodes name into dst. It returns false when the file is missing,
// unreadable or not valid JSON.
func (s *Store) ReadJSON(name string, dst any) bool {
	if !s.Exists(name) {
		return false
	}
	content, err := s.ReadText(name)
	if err != nil {
		s.logger.Error("read failed", zap.String("file", name), zap.Error(err))
		return false
	}
	if err := json.Unmarshal([]byte(content), dst); err != nil {
		s.logger.Error("decode failed", zap.String("file", name), zap.Error(err))
		return false
	}
	return true
}

// WriteJSON encodes v with two-space indentation and writes it to name
func (s *Store) WriteJSON(name string, v any) bool {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.logger.Error("encode failed", zap.String("file", name), zap.Error(err))
		return false
	}
	if err := s.WriteText(name, string(data)); err != nil {
		s.logger.Error("write failed", zap.String("file", name), zap.Error(err))
		return false
	}
	return true
}

// RemoveFile deletes name, logging instead of returning the error
func (s *Store) RemoveFile(name string) bool {
	if err := s.Remove(name); err != nil {
		s.logger.Error("remove failed", zap.String("file", name), zap.Error(err))
		return false
	}
	return true
}

// File returns a single-file view of the store
func (s *Store) File(name string) *FileStorage {
	return &FileStorage{store: s, name: name}
}

// FileStorage persists one JSON document in a fixed file
type FileStorage struct {
	store *Store
	name  string
}

// Name returns the file name
func (f *FileStorage) Name() string { return f.name }

// Load decodes the document into dst
func (f *FileStorage) Load(dst any) bool { return f.store.ReadJSON(f.name, dst) }

// Save writes v as the document
func (f *FileStorage) Save(v any) bool { return f.store.WriteJSON(f.name, v) }

// Remove deletes the document
func (f *FileStorage) Remove() bool { return f.store.RemoveFile(f.name) }
