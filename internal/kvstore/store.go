package kvstore

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Store is the JSON adapter over a Backend. Reads fall back to the caller's
// default and writes report false on failure; nothing here returns an error.
type Store struct {
	backend Backend
	logger  *zap.Logger
}

// New creates a store over backend
func New(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, logger: logger.Named("kvstore")}
}

// Get decodes the value stored under key into dst. It returns false when the
// key is absent or the value cannot be read or decoded.
func (s *Store) Get(key string, dst any) bool {
	raw, found, err := s.backend.Get(key)
	if err != nil {
		s.logger.Error("read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Error("decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// GetOr returns the value stored under key, or def when it is absent or unreadable
func GetOr[T any](s *Store, key string, def T) T {
	var v T
	if !s.Get(key, &v) {
		return def
	}
	return v
}

// Has reports whether a readable value exists under key
func (s *Store) Has(key string) bool {
	_, found, err := s.backend.Get(key)
	return err == nil && found
}

// Set encodes value as JSON and stores it under key
func (s *Store) Set(key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("encode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := s.backend.Set(key, string(data)); err != nil {
		s.logger.Error("write failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Remove deletes key. Removing an absent key succeeds.
func (s *Store) Remove(key string) bool {
	if err := s.backend.Remove(key); err != nil {
		s.logger.Error("remove failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Clear deletes every key of the backend
func (s *Store) Clear() bool {
	if err := s.backend.Clear(); err != nil {
		s.logger.Error("clear failed", zap.Error(err))
		return false
	}
	return true
}

// Key returns a single-key view of the store
func (s *Store) Key(key string) *KeyStorage {
	return &KeyStorage{store: s, key: key}
}

// KeyStorage persists one JSON document under a fixed key
type KeyStorage struct {
	store *Store
	key   string
}

// Name returns the key
func (k *KeyStorage) Name() string { return k.key }

// Load decodes the document into dst
func (k *KeyStorage) Load(dst any) bool { return k.store.Get(k.key, dst) }

// Save stores v as the document
func (k *KeyStorage) Save(v any) bool { return k.store.Set(k.key, v) }

// Remove deletes the document
func (k *KeyStorage) Remove() bool { return k.store.Remove(k.key) }
