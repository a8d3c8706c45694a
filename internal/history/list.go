// Package history keeps the capped, newest-first lists of completed downloads
// and parses.
package history

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SuLition/CatParse/internal/model"
)

// Storage persists one JSON document
type Storage interface {
	Load(dst any) bool
	Save(v any) bool
	Remove() bool
}

// List is a persisted record list. Every mutation is a full
// read-modify-write of the stored document, serialized by the list's mutex.
// Two lists over the same storage do not coordinate: the last write wins.
type List[R any] struct {
	mu         sync.Mutex
	storage    Storage
	logger     *zap.Logger
	now        func() time.Time
	maxRecords func() int

	idOf     func(R) string
	stamp    func(r *R, id, at string)
	dedupKey func(R) string
}

// Option configures a history list
type Option func(*options)

type options struct {
	now        func() time.Time
	maxRecords func() int
	logger     *zap.Logger
}

// WithClock sets the time source used to stamp new records
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMaxRecords sets the cap provider, consulted on every Add
func WithMaxRecords(max func() int) Option {
	return func(o *options) { o.maxRecords = max }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func newList[R any](name string, storage Storage, opts []Option) *List[R] {
	o := options{
		now:        time.Now,
		maxRecords: func() int { return DefaultMaxRecords },
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &List[R]{
		storage:    storage,
		logger:     o.logger.Named(name),
		now:        o.now,
		maxRecords: o.maxRecords,
	}
}

// DefaultMaxRecords is the cap used when none is configured
const DefaultMaxRecords = 100

func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// read returns the stored list, or an empty one
func (l *List[R]) read() []R {
	var list []R
	if !l.storage.Load(&list) || list == nil {
		return []R{}
	}
	return list
}

// All returns the persisted records, newest first
func (l *List[R]) All() []R {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Add stamps r with a fresh id and time, prepends it and persists the list
// truncated to the configured cap. It returns the new id, or false when the
// list could not be persisted.
func (l *List[R]) Add(r R) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := newRecordID()
	l.stamp(&r, id, model.FormatHistoryTime(l.now()))

	list := l.read()
	if l.dedupKey != nil {
		if key := l.dedupKey(r); key != "" {
			kept := list[:0]
			for _, e := range list {
				if l.dedupKey(e) != key {
					kept = append(kept, e)
				}
			}
			list = kept
		}
	}

	list = append([]R{r}, list...)
	if max := l.maxRecords(); max > 0 && len(list) > max {
		list = list[:max]
	}

	if !l.storage.Save(list) {
		l.logger.Warn("record not saved", zap.String("id", id))
		return "", false
	}
	return id, true
}

// Update shallow-merges patch into the record with the given id and persists.
// The id field cannot be patched. It returns false when no record matched.
func (l *List[R]) Update(id string, patch map[string]any) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := l.read()
	for i, e := range list {
		if l.idOf(e) != id {
			continue
		}
		updated, err := applyPatch(e, patch)
		if err != nil {
			l.logger.Error("patch rejected", zap.String("id", id), zap.Error(err))
			return false
		}
		list[i] = updated
		return l.storage.Save(list)
	}
	return false
}

// applyPatch merges patch over the JSON object form of r
func applyPatch[R any](r R, patch map[string]any) (R, error) {
	var out R
	data, err := json.Marshal(r)
	if err != nil {
		return out, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(data, &fields); err != nil {
		return out, err
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		fields[k] = v
	}
	data, err = json.Marshal(fields)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

// Delete removes the record with the given id. Deleting an absent id succeeds.
func (l *List[R]) Delete(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := l.read()
	kept := make([]R, 0, len(list))
	for _, e := range list {
		if l.idOf(e) != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(list) {
		return true
	}
	return l.storage.Save(kept)
}

// Clear removes the stored list
func (l *List[R]) Clear() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.storage.Remove()
}
