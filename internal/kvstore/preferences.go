package kvstore

import (
	"slices"
	"sync"

	"fyne.io/fyne/v2"
)

// DefaultKeyPrefix namespaces keys written by this app
const DefaultKeyPrefix = "catparse_"

// indexKeySuffix names the preference holding the list of managed keys. The
// NUL byte keeps it apart from any key a caller would use.
const indexKeySuffix = "\x00keys"

// PreferencesBackend stores values in the Fyne app preferences. Preferences
// cannot enumerate keys, so the backend keeps its own index to support Clear.
type PreferencesBackend struct {
	prefs  fyne.Preferences
	prefix string
	mu     sync.Mutex
}

// NewPreferencesBackend creates a backend over the given preferences. An empty
// prefix falls back to DefaultKeyPrefix.
func NewPreferencesBackend(prefs fyne.Preferences, prefix string) *PreferencesBackend {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &PreferencesBackend{prefs: prefs, prefix: prefix}
}

func (p *PreferencesBackend) fullKey(key string) string {
	return p.prefix + key
}

func (p *PreferencesBackend) indexKey() string {
	return p.prefix + indexKeySuffix
}

// Get returns the value stored under key. JSON text is never empty, so an
// empty preference means the key is absent.
func (p *PreferencesBackend) Get(key string) (string, bool, error) {
	v := p.prefs.String(p.fullKey(key))
	if v == "" {
		return "", false, nil
	}
	return v, true, nil
}

// Set stores value under key and records the key in the index
func (p *PreferencesBackend) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prefs.SetString(p.fullKey(key), value)
	keys := p.prefs.StringList(p.indexKey())
	if !slices.Contains(keys, key) {
		p.prefs.SetStringList(p.indexKey(), append(keys, key))
	}
	return nil
}

// Remove deletes key and drops it from the index
func (p *PreferencesBackend) Remove(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prefs.RemoveValue(p.fullKey(key))
	keys := p.prefs.StringList(p.indexKey())
	if i := slices.Index(keys, key); i >= 0 {
		p.prefs.SetStringList(p.indexKey(), slices.Delete(keys, i, i+1))
	}
	return nil
}

// Clear deletes every key written through this backend
func (p *PreferencesBackend) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, key := range p.prefs.StringList(p.indexKey()) {
		p.prefs.RemoveValue(p.fullKey(key))
	}
	p.prefs.RemoveValue(p.indexKey())
	return nil
}
