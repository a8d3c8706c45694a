package config

import (
	"sync"

	"go.uber.org/zap"
)

// StorageKey is the key-value key of the persisted app config
const StorageKey = "app_config"

// Storage persists one JSON document
type Storage interface {
	Load(dst any) bool
	Save(v any) bool
	Remove() bool
}

// credentialRules lists, per service, the fields that must all be non-empty
// for the service to count as configured
var credentialRules = map[string][]string{
	SectionTencentASR: {"secretId", "secretKey"},
	SectionDoubao:     {"apiKey"},
	SectionDeepSeek:   {"apiKey"},
	SectionQianwen:    {"apiKey"},
	SectionHunyuan:    {"secretId", "secretKey"},
}

// Manager loads, caches and persists the app config. It is safe for
// concurrent use; every value it hands out is a copy.
type Manager struct {
	mu      sync.Mutex
	storage Storage
	cache   Config
	logger  *zap.Logger
}

// NewManager creates a config manager over storage
func NewManager(storage Storage, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{storage: storage, logger: logger.Named("config")}
}

// Load returns the app config, reading and merging the persisted overrides
// onto the defaults on first use
func (m *Manager) Load() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load().Clone()
}

func (m *Manager) load() Config {
	if m.cache != nil {
		return m.cache
	}

	var stored map[string]any
	if m.storage.Load(&stored) && stored != nil {
		m.cache = Merge(Defaults(), stored)
	} else {
		m.logger.Debug("no persisted config, using defaults")
		m.cache = Defaults()
	}
	return m.cache
}

// Save replaces the cached config with a copy of c and persists it. The cache
// is updated even when persisting fails.
func (m *Manager) Save(c Config) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(c)
}

func (m *Manager) save(c Config) bool {
	m.cache = c.Clone()
	if m.cache == nil {
		m.cache = Config{}
	}
	if !m.storage.Save(m.cache) {
		m.logger.Warn("config not persisted")
		return false
	}
	return true
}

// ServiceConfig returns a copy of the named section, or an empty record
func (m *Manager) ServiceConfig(name string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load().Section(name)
}

// UpdateServiceConfig shallow-merges patch into the named section and saves
func (m *Manager) UpdateServiceConfig(name string, patch map[string]any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.load().Clone()
	section := c.Section(name)
	for k, v := range patch {
		section[k] = deepCopy(v)
	}
	c[name] = section
	return m.save(c)
}

// Reset reverts the cache to the defaults and deletes the persisted config
func (m *Manager) Reset() Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache = Defaults()
	if !m.storage.Remove() {
		m.logger.Warn("persisted config not removed")
	}
	return m.cache.Clone()
}

// Invalidate drops the cache so the next read goes to storage
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cache = nil
	m.mu.Unlock()
}

// Check reports, per AI service, whether its credentials are filled in
func (m *Manager) Check() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.load()
	ready := make(map[string]bool, len(credentialRules))
	for service, fields := range credentialRules {
		ok := true
		for _, f := range fields {
			if c.String(service, f) == "" {
				ok = false
				break
			}
		}
		ready[service] = ok
	}
	return ready
}

// SavePath returns the configured download directory, "" for the system default
func (m *Manager) SavePath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load().String(SectionDownload, "savePath")
}

// MaxHistoryRecords returns the configured history cap
func (m *Manager) MaxHistoryRecords() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.load().Int(SectionHistory, "maxRecords", DefaultMaxRecords)
	if n <= 0 {
		return DefaultMaxRecords
	}
	return n
}

// Prompt returns the prompt for style: the configured one, else the built-in
// one, else the professional prompt
func (m *Manager) Prompt(style string) string {
	m.mu.Lock()
	p := m.load().String(SectionPrompts, style)
	m.mu.Unlock()

	if p != "" {
		return p
	}
	if p, ok := DefaultPrompts[style]; ok {
		return p
	}
	return DefaultPrompts[StyleProfessional]
}
