package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends selectable in settings
const (
	BackendPreferences = "preferences"
	BackendRedis       = "redis"
	BackendMemory      = "memory"
)

// Default values
const (
	DefaultAppID        = "com.sulition.catparse"
	DefaultKeyPrefix    = "catparse_"
	DefaultRelayAddr    = "127.0.0.1:3721"
	DefaultRelayRPS     = 10
	DefaultRelayBurst   = 20
	DefaultRelayTimeout = 60
	DefaultRedisAddr    = "127.0.0.1:6379"
	DefaultRedisPool    = 4
	DefaultFFmpeg       = "ffmpeg"
	DefaultFFprobe      = "ffprobe"
)

// DefaultAllowedHosts are the upstream hosts the relay forwards to
var DefaultAllowedHosts = []string{
	"ark.cn-beijing.volces.com",
	"api.deepseek.com",
	"dashscope.aliyuncs.com",
	"passport.bilibili.com",
	"api.bilibili.com",
	"edith.xiaohongshu.com",
}

// Environment overrides
const (
	EnvDataDir       = "CATPARSE_DATA_DIR"
	EnvStorage       = "CATPARSE_STORAGE"
	EnvRelayAddr     = "CATPARSE_RELAY_ADDR"
	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"
)

// ErrUnknownBackend is returned for an unsupported storage.backend value
var ErrUnknownBackend = errors.New("unknown storage backend")

// Settings is the bootstrap configuration read before any service starts
type Settings struct {
	App     AppSettings     `yaml:"app"`
	Storage StorageSettings `yaml:"storage"`
	Redis   RedisSettings   `yaml:"redis"`
	Relay   RelaySettings   `yaml:"relay"`
	FFmpeg  FFmpegSettings  `yaml:"ffmpeg"`
	Log     LogSettings     `yaml:"log"`
}

// AppSettings identifies the app and where it keeps its files
type AppSettings struct {
	ID      string `yaml:"id"`
	DataDir string `yaml:"data_dir"` // empty: the Fyne app storage root
}

// StorageSettings selects the key-value backend
type StorageSettings struct {
	Backend   string `yaml:"backend"`
	KeyPrefix string `yaml:"key_prefix"`
}

// RedisSettings configures the redis backend
type RedisSettings struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// RelaySettings configures the local proxy relay
type RelaySettings struct {
	Addr         string   `yaml:"addr"`
	RPS          float64  `yaml:"rps"`
	Burst        int      `yaml:"burst"`
	Timeout      int      `yaml:"timeout"` // seconds
	AllowedHosts []string `yaml:"allowed_hosts"`
}

// FFmpegSettings points at the media tools used for audio extraction
type FFmpegSettings struct {
	Binary  string `yaml:"binary"`
	Probe   string `yaml:"probe"`
	TempDir string `yaml:"temp_dir"` // empty: <data_dir>/temp
}

// LogSettings configures the process logger
type LogSettings struct {
	Development bool `yaml:"development"`
}

// GetTimeout returns the relay upstream timeout
func (r *RelaySettings) GetTimeout() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

// DefaultSettings returns settings with every default applied
func DefaultSettings() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

// LoadSettings reads the YAML file at path, applies environment overrides and
// defaults. A missing file is not an error.
func LoadSettings(path string) (*Settings, error) {
	var s Settings

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &s); err != nil {
				return nil, fmt.Errorf("failed to parse settings file: %w", err)
			}
		}
	}

	s.applyEnv()
	s.applyDefaults()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks enumerated fields
func (s *Settings) Validate() error {
	switch s.Storage.Backend {
	case BackendPreferences, BackendRedis, BackendMemory:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, s.Storage.Backend)
	}
}

func (s *Settings) applyEnv() {
	if v := os.Getenv(EnvDataDir); v != "" {
		s.App.DataDir = v
	}
	if v := os.Getenv(EnvStorage); v != "" {
		s.Storage.Backend = v
	}
	if v := os.Getenv(EnvRelayAddr); v != "" {
		s.Relay.Addr = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		s.Redis.Addr = v
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		s.Redis.Password = v
	}
	if v := os.Getenv(EnvRedisDB); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			s.Redis.DB = db
		}
	}
}

func (s *Settings) applyDefaults() {
	if s.App.ID == "" {
		s.App.ID = DefaultAppID
	}
	if s.Storage.Backend == "" {
		s.Storage.Backend = BackendPreferences
	}
	if s.Storage.KeyPrefix == "" {
		s.Storage.KeyPrefix = DefaultKeyPrefix
	}
	if s.Redis.Addr == "" {
		s.Redis.Addr = DefaultRedisAddr
	}
	if s.Redis.PoolSize <= 0 {
		s.Redis.PoolSize = DefaultRedisPool
	}
	if s.Relay.Addr == "" {
		s.Relay.Addr = DefaultRelayAddr
	}
	if s.Relay.RPS <= 0 {
		s.Relay.RPS = DefaultRelayRPS
	}
	if s.Relay.Burst <= 0 {
		s.Relay.Burst = DefaultRelayBurst
	}
	if s.Relay.Timeout <= 0 {
		s.Relay.Timeout = DefaultRelayTimeout
	}
	if len(s.Relay.AllowedHosts) == 0 {
		s.Relay.AllowedHosts = append([]string(nil), DefaultAllowedHosts...)
	}
	if s.FFmpeg.Binary == "" {
		s.FFmpeg.Binary = DefaultFFmpeg
	}
	if s.FFmpeg.Probe == "" {
		s.FFmpeg.Probe = DefaultFFprobe
	}
}
