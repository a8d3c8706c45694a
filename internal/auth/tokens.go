// Package auth persists platform login cookies.
package auth

import (
	"maps"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SuLition/CatParse/internal/kvstore"
	"github.com/SuLition/CatParse/internal/model"
)

// Platforms with a stored login
const (
	PlatformBilibili    = "bilibili"
	PlatformXiaohongshu = "xiaohongshu"
)

type platformAuth struct {
	key           string
	sessionCookie string // must be set for the login to count
}

var authByPlatform = map[string]platformAuth{
	PlatformBilibili:    {key: "bilibili_auth", sessionCookie: "SESSDATA"},
	PlatformXiaohongshu: {key: "xhs_auth", sessionCookie: "web_session"},
}

// Tokens stores one cookie jar per platform in the key-value store
type Tokens struct {
	store  *kvstore.Store
	now    func() time.Time
	logger *zap.Logger
}

// NewTokens creates the token store
func NewTokens(store *kvstore.Store, logger *zap.Logger) *Tokens {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tokens{store: store, now: time.Now, logger: logger.Named("auth")}
}

// Supported reports whether logins for platform can be stored
func Supported(platform string) bool {
	_, ok := authByPlatform[platform]
	return ok
}

// Save stores cookies for platform, stamped with the current time
func (t *Tokens) Save(platform string, cookies map[string]string) bool {
	pa, ok := authByPlatform[platform]
	if !ok {
		t.logger.Warn("unsupported platform", zap.String("platform", platform))
		return false
	}
	blob := model.AuthBlob{
		Cookies: maps.Clone(cookies),
		SavedAt: t.now().UnixMilli(),
	}
	if blob.Cookies == nil {
		blob.Cookies = map[string]string{}
	}
	return t.store.Set(pa.key, blob)
}

// Load returns the stored login of platform
func (t *Tokens) Load(platform string) (model.AuthBlob, bool) {
	pa, ok := authByPlatform[platform]
	if !ok {
		return model.AuthBlob{}, false
	}
	var blob model.AuthBlob
	if !t.store.Get(pa.key, &blob) {
		return model.AuthBlob{}, false
	}
	return blob, true
}

// Clear deletes the stored login of platform
func (t *Tokens) Clear(platform string) bool {
	pa, ok := authByPlatform[platform]
	if !ok {
		return false
	}
	return t.store.Remove(pa.key)
}

// IsLoggedIn reports whether the stored login carries a session cookie
func (t *Tokens) IsLoggedIn(platform string) bool {
	blob, ok := t.Load(platform)
	if !ok {
		return false
	}
	return blob.Cookies[authByPlatform[platform].sessionCookie] != ""
}

// CookieHeader renders the stored cookies as a Cookie header value, sorted by
// name. Empty values are skipped.
func (t *Tokens) CookieHeader(platform string) string {
	blob, ok := t.Load(platform)
	if !ok {
		return ""
	}
	names := make([]string, 0, len(blob.Cookies))
	for name, value := range blob.Cookies {
		if value != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + blob.Cookies[name]
	}
	return strings.Join(pairs, "; ")
}
