// Package shareurl pulls canonical links out of the text users paste from
// share buttons, and strips the tracking parameters those links carry.
package shareurl

import (
	"net/url"
	"regexp"
	"strings"
)

// trackingParams are removed from every link, matched by exact name
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true, "utm_term": true, "utm_content": true,
	"source": true, "share": true, "share_source": true, "share_medium": true,
	"xhsshare": true, "appuid": true, "apptime": true,
	"share_token": true, "share_tag": true, "timestamp": true, "enter_from": true, "from": true,
	"spm_id_from": true, "from_source": true, "share_plat": true, "share_session_id": true, "bbid": true, "ts": true,
	"ref": true, "referrer": true, "callback": true, "_t": true, "t": true,
}

// IsTrackingParam reports whether name is stripped by CleanParams
func IsTrackingParam(name string) bool {
	return trackingParams[name]
}

// CleanParams removes tracking parameters from raw. The remaining parameters
// keep their order and encoding; with none left the result has no "?".
// Anything that is not an absolute URL is returned unchanged.
func CleanParams(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return raw
	}
	if u.Path == "" {
		u.Path = "/"
	}

	var kept []string
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if !trackingParams[key] {
			kept = append(kept, pair)
		}
	}

	if len(kept) == 0 {
		return u.Scheme + "://" + u.Host + u.EscapedPath()
	}
	u.RawQuery = strings.Join(kept, "&")
	u.ForceQuery = false
	return u.String()
}

// linkPatterns are tried in order; the generic pattern comes last
var linkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https?://v\.douyin\.com/[a-zA-Z0-9]+/?`),
	regexp.MustCompile(`(?i)https?://www\.douyin\.com/video/\d+`),
	regexp.MustCompile(`(?i)https?://www\.bilibili\.com/video/[a-zA-Z0-9]+/?[^\s\p{Zs}]*`),
	regexp.MustCompile(`(?i)https?://b23\.tv/[a-zA-Z0-9]+/?`),
	regexp.MustCompile(`(?i)https?://www\.xiaohongshu\.com/(?:explore|discovery/item)/[a-zA-Z0-9]+[^\s\p{Zs}]*`),
	regexp.MustCompile(`(?i)https?://xhslink\.com/[a-zA-Z0-9/]+`),
	regexp.MustCompile(`(?i)https?://[^\s\p{Zs}]+`),
}

// trailingPunct matches CJK and full-width punctuation glued to a link
var trailingPunct = regexp.MustCompile(`[\x{3000}-\x{303F}\x{FF00}-\x{FFEF}]+$`)

// ExtractFromText returns the first link found in text, trimmed of trailing
// CJK punctuation and cleaned of tracking parameters. Without a link it
// returns the trimmed text.
func ExtractFromText(text string) string {
	if text == "" {
		return ""
	}
	for _, re := range linkPatterns {
		if match := re.FindString(text); match != "" {
			return CleanParams(trailingPunct.ReplaceAllString(match, ""))
		}
	}
	return strings.TrimSpace(text)
}
