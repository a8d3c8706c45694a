package platform

import (
	"regexp"
	"slices"
)

// Status is the availability of a platform
type Status string

const (
	StatusAvailable   Status = "available"
	StatusComingSoon  Status = "coming_soon"
	StatusMaintenance Status = "maintenance"
)

// Feature tags
const (
	FeatureVideo      = "video"
	FeatureAudio      = "audio"
	FeatureImage      = "image"
	FeatureTranscript = "transcript"
	FeatureArticle    = "article"
	FeatureLyrics     = "lyrics"
)

// Platform describes one supported content source
type Platform struct {
	ID          string
	Name        string
	Icon        string
	Status      Status
	Color       string
	Features    []string
	URLPatterns []*regexp.Regexp
	Placeholder string

	// Referer and Origin are sent with media requests; empty when not needed
	Referer string
	Origin  string
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// registry is ordered: detection returns the first platform that matches
var registry = []Platform{
	{
		ID: "bilibili", Name: "B站", Icon: "📺", Status: StatusAvailable, Color: "#FB7299",
		Features:    []string{FeatureVideo, FeatureAudio, FeatureTranscript},
		URLPatterns: patterns(`bilibili\.com`, `b23\.tv`),
		Placeholder: "请输入B站视频链接，如：https://www.bilibili.com/video/BVxxx",
		Referer:     "https://www.bilibili.com/",
		Origin:      "https://www.bilibili.com",
	},
	{
		ID: "douyin", Name: "抖音", Icon: "🎵", Status: StatusAvailable, Color: "#000000",
		Features:    []string{FeatureVideo, FeatureAudio, FeatureTranscript},
		URLPatterns: patterns(`douyin\.com`, `iesdouyin\.com`, `v\.douyin\.com`),
		Placeholder: "请输入抖音视频链接，如：https://v.douyin.com/xxx",
		Referer:     "https://www.douyin.com/",
		Origin:      "https://www.douyin.com",
	},
	{
		ID: "xiaohongshu", Name: "小红书", Icon: "📕", Status: StatusAvailable, Color: "#FE2C55",
		Features:    []string{FeatureVideo, FeatureImage, FeatureTranscript},
		URLPatterns: patterns(`xiaohongshu\.com`, `xhslink\.com`),
		Placeholder: "请输入小红书链接或分享口令",
		Referer:     "https://www.xiaohongshu.com/",
		Origin:      "https://www.xiaohongshu.com",
	},
	{
		ID: "tiktok", Name: "TikTok", Icon: "🎬", Status: StatusComingSoon, Color: "#000000",
		Features:    []string{FeatureVideo, FeatureAudio, FeatureTranscript},
		URLPatterns: patterns(`tiktok\.com`, `vm\.tiktok\.com`),
		Placeholder: "请输入TikTok视频链接",
	},
	{
		ID: "kuaishou", Name: "快手", Icon: "⚡", Status: StatusComingSoon, Color: "#FF4906",
		Features:    []string{FeatureVideo, FeatureAudio, FeatureTranscript},
		URLPatterns: patterns(`kuaishou\.com`, `v\.kuaishou\.com`, `chenzhongtech\.com`),
		Placeholder: "请输入快手视频链接",
	},
	{
		ID: "weibo", Name: "微博", Icon: "🔴", Status: StatusComingSoon, Color: "#E6162D",
		Features:    []string{FeatureVideo, FeatureImage},
		URLPatterns: patterns(`weibo\.com`, `weibo\.cn`, `t\.cn`),
		Placeholder: "请输入微博链接",
	},
	{
		ID: "wechat_article", Name: "微信公众号", Icon: "💬", Status: StatusComingSoon, Color: "#07C160",
		Features:    []string{FeatureArticle, FeatureImage},
		URLPatterns: patterns(`mp\.weixin\.qq\.com`),
		Placeholder: "请输入微信公众号文章链接",
	},
	{
		ID: "wechat_video", Name: "视频号", Icon: "📱", Status: StatusComingSoon, Color: "#07C160",
		Features:    []string{FeatureVideo},
		URLPatterns: patterns(`channels\.weixin\.qq\.com`, `finder\.video\.qq\.com`),
		Placeholder: "请输入视频号链接",
	},
	{
		ID: "instagram", Name: "Instagram", Icon: "📷", Status: StatusComingSoon, Color: "#E4405F",
		Features:    []string{FeatureVideo, FeatureImage},
		URLPatterns: patterns(`instagram\.com`),
		Placeholder: "请输入Instagram链接",
	},
	{
		ID: "netease_music", Name: "网易云音乐", Icon: "🎵", Status: StatusComingSoon, Color: "#C20C0C",
		Features:    []string{FeatureAudio, FeatureLyrics},
		URLPatterns: patterns(`music\.163\.com`, `y\.music\.163\.com`),
		Placeholder: "请输入网易云音乐链接",
	},
	{
		ID: "zhihu", Name: "知乎", Icon: "💡", Status: StatusComingSoon, Color: "#0084FF",
		Features:    []string{FeatureArticle, FeatureVideo},
		URLPatterns: patterns(`zhihu\.com`, `zhuanlan\.zhihu\.com`),
		Placeholder: "请输入知乎链接",
	},
}

// clone copies p so callers cannot alter the table through its slices
func (p Platform) clone() Platform {
	p.Features = slices.Clone(p.Features)
	p.URLPatterns = slices.Clone(p.URLPatterns)
	return p
}

func filter(keep func(Platform) bool) []Platform {
	var out []Platform
	for _, p := range registry {
		if keep == nil || keep(p) {
			out = append(out, p.clone())
		}
	}
	return out
}

// Available returns the platforms that can be used now
func Available() []Platform {
	return filter(func(p Platform) bool { return p.Status == StatusAvailable })
}

// ComingSoon returns the announced platforms
func ComingSoon() []Platform {
	return filter(func(p Platform) bool { return p.Status == StatusComingSoon })
}

// All returns every platform in table order
func All() []Platform {
	return filter(nil)
}

// ByID looks up a platform by exact id
func ByID(id string) (Platform, bool) {
	for _, p := range registry {
		if p.ID == id {
			return p.clone(), true
		}
	}
	return Platform{}, false
}

// DetectByURL returns the first platform with a pattern matching url
func DetectByURL(url string) (Platform, bool) {
	if url == "" {
		return Platform{}, false
	}
	for _, p := range registry {
		for _, re := range p.URLPatterns {
			if re.MatchString(url) {
				return p.clone(), true
			}
		}
	}
	return Platform{}, false
}

// Supports reports whether platform id has feature; false for unknown ids
func Supports(id, feature string) bool {
	p, ok := ByID(id)
	return ok && slices.Contains(p.Features, feature)
}
