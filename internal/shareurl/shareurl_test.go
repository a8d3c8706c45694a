package shareurl

import "testing"

func TestCleanParams(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"drops tracking keeps rest", "https://a.com/x?utm_source=wx&id=5", "https://a.com/x?id=5"},
		{"no trailing question mark", "https://a.com/x?utm_source=wx", "https://a.com/x"},
		{"no query", "https://a.com/x", "https://a.com/x"},
		{"keeps order", "https://a.com/x?b=2&from=x&a=1&t=9", "https://a.com/x?b=2&a=1"},
		{"keeps encoding", "https://a.com/x?q=a%20b&share_token=z", "https://a.com/x?q=a%20b"},
		{"exact match only", "https://a.com/x?utm_sourcex=1&tt=2", "https://a.com/x?utm_sourcex=1&tt=2"},
		{"encoded tracking key", "https://a.com/x?utm%5Fsource=wx&id=1", "https://a.com/x?id=1"},
		{"keeps fragment", "https://a.com/x?id=1&ts=2#top", "https://a.com/x?id=1#top"},
		{"empty path", "https://a.com?spm_id_from=333", "https://a.com/"},
		{"bilibili share", "https://www.bilibili.com/video/BV1xx?share_source=copy_web&vd_source=abc", "https://www.bilibili.com/video/BV1xx?vd_source=abc"},
		{"relative", "/video/1?from=x", "/video/1?from=x"},
		{"plain text", "not a url", "not a url"},
		{"malformed", "http://[::1", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanParams(tt.in); got != tt.want {
				t.Errorf("CleanParams(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractFromText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"douyin share", "看看这个 https://v.douyin.com/abc123/ 超好看", "https://v.douyin.com/abc123/"},
		{"douyin video", "https://www.douyin.com/video/7123456789 复制打开", "https://www.douyin.com/video/7123456789"},
		{"bilibili with tracking", "【标题】 https://www.bilibili.com/video/BV1xx411c7mD?spm_id_from=333.1&p=2", "https://www.bilibili.com/video/BV1xx411c7mD?p=2"},
		{"b23", "分享 https://b23.tv/AbC123 快来看", "https://b23.tv/AbC123"},
		{"xiaohongshu explore", "复制本条信息 https://www.xiaohongshu.com/explore/64f0a1?xsec_token=k&xhsshare=CopyLink 打开", "https://www.xiaohongshu.com/explore/64f0a1?xsec_token=k"},
		{"xhslink", "52 http://xhslink.com/a/Bc9d，复制本条信息", "http://xhslink.com/a/Bc9d"},
		{"trailing cjk punctuation", "链接：https://example.com/page。", "https://example.com/page"},
		{"ideographic space ends link", "https://example.com/a　后面", "https://example.com/a"},
		{"generic", "see https://example.com/x?utm_medium=app", "https://example.com/x"},
		{"first pattern wins", "https://example.com/a https://v.douyin.com/zz/", "https://v.douyin.com/zz/"},
		{"no link", "  just words  ", "just words"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFromText(tt.in); got != tt.want {
				t.Errorf("ExtractFromText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsTrackingParam(t *testing.T) {
	for _, name := range []string{"utm_source", "share_session_id", "_t", "t"} {
		if !IsTrackingParam(name) {
			t.Errorf("IsTrackingParam(%q) = false", name)
		}
	}
	if IsTrackingParam("id") {
		t.Error("IsTrackingParam(id) = true")
	}
}
