package config

import "encoding/json"

// Service sections of the app config
const (
	SectionDownload   = "download"
	SectionHistory    = "history"
	SectionTencentASR = "tencentAsr"
	SectionDoubao     = "doubao"
	SectionDeepSeek   = "deepseek"
	SectionQianwen    = "qianwen"
	SectionHunyuan    = "hunyuan"
	SectionPrompts    = "prompts"
)

// Rewrite styles with a built-in prompt
const (
	StyleProfessional = "professional"
	StyleCasual       = "casual"
	StyleFunny        = "funny"
	StyleShort        = "short"
)

// DefaultMaxRecords caps history lists when the config does not say otherwise
const DefaultMaxRecords = 100

// DefaultPrompts maps each rewrite style to its prompt
var DefaultPrompts = map[string]string{
	StyleProfessional: "请将以下文案改写为专业、正式的风格，适合商务或官方场合使用。保持信息完整，语言精炼专业：",
	StyleCasual:       "请将以下文案改写为轻松、口语化的风格，像朋友聊天一样亲切自然，可以适当加入网络流行语和表情：",
	StyleFunny:        "请将以下文案改写为幽默搞笑的风格，加入有趣的比喻、夸张和调侃，让读者会心一笑：",
	StyleShort:        "请将以下文案精简压缩，只保留最核心的信息，用最少的字数表达完整含义：",
}

// defaultTemplate is decoded on every Defaults call so numbers have the same
// representation as values read back from storage.
const defaultTemplate = `{
  "download": {"savePath": ""},
  "history": {"maxRecords": 100},
  "tencentAsr": {"secretId": "", "secretKey": ""},
  "doubao": {"apiKey": "", "model": "doubao-seed-1-6-251015"},
  "deepseek": {"apiKey": "", "model": "deepseek-chat"},
  "qianwen": {"apiKey": "", "model": "qwen-turbo"},
  "hunyuan": {"secretId": "", "secretKey": ""}
}`

// Defaults returns a fresh copy of the default app config
func Defaults() Config {
	var c Config
	if err := json.Unmarshal([]byte(defaultTemplate), &c); err != nil {
		panic("config: invalid default template: " + err.Error())
	}
	prompts := make(map[string]any, len(DefaultPrompts))
	for style, prompt := range DefaultPrompts {
		prompts[style] = prompt
	}
	c[SectionPrompts] = prompts
	return c
}
