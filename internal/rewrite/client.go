// Package rewrite rewrites video captions in a chosen style through chat
// completion APIs, reached via the relay server.
package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SuLition/CatParse/internal/model"
	"github.com/SuLition/CatParse/internal/tasks"
)

// Providers
const (
	ProviderDoubao   = "doubao"
	ProviderDeepSeek = "deepseek"
	ProviderQianwen  = "qianwen"
	ProviderHunyuan  = "hunyuan"
)

// Request settings shared by every provider
const (
	SystemPrompt = "你是一个专业的文案改写助手，擅长将视频文案改写成不同风格。请直接输出改写后的文案，不要添加任何解释或前缀。"
	MaxTokens    = 2000
	Temperature  = 0.7

	DefaultTimeout = 60 * time.Second
)

// Status texts shown on rewrite tasks
const (
	TaskTitle     = "AI改写"
	TextRewriting = "正在改写..."
)

var (
	ErrEmptyText           = errors.New("text to rewrite is empty")
	ErrMissingAPIKey       = errors.New("api key not configured")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrRelay               = errors.New("relay request failed")
)

type endpoint struct {
	url          string
	defaultModel string
}

var endpoints = map[string]endpoint{
	ProviderDoubao:   {url: "https://ark.cn-beijing.volces.com/api/v3/chat/completions", defaultModel: "doubao-seed-1-6-251015"},
	ProviderDeepSeek: {url: "https://api.deepseek.com/chat/completions", defaultModel: "deepseek-chat"},
	ProviderQianwen:  {url: "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions", defaultModel: "qwen-turbo"},
}

// Endpoint returns the chat completion URL of provider
func Endpoint(provider string) (string, bool) {
	e, ok := endpoints[provider]
	return e.url, ok
}

// ConfigSource supplies provider credentials and prompts
type ConfigSource interface {
	ServiceConfig(name string) map[string]any
	Prompt(style string) string
}

// TaskTracker is the part of the task store the client drives
type TaskTracker interface {
	Add(taskType model.TaskType, title string, opts ...tasks.AddOption) string
	Complete(id string, success bool, errMsg string)
}

// ProxyRequest is the body posted to the relay
type ProxyRequest struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body,omitempty"`
}

// ProxyResponse is the relay reply
type ProxyResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Client calls providers through the relay
type Client struct {
	relayURL string
	http     *http.Client
	config   ConfigSource
	tracker  TaskTracker
	logger   *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.http = c } }

// WithTaskTracker shows every rewrite as a task
func WithTaskTracker(t TaskTracker) Option { return func(cl *Client) { cl.tracker = t } }

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option { return func(cl *Client) { cl.logger = l } }

// NewClient creates a client posting to the relay at relayURL
func NewClient(relayURL string, cfg ConfigSource, opts ...Option) *Client {
	c := &Client{
		relayURL: strings.TrimRight(relayURL, "/"),
		http:     &http.Client{Timeout: DefaultTimeout},
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("rewrite")
	return c
}

// Rewrite returns text rewritten in style by provider. An empty provider
// means doubao.
func (c *Client) Rewrite(ctx context.Context, text, style, provider string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if provider == "" {
		provider = ProviderDoubao
	}
	ep, ok := endpoints[provider]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	cfg := c.config.ServiceConfig(provider)
	apiKey, _ := cfg["apiKey"].(string)
	if apiKey == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingAPIKey, provider)
	}
	modelName, _ := cfg["model"].(string)
	if modelName == "" {
		modelName = ep.defaultModel
	}

	var taskID string
	if c.tracker != nil {
		taskID = c.tracker.Add(model.TaskTypeRewrite, TaskTitle, tasks.WithStatusText(TextRewriting))
	}

	out, err := c.complete(ctx, ep.url, apiKey, chatRequest{
		Model: modelName,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: c.config.Prompt(style) + "\n\n" + text},
		},
		MaxTokens:   MaxTokens,
		Temperature: Temperature,
	}, provider)

	if c.tracker != nil {
		if err != nil {
			c.tracker.Complete(taskID, false, err.Error())
		} else {
			c.tracker.Complete(taskID, true, "")
		}
	}
	return out, err
}

func (c *Client) complete(ctx context.Context, url, apiKey string, chat chatRequest, provider string) (string, error) {
	body, err := json.Marshal(chat)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	payload, err := json.Marshal(ProxyRequest{
		URL:    url,
		Method: http.MethodPost,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + apiKey,
		},
		Body: string(body),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode proxy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL+"/proxy/"+provider, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRelay, err)
	}
	defer resp.Body.Close()

	var proxyResp ProxyResponse
	if err := json.NewDecoder(resp.Body).Decode(&proxyResp); err != nil {
		return "", fmt.Errorf("%w: status %d: %v", ErrRelay, resp.StatusCode, err)
	}
	if !proxyResp.Success {
		c.logger.Warn("relay rejected request", zap.String("provider", provider), zap.String("message", proxyResp.Message))
		return "", fmt.Errorf("%w: %s", ErrRelay, proxyResp.Message)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(proxyResp.Data, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode completion: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", nil
	}
	return chatResp.Choices[0].Message.Content, nil
}
