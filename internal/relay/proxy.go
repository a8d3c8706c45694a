package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxUpstreamBody caps how much of an upstream reply is relayed
const maxUpstreamBody = 10 << 20

// ProxyRequest describes the upstream call to make
type ProxyRequest struct {
	URL     string            `json:"url" binding:"required"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	// Body is sent verbatim when it is a JSON string, else as encoded JSON
	Body json.RawMessage `json:"body"`
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// body returns the upstream request body
func (r ProxyRequest) body() ([]byte, error) {
	raw := bytes.TrimSpace(r.Body)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []byte(s), nil
	}
	return raw, nil
}

// checkTarget parses target and verifies its host is allowed
func (s *Server) checkTarget(target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if !s.allowed[strings.ToLower(u.Hostname())] {
		return nil, fmt.Errorf("host %q is not allowed", u.Hostname())
	}
	return u, nil
}

// handleProxy forwards a request to an allowed upstream and wraps the reply
func (s *Server) handleProxy(c *gin.Context) {
	provider := c.Param("provider")

	var req ProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	target, err := s.checkTarget(req.URL)
	if err != nil {
		fail(c, http.StatusForbidden, err.Error())
		return
	}
	body, err := req.body()
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	upReq, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
	if err != nil {
		fail(c, http.StatusBadRequest, "failed to create request: "+err.Error())
		return
	}
	for k, v := range req.Headers {
		upReq.Header.Set(k, v)
	}

	resp, err := s.upstream.Do(upReq)
	if err != nil {
		s.logger.Warn("upstream request failed", zap.String("provider", provider), zap.String("host", target.Host), zap.Error(err))
		fail(c, http.StatusBadGateway, "upstream request failed: "+err.Error())
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		fail(c, http.StatusBadGateway, "failed to read upstream reply: "+err.Error())
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("upstream error status", zap.String("provider", provider), zap.Int("status", resp.StatusCode))
		fail(c, http.StatusBadGateway, fmt.Sprintf("upstream returned %d: %s", resp.StatusCode, truncate(string(data), 200)))
		return
	}

	var payload any = string(data)
	if json.Valid(data) {
		payload = json.RawMessage(data)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": payload})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
