// Package openai 封装对上游 OpenAI HTTP 接口的调用：鉴权、错误映射与耗时指标。
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/config"
	"github.com/zhouzirui/dpp-browser/backend/internal/errs"
	"github.com/zhouzirui/dpp-browser/backend/internal/metrics"
)

// 上游接口路径。
const (
	PathChatCompletions  = "/chat/completions"
	PathResponses        = "/responses"
	PathAudioSpeech      = "/audio/speech"
	PathRealtimeSessions = "/realtime/sessions"
)

// maxErrorBody 限制读取上游错误体的大小。
const maxErrorBody = 64 << 10

// Client 是上游 HTTP 客户端。
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	metrics *metrics.Collector
	logger  *zap.Logger
}

// Option 配置 Client。
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client。
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithMetrics 设置指标收集器。
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient 构造客户端。流式响应依赖 ctx 取消，http.Client 不设置整体超时。
func NewClient(cfg config.OpenAIConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConnsPerHost:   16,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured 表示是否具备上游凭证。
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// PostJSON 以 JSON 调用上游接口。2xx 时返回响应（调用方负责关闭 Body），
// 否则返回 *errs.Error：缺少密钥为 KindConfig，上游非 2xx 为 KindUpstream。
func (c *Client) PostJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	if !c.Configured() {
		return nil, errs.Config("OPENAI_API_KEY is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordUpstream(path, "transport_error", time.Since(start))
		return nil, errs.Transport("upstream request failed", err)
	}
	c.metrics.RecordUpstream(path, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		message := ReadErrorMessage(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("upstream returned error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", message),
		)
		return nil, errs.Upstream(resp.StatusCode, message)
	}
	return resp, nil
}

// ReadErrorMessage 尽力提取上游错误信息：JSON 的 error.message，否则原始文本。
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil {
		var detail struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(errResp.Error, &detail) == nil && detail.Message != "" {
			return detail.Message
		}
		var flat string
		if json.Unmarshal(errResp.Error, &flat) == nil && flat != "" {
			return flat
		}
		return "OpenAI API error"
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return http.StatusText(http.StatusBadGateway)
	}
	return text
}
