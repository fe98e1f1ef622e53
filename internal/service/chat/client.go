package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/model/chat"
)

// APIError 是后端返回的非 2xx 响应。
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return "OpenAI API error: " + e.Message
}

// Client 调用后端 POST {base}/chat。
type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

// ClientOption 配置 Client。
type ClientOption func(*Client)

// WithHTTPClient 替换底层 HTTP 客户端。
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithLogger 设置日志。
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient 构造客户端，baseURL 形如 http://localhost:8080/api。
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/chat",
		http:     &http.Client{Timeout: 2 * time.Minute},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open 发起请求并返回 SSE 响应体，调用方负责关闭。
func (c *Client) Open(ctx context.Context, req chat.Request) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, &APIError{Status: resp.StatusCode, Message: readErrorBody(resp)}
	}
	return resp.Body, nil
}

func readErrorBody(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && len(payload.Error) > 0 {
		var msg string
		if json.Unmarshal(payload.Error, &msg) == nil && msg != "" {
			return msg
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return http.StatusText(resp.StatusCode)
}

// TestConnection 发送一条测试消息，成功读完流即视为连通。
func (c *Client) TestConnection(ctx context.Context) bool {
	_, err := Stream(ctx, c, chat.Request{Messages: []chat.Message{chat.UserMessage("test")}}, nil)
	if err != nil {
		c.logger.Warn("backend connection test failed", zap.Error(err))
		return false
	}
	return true
}
