package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	speechmodel "github.com/zhouzirui/dpp-browser/backend/internal/model/speech"
)

// TokenSource 提供实时会话的临时凭证。
type TokenSource interface {
	Token(ctx context.Context, model, voice string) (*speechmodel.TokenResponse, error)
}

// TokenSourceFunc 将函数适配为 TokenSource。
type TokenSourceFunc func(ctx context.Context, model, voice string) (*speechmodel.TokenResponse, error)

func (f TokenSourceFunc) Token(ctx context.Context, model, voice string) (*speechmodel.TokenResponse, error) {
	return f(ctx, model, voice)
}

// HTTPTokenSource 调用后端 POST /realtime/token 获取凭证。
type HTTPTokenSource struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPTokenSource 构造 HTTPTokenSource。
func NewHTTPTokenSource(endpoint string) *HTTPTokenSource {
	return &HTTPTokenSource{Endpoint: endpoint, Client: &http.Client{Timeout: 15 * time.Second}}
}

func (h *HTTPTokenSource) Token(ctx context.Context, model, voice string) (*speechmodel.TokenResponse, error) {
	body, err := json.Marshal(speechmodel.TokenRequest{Model: model, Voice: voice})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request realtime token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return nil, fmt.Errorf("failed to get token: %s (status %d)", msg, resp.StatusCode)
	}

	var tok speechmodel.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode realtime token: %w", err)
	}
	if tok.Token == "" {
		return nil, fmt.Errorf("token endpoint returned empty token")
	}
	return &tok, nil
}
