// Package speech 提供语音合成与实时会话临时凭证签发。
package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/config"
	"github.com/zhouzirui/dpp-browser/backend/internal/errs"
	speechmodel "github.com/zhouzirui/dpp-browser/backend/internal/model/speech"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/openai"
)

// maxAudioBytes 限制单次合成读取的音频大小。
const maxAudioBytes = 32 << 20

// Upstream 是语音服务依赖的上游调用能力。
type Upstream interface {
	PostJSON(ctx context.Context, path string, payload any) (*http.Response, error)
}

// Service 语音服务核心业务逻辑
type Service struct {
	upstream Upstream
	tts      config.TTSConfig
	realtime config.RealtimeConfig
	logger   *zap.Logger
}

// NewService 创建语音服务实例
func NewService(upstream Upstream, tts config.TTSConfig, realtime config.RealtimeConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		upstream: upstream,
		tts:      tts,
		realtime: realtime,
		logger:   logger,
	}
}

// ContentTypeMPEG 是合成音频的 MIME 类型。
const ContentTypeMPEG = "audio/mpeg"

// Audio 是合成结果。
type Audio struct {
	Data        []byte
	ContentType string
}

type speechPayload struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// NormalizeTTS 校验合成请求并补齐默认值。
func (s *Service) NormalizeTTS(req speechmodel.TTSRequest) (speechmodel.TTSRequest, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req, errs.ClientInput("Text is required")
	}
	if utf8.RuneCountInString(req.Text) > speechmodel.MaxTTSInputLength {
		return req, errs.ClientInput(fmt.Sprintf("Text too long. Maximum %d characters.", speechmodel.MaxTTSInputLength))
	}
	if req.Voice == "" {
		req.Voice = s.tts.Voice
	}
	if !speechmodel.ValidVoice(req.Voice) {
		return req, errs.ClientInput("Invalid voice. Must be one of: " + strings.Join(speechmodel.Voices, ", "))
	}
	if req.Model == "" {
		req.Model = s.tts.Model
	}
	if req.Speed == 0 {
		req.Speed = s.tts.Speed
	}
	if req.Speed < 0.25 || req.Speed > 4.0 {
		return req, errs.ClientInput("Speed must be between 0.25 and 4.0")
	}
	return req, nil
}

// Synthesize 文字转语音，返回 mp3 音频。
func (s *Service) Synthesize(ctx context.Context, req speechmodel.TTSRequest) (*Audio, error) {
	req, err := s.NormalizeTTS(req)
	if err != nil {
		return nil, err
	}

	resp, err := s.upstream.PostJSON(ctx, openai.PathAudioSpeech, speechPayload{
		Model:          req.Model,
		Input:          req.Text,
		Voice:          req.Voice,
		ResponseFormat: "mp3",
		Speed:          req.Speed,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, errs.Transport("failed to read synthesized audio", err)
	}

	s.logger.Debug("speech synthesized",
		zap.String("voice", req.Voice),
		zap.Int("chars", utf8.RuneCountInString(req.Text)),
		zap.Int("bytes", len(data)),
	)
	return &Audio{Data: data, ContentType: ContentTypeMPEG}, nil
}

type sessionPayload struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
}

type sessionResponse struct {
	ClientSecret json.RawMessage `json:"client_secret"`
	ExpiresAt    int64           `json:"expires_at"`
	Model        string          `json:"model"`
}

type clientSecret struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

// IssueToken 向上游申请实时会话临时凭证。
func (s *Service) IssueToken(ctx context.Context, req speechmodel.TokenRequest) (*speechmodel.TokenResponse, error) {
	if req.Model == "" {
		req.Model = s.realtime.Model
	}
	if req.Voice == "" {
		req.Voice = s.realtime.Voice
	}
	if !speechmodel.ValidVoice(req.Voice) {
		return nil, errs.ClientInput("Invalid voice. Must be one of: " + strings.Join(speechmodel.Voices, ", "))
	}

	resp, err := s.upstream.PostJSON(ctx, openai.PathRealtimeSessions, sessionPayload(req))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, errs.Transport("invalid realtime session response", err)
	}

	token, expiresAt := parseClientSecret(session.ClientSecret)
	if token == "" {
		return nil, errs.Upstream(http.StatusBadGateway, "realtime session response missing client_secret")
	}
	if expiresAt == 0 {
		expiresAt = session.ExpiresAt
	}

	model := session.Model
	if model == "" {
		model = req.Model
	}
	s.logger.Info("realtime token issued", zap.String("model", model), zap.Int64("expires_at", expiresAt))
	return &speechmodel.TokenResponse{Token: token, ExpiresAt: expiresAt, Model: model}, nil
}

// parseClientSecret 兼容对象 {value, expires_at} 与纯字符串两种形式。
func parseClientSecret(raw json.RawMessage) (string, int64) {
	if len(raw) == 0 {
		return "", 0
	}
	var obj clientSecret
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Value != "" {
		return obj.Value, obj.ExpiresAt
	}
	var flat string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, 0
	}
	return "", 0
}
