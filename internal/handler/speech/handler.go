package speech

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/model/speech"
	speechsvc "github.com/zhouzirui/dpp-browser/backend/internal/service/speech"
	"github.com/zhouzirui/dpp-browser/backend/pkg/utils"
)

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	Synthesize(ctx context.Context, req speech.TTSRequest) (*speechsvc.Audio, error)
	IssueToken(ctx context.Context, req speech.TokenRequest) (*speech.TokenResponse, error)
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
	limit     func(http.Handler) http.Handler
	logger    *zap.Logger
}

// New 创建语音处理器。limit 可为 nil；非 nil 时作用于全部语音路由。
func New(speechSvc SpeechService, limit func(http.Handler) http.Handler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{speechSvc: speechSvc, limit: limit, logger: logger}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(g chi.Router) {
		if h.limit != nil {
			g.Use(h.limit)
		}
		g.Post("/tts", h.handleTTS)
		g.Post("/realtime/token", h.handleRealtimeToken)
	})
}

// handleTTS 文字转语音，直接返回 mp3。
func (h *Handler) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req speech.TTSRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondErr(w, h.logger, err)
		return
	}

	audio, err := h.speechSvc.Synthesize(r.Context(), req)
	if err != nil {
		utils.RespondErr(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio.Data); err != nil {
		h.logger.Debug("failed to write audio", zap.Error(err))
	}
}

// handleRealtimeToken 签发实时语音会话的临时凭证。
func (h *Handler) handleRealtimeToken(w http.ResponseWriter, r *http.Request) {
	var req speech.TokenRequest
	// 允许空请求体，全部使用默认值。
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondErr(w, h.logger, err)
			return
		}
	}

	token, err := h.speechSvc.IssueToken(r.Context(), req)
	if err != nil {
		utils.RespondErr(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, token)
}
