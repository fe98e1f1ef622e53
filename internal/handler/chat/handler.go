package chat

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/model/chat"
	"github.com/zhouzirui/dpp-browser/backend/pkg/utils"
)

// Streamer 打开统一格式的聊天流。
type Streamer interface {
	Open(ctx context.Context, req chat.Request) (io.ReadCloser, error)
}

// Handler 流式聊天的HTTP处理器
type Handler struct {
	streamer Streamer
	logger   *zap.Logger
}

// New 创建聊天处理器
func New(streamer Streamer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{streamer: streamer, logger: logger}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

// handleChat 把上游流按统一格式逐块转发给客户端。
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondErr(w, h.logger, err)
		return
	}

	stream, err := h.streamer.Open(r.Context(), req)
	if err != nil {
		utils.RespondErr(w, h.logger, err)
		return
	}
	defer stream.Close()

	flusher, _ := w.(http.Flusher)
	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if flusher != nil {
		flusher.Flush()
	}

	written, err := utils.CopyFlush(w, flusher, stream)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || r.Context().Err() != nil:
		h.logger.Debug("client went away during stream", zap.Int64("bytes", written))
	default:
		// 响应头已发出，只能记录并结束。
		h.logger.Warn("stream interrupted", zap.Int64("bytes", written), zap.Error(err))
	}
}
