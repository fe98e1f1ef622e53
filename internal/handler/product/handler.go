// Package product 提供产品角色与故事相关的HTTP接口。
package product

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/errs"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/persona"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/product"
	personasvc "github.com/zhouzirui/dpp-browser/backend/internal/service/persona"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/speech"
	"github.com/zhouzirui/dpp-browser/backend/pkg/utils"
)

// PersonaBuilder 生成产品角色提示词。
type PersonaBuilder interface {
	Build(ctx context.Context, p product.Product, lang persona.Language) (persona.Persona, error)
}

// StoryService 生成产品故事与语音。
type StoryService interface {
	Story(ctx context.Context, p product.Product, lang persona.Language) (string, error)
	Speech(ctx context.Context, text string, lang persona.Language) (*speech.Audio, error)
	ClearCache(ctx context.Context) error
}

// Handler 产品角色与故事的HTTP处理器
type Handler struct {
	personas PersonaBuilder
	stories  StoryService
	logger   *zap.Logger
}

// New 创建处理器
func New(personas PersonaBuilder, stories StoryService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{personas: personas, stories: stories, logger: logger}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/persona", h.handlePersona)
	r.Post("/story", h.handleStory)
	r.Post("/story/audio", h.handleStoryAudio)
	r.Delete("/story/cache", h.handleClearCache)
}

type productRequest struct {
	Product  json.RawMessage `json:"product"`
	Language string          `json:"language"`
	// Text 仅用于 /story/audio：为空时先生成故事。
	Text string `json:"text,omitempty"`
}

type storyResponse struct {
	Story string `json:"story"`
}

// parseProduct 解析并校验请求中的产品文档。
func parseProduct(raw json.RawMessage) (product.Product, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return product.Product{}, errs.ClientInput("product is required")
	}
	p, err := product.Parse(raw)
	if err != nil {
		return product.Product{}, errs.ClientInput("invalid product data: " + err.Error())
	}
	if err := personasvc.Validate(p); err != nil {
		return product.Product{}, errs.ClientInput(err.Error())
	}
	return p, nil
}

func (h *Handler) decode(r *http.Request) (productRequest, product.Product, error) {
	var req productRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return req, product.Product{}, err
	}
	p, err := parseProduct(req.Product)
	return req, p, err
}

func (h *Handler) handlePersona(w http.ResponseWriter, r *http.Request) {
	req, p, err := h.decode(r)
	if err != nil {
		utils.RespondErr(w, h.logger, err)
		return
	}

	result, err := h.personas.Build(r.Context(), p, persona.ParseLanguage(req.Language))
	if err != nil {
		if errors.Is(err, personasvc.ErrInvalidProduct) {
			err = errs.ClientInput(err.Error())
		}
		utils.RespondErr(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleStory(w http.ResponseWriter, r *http.Request) {
	req, p, err := h.decode(r)
	if err != nil {
		utils.RespondErr(w, h.logger, err)
		return
	}

	text, err := h.stories.Story(r.Context(), p, persona.ParseLanguage(req.Language))
	if err != nil {
		utils.RespondErr(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, storyResponse{Story: text})
}

// handleStoryAudio 返回故事语音；请求未携带文本时先生成故事。
func (h *Handler) handleStoryAudio(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondErr(w, h.logger, err)
		return
	}
	lang := persona.ParseLanguage(req.Language)

	text := strings.TrimSpace(req.Text)
	if text == "" {
		p, err := parseProduct(req.Product)
		if err != nil {
			utils.RespondErr(w, h.logger, err)
			return
		}
		if text, err = h.stories.Story(r.Context(), p, lang); err != nil {
			utils.RespondErr(w, h.logger, err)
			return
		}
	}

	audio, err := h.stories.Speech(r.Context(), text, lang)
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

func (h *Handler) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.stories.ClearCache(r.Context()); err != nil {
		utils.RespondErr(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
