package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/handler/chat"
	"github.com/zhouzirui/dpp-browser/backend/internal/handler/product"
	"github.com/zhouzirui/dpp-browser/backend/internal/handler/speech"
	"github.com/zhouzirui/dpp-browser/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/dpp-browser/backend/internal/middleware"
	"github.com/zhouzirui/dpp-browser/backend/pkg/utils"
)

// Deps 汇总路由所需的服务。为 nil 的服务对应路由不注册。
type Deps struct {
	Chat     chat.Streamer
	Speech   speech.SpeechService
	Personas product.PersonaBuilder
	Stories  product.StoryService

	// SpeechLimit 作用于语音路由的限流中间件，可为 nil。
	SpeechLimit    func(http.Handler) http.Handler
	AllowedOrigins []string
	Metrics        *metrics.Collector
	Logger         *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger, deps.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", handleHealth)

		if deps.Chat != nil {
			chat.New(deps.Chat, logger.Named("chat")).RegisterRoutes(api)
		}
		if deps.Speech != nil {
			speech.New(deps.Speech, deps.SpeechLimit, logger.Named("speech")).RegisterRoutes(api)
		}
		if deps.Personas != nil && deps.Stories != nil {
			product.New(deps.Personas, deps.Stories, logger.Named("product")).RegisterRoutes(api)
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"message":   "DPP browser backend is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
