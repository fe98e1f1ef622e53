package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/cache"
	"github.com/zhouzirui/dpp-browser/backend/internal/config"
	"github.com/zhouzirui/dpp-browser/backend/internal/handler"
	"github.com/zhouzirui/dpp-browser/backend/internal/logging"
	"github.com/zhouzirui/dpp-browser/backend/internal/metrics"
	"github.com/zhouzirui/dpp-browser/backend/internal/middleware"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/bridge"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/chat"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/openai"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/persona"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/speech"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/story"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	// 配置加载前使用默认生产日志器。
	bootstrap := zap.Must(zap.NewProduction())

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Fatal("failed to load configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		bootstrap.Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Warn("failed to load .env file, continuing with system environment variables only", zap.Error(envErr))
	}
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, upstream endpoints will answer with a configuration error")
	}

	collector := metrics.NewCollector("dpp")

	upstream := openai.NewClient(cfg.OpenAI, logging.Component(logger, "openai"), openai.WithMetrics(collector))
	bridgeSvc := bridge.NewService(upstream, cfg.OpenAI, logging.Component(logger, "bridge"), collector)
	speechSvc := speech.NewService(upstream, cfg.TTS, cfg.Realtime, logging.Component(logger, "speech"))

	var rdb *redis.Client
	if cfg.Cache.Backend == "redis" {
		rdb, err = cache.NewRedisClient(ctx, cfg.Cache)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		logger.Info("redis cache connected", zap.String("addr", cfg.Cache.RedisAddr))
	}
	storyCache, err := cache.Build(cfg.Cache, rdb, "story")
	if err != nil {
		logger.Fatal("failed to build story cache", zap.Error(err))
	}
	audioCache, err := cache.Build(cfg.Cache, rdb, "audio")
	if err != nil {
		logger.Fatal("failed to build audio cache", zap.Error(err))
	}

	chatModel := chat.NewChatModel(bridgeSvc,
		chat.WithModel(cfg.OpenAI.DefaultModel),
		chat.WithMaxCompletionTokens(cfg.OpenAI.MaxCompletionTokens),
	)
	storySvc, err := story.NewService(ctx, chatModel, speechSvc, storyCache, audioCache, logging.Component(logger, "story"), collector)
	if err != nil {
		logger.Fatal("failed to initialize story service", zap.Error(err))
	}

	router := handler.NewRouter(handler.Deps{
		Chat:           bridgeSvc,
		Speech:         speechSvc,
		Personas:       persona.NewService(logging.Component(logger, "persona")),
		Stories:        storySvc,
		SpeechLimit:    middleware.RateLimiter(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst, logging.Component(logger, "ratelimit")),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        collector,
		Logger:         logger,
	})

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("DPP browser backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv, serverCfg.ShutdownTimeout); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func runServer(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
