// Package bridge 实现流式协议桥：将两种上游流式协议统一为 {"choices":[{"delta":{"content":...}}]} 块流。
package bridge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/config"
	"github.com/zhouzirui/dpp-browser/backend/internal/errs"
	"github.com/zhouzirui/dpp-browser/backend/internal/metrics"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/chat"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/openai"
)

// Upstream 是桥接层依赖的上游调用能力。
type Upstream interface {
	PostJSON(ctx context.Context, path string, payload any) (*http.Response, error)
}

// Service 打开上游流并返回统一格式的字节流。
type Service struct {
	upstream Upstream
	defaults config.OpenAIConfig
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// NewService 构造桥接服务。
func NewService(upstream Upstream, defaults config.OpenAIConfig, logger *zap.Logger, m *metrics.Collector) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		upstream: upstream,
		defaults: defaults,
		logger:   logger,
		metrics:  m,
	}
}

// Normalize 校验请求并补齐默认值。
func (s *Service) Normalize(req chat.Request) (chat.Request, error) {
	if err := req.Validate(); err != nil {
		if errors.Is(err, chat.ErrNoMessages) {
			return req, errs.ClientInput("Messages array is required")
		}
		return req, errs.ClientInput(err.Error())
	}
	if req.Model == "" {
		req.Model = s.defaults.DefaultModel
	}
	if req.MaxCompletionTokens <= 0 {
		req.MaxCompletionTokens = s.defaults.MaxCompletionTokens
	}
	if req.ReasoningEffort == "" {
		req.ReasoningEffort = s.defaults.ReasoningEffort
	}
	return req, nil
}

// Open 选择协议、调用上游，返回统一格式的流。调用方必须 Close。
// 旧版协议原样透传上游字节；结构化协议经翻译器转换。
func (s *Service) Open(ctx context.Context, req chat.Request) (io.ReadCloser, error) {
	req, err := s.Normalize(req)
	if err != nil {
		return nil, err
	}

	dialect := SelectDialect(req.Model)
	streamID := uuid.NewString()
	logger := s.logger.With(
		zap.String("stream_id", streamID),
		zap.String("model", req.Model),
		zap.String("dialect", string(dialect)),
	)

	var (
		path    string
		payload any
	)
	switch dialect {
	case DialectResponses:
		path, payload = openai.PathResponses, buildResponsesPayload(req)
	default:
		path, payload = openai.PathChatCompletions, buildChatCompletionsPayload(req)
	}

	logger.Info("opening upstream stream", zap.Int("messages", len(req.Messages)))
	resp, err := s.upstream.PostJSON(ctx, path, payload)
	if err != nil {
		outcome := "error"
		if e, ok := errs.As(err); ok {
			outcome = e.Kind.String()
		}
		s.metrics.RecordStream(string(dialect), outcome)
		return nil, err
	}
	s.metrics.RecordStream(string(dialect), "opened")

	var body io.ReadCloser = resp.Body
	var tr *translator
	if dialect == DialectResponses {
		tr = newTranslator(resp.Body, logger, s.metrics)
		body = tr
	}

	return &stream{
		ReadCloser: body,
		started:    time.Now(),
		onClose: func(d time.Duration) {
			fields := []zap.Field{zap.Duration("duration", d)}
			if tr != nil {
				fields = append(fields, zap.Int("chunks", tr.Chunks()))
			}
			logger.Info("upstream stream closed", fields...)
		},
	}, nil
}

// stream 在关闭时记录一次日志。
type stream struct {
	io.ReadCloser
	started time.Time
	once    sync.Once
	onClose func(time.Duration)
}

func (s *stream) Close() error {
	err := s.ReadCloser.Close()
	s.once.Do(func() { s.onClose(time.Since(s.started)) })
	return err
}
