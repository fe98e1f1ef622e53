package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/errs"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// RespondError 发送错误响应 {"error": message}
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondErr 按错误分类写出响应；配置类与未分类错误只记录日志，不暴露细节。
func RespondErr(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, message := errs.StatusAndMessage(err)
	if logger == nil {
		logger = zap.L()
	}
	switch {
	case errs.IsKind(err, errs.KindClientInput):
		logger.Debug("rejected request", zap.Error(err))
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	default:
		logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	RespondError(w, status, message)
}

// DecodeJSON 解析请求体，失败时返回客户端输入错误。
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errs.ClientInput("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.ClientInput("invalid JSON payload")
	}
	return nil
}
