// Package errs 定义服务内统一的错误分类。
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 是错误类别。
type Kind int

const (
	KindInternal Kind = iota
	// KindClientInput 请求参数非法，不会调用上游。
	KindClientInput
	// KindConfig 服务端缺少配置（例如密钥），对调用方只返回通用信息。
	KindConfig
	// KindUpstream 上游返回非 2xx。
	KindUpstream
	// KindStreamParse 流中单条事件解析失败，局部可恢复。
	KindStreamParse
	// KindTransport 网络或连接层错误。
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindClientInput:
		return "client_input"
	case KindConfig:
		return "config"
	case KindUpstream:
		return "upstream"
	case KindStreamParse:
		return "stream_parse"
	case KindTransport:
		return "transport"
	default:
		return "internal"
	}
}

// ConfigPublicMessage 是配置错误对外暴露的文案。
const ConfigPublicMessage = "Server configuration error"

// Error 携带类别、HTTP 状态与对外文案。
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ClientInput 构造 400 错误。
func ClientInput(message string) *Error {
	return &Error{Kind: KindClientInput, Status: http.StatusBadRequest, Message: message}
}

// Config 构造配置错误，detail 只用于日志。
func Config(detail string) *Error {
	return &Error{Kind: KindConfig, Status: http.StatusInternalServerError, Message: ConfigPublicMessage, Err: errors.New(detail)}
}

// Upstream 构造上游错误，状态码原样透传。
func Upstream(status int, message string) *Error {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return &Error{Kind: KindUpstream, Status: status, Message: message}
}

// Transport 包装连接层错误。
func Transport(message string, err error) *Error {
	return &Error{Kind: KindTransport, Status: http.StatusBadGateway, Message: message, Err: err}
}

// StreamParse 包装单条事件解析错误。
func StreamParse(err error) *Error {
	return &Error{Kind: KindStreamParse, Status: http.StatusBadGateway, Message: "malformed stream event", Err: err}
}

// As 提取 *Error。
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind 判断错误类别。
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// StatusAndMessage 返回 HTTP 状态与对外文案，未分类错误按 500 处理。
func StatusAndMessage(err error) (int, string) {
	if e, ok := As(err); ok {
		return e.Status, e.Message
	}
	return http.StatusInternalServerError, "Internal server error"
}
