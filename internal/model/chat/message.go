package chat

import (
	"errors"
)

// Role 表示消息发送方。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid 判断角色是否为受支持的取值。
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message 是对话中的一条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage / UserMessage / AssistantMessage 为常用构造函数。
func SystemMessage(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func UserMessage(content string) Message      { return Message{Role: RoleUser, Content: content} }
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Request 是 POST /chat 的请求体。零值字段由桥接层补默认值。
type Request struct {
	Messages            []Message `json:"messages"`
	Model               string    `json:"model,omitempty"`
	MaxCompletionTokens int       `json:"max_completion_tokens,omitempty"`
	ReasoningEffort     string    `json:"reasoning_effort,omitempty"`
}

var (
	// ErrNoMessages 表示请求缺少消息。
	ErrNoMessages = errors.New("messages array is required")
	// ErrInvalidRole 表示消息角色非法。
	ErrInvalidRole = errors.New("message role must be system, user or assistant")
)

// Validate 校验请求体结构。
func (r Request) Validate() error {
	if len(r.Messages) == 0 {
		return ErrNoMessages
	}
	for _, m := range r.Messages {
		if !m.Role.Valid() {
			return ErrInvalidRole
		}
	}
	return nil
}

// SplitSystem 拆出首条 system 消息，返回其内容与剩余消息。
func SplitSystem(messages []Message) (string, []Message) {
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		return messages[0].Content, messages[1:]
	}
	return "", messages
}
