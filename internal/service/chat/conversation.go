package chat

import (
	"context"

	"github.com/zhouzirui/dpp-browser/backend/internal/model/chat"
)

// Conversation 维护一段以 system 消息开头、只追加的对话历史。
// 非并发安全：同一时刻只允许一个调用方，也就只有一个未完成的请求。
type Conversation struct {
	opener   Opener
	messages []chat.Message
}

// Metadata 是对话概要。MessageCount 不含 system 消息。
type Metadata struct {
	MessageCount int    `json:"messageCount"`
	SystemPrompt string `json:"systemPrompt"`
}

// SendOption 调整单次请求参数。
type SendOption func(*chat.Request)

// WithModel 指定模型。
func WithModel(model string) SendOption {
	return func(r *chat.Request) { r.Model = model }
}

// WithMaxCompletionTokens 指定最大输出 token 数。
func WithMaxCompletionTokens(n int) SendOption {
	return func(r *chat.Request) { r.MaxCompletionTokens = n }
}

// WithReasoningEffort 指定推理强度。
func WithReasoningEffort(effort string) SendOption {
	return func(r *chat.Request) { r.ReasoningEffort = effort }
}

// NewConversation 以给定 system 提示词开始一段对话。
func NewConversation(opener Opener, systemPrompt string) *Conversation {
	return &Conversation{
		opener:   opener,
		messages: []chat.Message{chat.SystemMessage(systemPrompt)},
	}
}

// Send 追加用户消息并流式获取回复；成功后追加助手回复。
// 失败时撤回本次用户消息，历史保持调用前的状态。
func (c *Conversation) Send(ctx context.Context, text string, onChunk func(string), opts ...SendOption) (string, error) {
	c.messages = append(c.messages, chat.UserMessage(text))

	req := chat.Request{Messages: c.Messages()}
	for _, opt := range opts {
		opt(&req)
	}

	reply, err := Stream(ctx, c.opener, req, onChunk)
	if err != nil {
		c.messages = c.messages[:len(c.messages)-1]
		return "", err
	}
	c.messages = append(c.messages, chat.AssistantMessage(reply))
	return reply, nil
}

// Messages 返回历史副本。
func (c *Conversation) Messages() []chat.Message {
	out := make([]chat.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Reset 清空历史，只保留 system 消息。
func (c *Conversation) Reset() {
	c.messages = c.messages[:1]
}

// UpdateSystemPrompt 替换 system 消息。
func (c *Conversation) UpdateSystemPrompt(prompt string) {
	c.messages[0] = chat.SystemMessage(prompt)
}

// Metadata 返回对话概要。
func (c *Conversation) Metadata() Metadata {
	return Metadata{
		MessageCount: len(c.messages) - 1,
		SystemPrompt: c.messages[0].Content,
	}
}
