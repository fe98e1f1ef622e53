package chat

import (
	"context"
	"errors"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/dpp-browser/backend/internal/model/chat"
)

// ErrToolsUnsupported 表示统一流格式不承载工具调用。
var ErrToolsUnsupported = errors.New("chat model: tool calling is not supported")

// ChatModel 把统一格式的 SSE 流适配为 eino 聊天模型，可直接放进 compose 链。
type ChatModel struct {
	opener   Opener
	defaults []SendOption
}

var _ einomodel.ChatModel = (*ChatModel)(nil)

// NewChatModel 构造适配器，defaults 作用于每次请求。
func NewChatModel(opener Opener, defaults ...SendOption) *ChatModel {
	return &ChatModel{opener: opener, defaults: defaults}
}

// Generate 读完整条流并返回助手消息。
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	reply, err := Stream(ctx, m.opener, m.request(input, opts), nil)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(reply, nil), nil
}

// Stream 逐块输出助手消息，读取方提前关闭时释放上游。
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	body, err := m.opener.Open(ctx, m.request(input, opts))
	if err != nil {
		return nil, err
	}

	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer sw.Close()
		defer body.Close()

		_, err := DecodeStream(body, func(text string) {
			if closed := sw.Send(schema.AssistantMessage(text, nil), nil); closed {
				_ = body.Close()
			}
		})
		if err != nil {
			sw.Send(nil, err)
		}
	}()
	return sr, nil
}

// BindTools 不受支持。
func (m *ChatModel) BindTools([]*schema.ToolInfo) error {
	return ErrToolsUnsupported
}

func (m *ChatModel) request(input []*schema.Message, opts []einomodel.Option) chat.Request {
	req := chat.Request{Messages: fromSchema(input)}
	for _, opt := range m.defaults {
		opt(&req)
	}

	common := einomodel.GetCommonOptions(&einomodel.Options{}, opts...)
	if common.Model != nil && *common.Model != "" {
		req.Model = *common.Model
	}
	if common.MaxTokens != nil && *common.MaxTokens > 0 {
		req.MaxCompletionTokens = *common.MaxTokens
	}
	return req
}

// fromSchema 转换消息，工具消息被丢弃。
func fromSchema(input []*schema.Message) []chat.Message {
	out := make([]chat.Message, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			out = append(out, chat.SystemMessage(msg.Content))
		case schema.User:
			out = append(out, chat.UserMessage(msg.Content))
		case schema.Assistant:
			out = append(out, chat.AssistantMessage(msg.Content))
		}
	}
	return out
}

// ToSchema 把对话历史转换为 eino 消息。
func ToSchema(messages []chat.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			out = append(out, schema.SystemMessage(msg.Content))
		case chat.RoleUser:
			out = append(out, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return out
}
