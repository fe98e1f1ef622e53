package bridge

import "strings"

// Dialect 表示上游流式协议。
type Dialect string

const (
	// DialectChatCompletions 为旧版逐 token 增量协议，原样透传。
	DialectChatCompletions Dialect = "chat_completions"
	// DialectResponses 为结构化事件协议，需要翻译为统一格式。
	DialectResponses Dialect = "responses"
)

const (
	structuredModelPrefix = "gpt-5"
	chatLatestMarker      = "chat-latest"
)

// SelectDialect 按模型名选择上游协议：gpt-5 系列（chat-latest 变体除外）走结构化事件协议。
func SelectDialect(model string) Dialect {
	if strings.HasPrefix(model, structuredModelPrefix) && !strings.Contains(model, chatLatestMarker) {
		return DialectResponses
	}
	return DialectChatCompletions
}

// isReasoningModel 判断旧版协议下是否需要携带 reasoning_effort。
func isReasoningModel(model string) bool {
	for _, family := range []string{"o1", "o3", "o4"} {
		if model == family || strings.HasPrefix(model, family+"-") {
			return true
		}
	}
	return false
}
