package bridge

import (
	"github.com/zhouzirui/dpp-browser/backend/internal/model/chat"
)

type chatCompletionsPayload struct {
	Model               string         `json:"model"`
	Messages            []chat.Message `json:"messages"`
	Stream              bool           `json:"stream"`
	MaxCompletionTokens int            `json:"max_completion_tokens"`
	ReasoningEffort     string         `json:"reasoning_effort,omitempty"`
}

type responsesInput struct {
	Role    chat.Role `json:"role"`
	Content string    `json:"content"`
}

type responsesReasoning struct {
	Effort string `json:"effort"`
}

type responsesPayload struct {
	Model           string              `json:"model"`
	Instructions    string              `json:"instructions,omitempty"`
	Input           []responsesInput    `json:"input"`
	MaxOutputTokens int                 `json:"max_output_tokens"`
	Reasoning       *responsesReasoning `json:"reasoning,omitempty"`
	Stream          bool                `json:"stream"`
}

func buildChatCompletionsPayload(req chat.Request) chatCompletionsPayload {
	p := chatCompletionsPayload{
		Model:               req.Model,
		Messages:            req.Messages,
		Stream:              true,
		MaxCompletionTokens: req.MaxCompletionTokens,
	}
	if isReasoningModel(req.Model) {
		p.ReasoningEffort = req.ReasoningEffort
	}
	return p
}

// buildResponsesPayload 将首条 system 消息提升为 instructions，其余消息按序放入 input。
func buildResponsesPayload(req chat.Request) responsesPayload {
	instructions, rest := chat.SplitSystem(req.Messages)

	input := make([]responsesInput, 0, len(rest))
	for _, m := range rest {
		input = append(input, responsesInput{Role: m.Role, Content: m.Content})
	}

	p := responsesPayload{
		Model:           req.Model,
		Instructions:    instructions,
		Input:           input,
		MaxOutputTokens: req.MaxCompletionTokens,
		Stream:          true,
	}
	if req.ReasoningEffort != "" {
		p.Reasoning = &responsesReasoning{Effort: req.ReasoningEffort}
	}
	return p
}
