package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/dpp-browser/backend/internal/model/chat"
)

func TestSelectDialect(t *testing.T) {
	cases := []struct {
		model string
		want  Dialect
	}{
		{"gpt-5-nano", DialectResponses},
		{"gpt-5", DialectResponses},
		{"gpt-5-mini", DialectResponses},
		{"gpt-5-chat-latest", DialectChatCompletions},
		{"gpt-4o", DialectChatCompletions},
		{"o1-mini", DialectChatCompletions},
		{"", DialectChatCompletions},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SelectDialect(tc.model), tc.model)
	}
}

func TestBuildResponsesPayloadLiftsSystem(t *testing.T) {
	req := chat.Request{
		Model: "gpt-5-nano",
		Messages: []chat.Message{
			chat.SystemMessage("You are a jacket."),
			chat.UserMessage("hi"),
			chat.AssistantMessage("hello"),
			chat.UserMessage("what are you made of?"),
		},
		MaxCompletionTokens: 500,
		ReasoningEffort:     "low",
	}

	raw, err := json.Marshal(buildResponsesPayload(req))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "You are a jacket.", got["instructions"])
	assert.Equal(t, float64(500), got["max_output_tokens"])
	assert.Equal(t, true, got["stream"])
	assert.Equal(t, map[string]any{"effort": "low"}, got["reasoning"])

	input := got["input"].([]any)
	require.Len(t, input, 3)
	assert.Equal(t, map[string]any{"role": "user", "content": "hi"}, input[0])
	assert.Equal(t, map[string]any{"role": "user", "content": "what are you made of?"}, input[2])
}

func TestBuildResponsesPayloadWithoutSystem(t *testing.T) {
	p := buildResponsesPayload(chat.Request{Model: "gpt-5", Messages: []chat.Message{chat.UserMessage("x")}})
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "instructions")
	assert.Len(t, p.Input, 1)
}

func TestSystemPromptSentUnchangedByBothDialects(t *testing.T) {
	system := "  Sei una giacca.\n\n"
	req := chat.Request{
		Model:    "gpt-5-nano",
		Messages: []chat.Message{chat.SystemMessage(system), chat.UserMessage("ciao")},
	}

	assert.Equal(t, system, buildResponsesPayload(req).Instructions)
	assert.Equal(t, system, buildChatCompletionsPayload(req).Messages[0].Content)
}

func TestBuildChatCompletionsPayloadReasoningOnlyForReasoningModels(t *testing.T) {
	req := chat.Request{
		Messages:            []chat.Message{chat.UserMessage("x")},
		MaxCompletionTokens: 500,
		ReasoningEffort:     "low",
	}

	req.Model = "gpt-4o"
	p := buildChatCompletionsPayload(req)
	assert.Empty(t, p.ReasoningEffort)
	assert.Equal(t, 500, p.MaxCompletionTokens)
	assert.True(t, p.Stream)

	req.Model = "o1-mini"
	assert.Equal(t, "low", buildChatCompletionsPayload(req).ReasoningEffort)
}
