package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/config"
	"github.com/zhouzirui/dpp-browser/backend/internal/errs"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/chat"
)

type fakeUpstream struct {
	calls   int
	path    string
	payload []byte
	body    string
	err     error
}

func (f *fakeUpstream) PostJSON(_ context.Context, path string, payload any) (*http.Response, error) {
	f.calls++
	f.path = path
	f.payload, _ = json.Marshal(payload)
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func testDefaults() config.OpenAIConfig {
	return config.Default().OpenAI
}

func TestOpenRejectsEmptyMessagesWithoutUpstreamCall(t *testing.T) {
	up := &fakeUpstream{}
	svc := NewService(up, testDefaults(), zap.NewNop(), nil)

	_, err := svc.Open(context.Background(), chat.Request{})
	require.Error(t, err)

	status, msg := errs.StatusAndMessage(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Messages array is required", msg)
	assert.Zero(t, up.calls)
}

func TestOpenRejectsUnknownRole(t *testing.T) {
	up := &fakeUpstream{}
	svc := NewService(up, testDefaults(), zap.NewNop(), nil)

	_, err := svc.Open(context.Background(), chat.Request{Messages: []chat.Message{{Role: "tool", Content: "x"}}})
	assert.True(t, errs.IsKind(err, errs.KindClientInput))
	assert.Zero(t, up.calls)
}

func TestOpenLegacyPassesBytesThrough(t *testing.T) {
	upstreamBody := "data: {\"id\":\"c1\",\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n" +
		"data: {\"id\":\"c1\",\"choices\":[{\"delta\":{}}],\"finish_reason\":\"stop\"}\n\n" +
		"data: [DONE]\n\n"
	up := &fakeUpstream{body: upstreamBody}
	svc := NewService(up, testDefaults(), zap.NewNop(), nil)

	rc, err := svc.Open(context.Background(), chat.Request{
		Model:    "gpt-4o",
		Messages: []chat.Message{chat.UserMessage("hello")},
	})
	require.NoError(t, err)
	defer rc.Close()

	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, upstreamBody, string(out))
	assert.Equal(t, "/chat/completions", up.path)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(up.payload, &sent))
	assert.Equal(t, "gpt-4o", sent["model"])
	assert.Equal(t, float64(500), sent["max_completion_tokens"])
	assert.NotContains(t, sent, "reasoning_effort")
}

func TestOpenStructuredAppliesDefaultsAndTranslates(t *testing.T) {
	up := &fakeUpstream{body: sampleStructuredStream()}
	svc := NewService(up, testDefaults(), zap.NewNop(), nil)

	rc, err := svc.Open(context.Background(), chat.Request{
		Messages: []chat.Message{chat.SystemMessage("persona"), chat.UserMessage("hello")},
	})
	require.NoError(t, err)
	defer rc.Close()

	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	texts, done := decodeUniform(t, string(out))
	assert.Equal(t, "Hello, I am made of organic cotton.", strings.Join(texts, ""))
	assert.Equal(t, 1, done)

	assert.Equal(t, "/responses", up.path)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(up.payload, &sent))
	assert.Equal(t, "gpt-5-nano", sent["model"])
	assert.Equal(t, "persona", sent["instructions"])
	assert.Equal(t, map[string]any{"effort": "low"}, sent["reasoning"])
}

func TestOpenPropagatesUpstreamError(t *testing.T) {
	up := &fakeUpstream{err: errs.Upstream(http.StatusTooManyRequests, "Rate limit exceeded")}
	svc := NewService(up, testDefaults(), zap.NewNop(), nil)

	_, err := svc.Open(context.Background(), chat.Request{Messages: []chat.Message{chat.UserMessage("x")}})
	status, msg := errs.StatusAndMessage(err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "Rate limit exceeded", msg)
}
