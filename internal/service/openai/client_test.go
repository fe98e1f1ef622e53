package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/config"
	"github.com/zhouzirui/dpp-browser/backend/internal/errs"
)

func TestReadErrorMessage(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"json message", `{"error":{"message":"Rate limit exceeded","type":"requests"}}`, "Rate limit exceeded"},
		{"json string", `{"error":"bad voice"}`, "bad voice"},
		{"json without message", `{"error":{"code":42}}`, "OpenAI API error"},
		{"raw text", "upstream exploded", "upstream exploded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ReadErrorMessage(strings.NewReader(tc.body)))
		})
	}
}

func TestPostJSONMissingKey(t *testing.T) {
	c := NewClient(config.OpenAIConfig{BaseURL: "http://127.0.0.1:0"}, zap.NewNop())
	_, err := c.PostJSON(context.Background(), PathResponses, map[string]string{})
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConfig))
}

func TestPostJSONForwardsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/responses", r.URL.Path)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"Rate limit exceeded"}}`)
	}))
	defer srv.Close()

	c := NewClient(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, zap.NewNop())
	_, err := c.PostJSON(context.Background(), PathResponses, map[string]string{"a": "b"})
	require.Error(t, err)

	status, msg := errs.StatusAndMessage(err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "Rate limit exceeded", msg)
}
