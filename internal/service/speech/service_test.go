package speech

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
	speechmodel "github.com/zhouzirui/dpp-browser/backend/internal/model/speech"
)

type fakeUpstream struct {
	calls   int
	path    string
	payload map[string]any
	body    string
	err     error
}

func (f *fakeUpstream) PostJSON(_ context.Context, path string, payload any) (*http.Response, error) {
	f.calls++
	f.path = path
	raw, _ := json.Marshal(payload)
	_ = json.Unmarshal(raw, &f.payload)
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func newTestService(up Upstream) *Service {
	cfg := config.Default()
	return NewService(up, cfg.TTS, cfg.Realtime, zap.NewNop())
}

func TestSynthesizeDefaults(t *testing.T) {
	up := &fakeUpstream{body: "ID3fake-mp3"}
	svc := newTestService(up)

	audio, err := svc.Synthesize(context.Background(), speechmodel.TTSRequest{Text: "Ciao"})
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3fake-mp3"), audio.Data)
	assert.Equal(t, "audio/mpeg", audio.ContentType)

	assert.Equal(t, "/audio/speech", up.path)
	assert.Equal(t, "tts-1", up.payload["model"])
	assert.Equal(t, "alloy", up.payload["voice"])
	assert.Equal(t, "mp3", up.payload["response_format"])
	assert.Equal(t, 1.0, up.payload["speed"])
	assert.Equal(t, "Ciao", up.payload["input"])
}

func TestSynthesizeValidation(t *testing.T) {
	up := &fakeUpstream{}
	svc := newTestService(up)

	cases := []speechmodel.TTSRequest{
		{Text: ""},
		{Text: "   "},
		{Text: strings.Repeat("a", speechmodel.MaxTTSInputLength+1)},
		{Text: "hi", Voice: "robot"},
		{Text: "hi", Speed: 9},
	}
	for _, req := range cases {
		_, err := svc.Synthesize(context.Background(), req)
		assert.True(t, errs.IsKind(err, errs.KindClientInput), "%+v", req)
	}
	assert.Zero(t, up.calls)

	_, err := svc.Synthesize(context.Background(), speechmodel.TTSRequest{Text: strings.Repeat("a", speechmodel.MaxTTSInputLength)})
	require.NoError(t, err)
}

func TestIssueTokenObjectSecret(t *testing.T) {
	up := &fakeUpstream{body: `{"id":"sess_1","model":"gpt-realtime-mini","client_secret":{"value":"ek_123","expires_at":1700000000}}`}
	svc := newTestService(up)

	tok, err := svc.IssueToken(context.Background(), speechmodel.TokenRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ek_123", tok.Token)
	assert.Equal(t, int64(1700000000), tok.ExpiresAt)
	assert.Equal(t, "gpt-realtime-mini", tok.Model)

	assert.Equal(t, "/realtime/sessions", up.path)
	assert.Equal(t, "gpt-realtime-mini", up.payload["model"])
	assert.Equal(t, "alloy", up.payload["voice"])
}

func TestIssueTokenStringSecret(t *testing.T) {
	up := &fakeUpstream{body: `{"client_secret":"ek_flat","expires_at":42}`}
	svc := newTestService(up)

	tok, err := svc.IssueToken(context.Background(), speechmodel.TokenRequest{Model: "gpt-realtime", Voice: "nova"})
	require.NoError(t, err)
	assert.Equal(t, "ek_flat", tok.Token)
	assert.Equal(t, int64(42), tok.ExpiresAt)
	assert.Equal(t, "gpt-realtime", tok.Model)
}

func TestIssueTokenMissingSecret(t *testing.T) {
	svc := newTestService(&fakeUpstream{body: `{"model":"x"}`})
	_, err := svc.IssueToken(context.Background(), speechmodel.TokenRequest{})
	assert.True(t, errs.IsKind(err, errs.KindUpstream))
}

func TestVoiceForLanguage(t *testing.T) {
	assert.Equal(t, "alloy", VoiceForLanguage("IT"))
	assert.Equal(t, "nova", VoiceForLanguage("en"))
	assert.Equal(t, "shimmer", VoiceForLanguage("ES"))
	assert.Equal(t, "alloy", VoiceForLanguage("FR"))
	assert.Equal(t, "alloy", VoiceForLanguage("DE"))
}
