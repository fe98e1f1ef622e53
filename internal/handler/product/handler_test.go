package product

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/errs"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/persona"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/product"
	personasvc "github.com/zhouzirui/dpp-browser/backend/internal/service/persona"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/speech"
)

type fakeStories struct {
	storyLang  persona.Language
	speechText string
	cleared    bool
	err        error
}

func (f *fakeStories) Story(_ context.Context, p product.Product, lang persona.Language) (string, error) {
	f.storyLang = lang
	if f.err != nil {
		return "", f.err
	}
	return "Sono " + p.Summary.ItemName.String(), nil
}

func (f *fakeStories) Speech(_ context.Context, text string, _ persona.Language) (*speech.Audio, error) {
	f.speechText = text
	if f.err != nil {
		return nil, f.err
	}
	return &speech.Audio{Data: []byte("mp3"), ContentType: speech.ContentTypeMPEG}, nil
}

func (f *fakeStories) ClearCache(context.Context) error {
	f.cleared = true
	return nil
}

func setupRouter(stories StoryService) *chi.Mux {
	r := chi.NewRouter()
	New(personasvc.NewService(zap.NewNop()), stories, zap.NewNop()).RegisterRoutes(r)
	return r
}

func post(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

const body = `{"product":{"summary":{"item_name":"Borsa"},"data":[{"ID":1,"label":"Colore","value":"Rosso"}]},"language":"es"}`

func TestPersonaEndpoint(t *testing.T) {
	resp := post(t, setupRouter(&fakeStories{}), "/persona", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var got persona.Persona
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Language != persona.Spanish {
		t.Fatalf("unexpected language %q", got.Language)
	}
	if !strings.HasPrefix(got.SystemPrompt, "Eres Borsa") {
		t.Fatalf("unexpected system prompt %q", got.SystemPrompt)
	}
	if got.WelcomePrompt == "" {
		t.Fatal("expected welcome prompt")
	}
}

func TestPersonaRejectsMissingOrEmptyProduct(t *testing.T) {
	r := setupRouter(&fakeStories{})
	for _, payload := range []string{`{"language":"IT"}`, `{"product":{"note":1}}`, `{"product":[1]}`, `not json`} {
		resp := post(t, r, "/persona", payload)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("payload %s: expected 400, got %d", payload, resp.Code)
		}
		var e map[string]string
		_ = json.Unmarshal(resp.Body.Bytes(), &e)
		if e["error"] == "" {
			t.Fatalf("payload %s: missing error message", payload)
		}
	}
}

func TestStoryEndpoint(t *testing.T) {
	stories := &fakeStories{}
	resp := post(t, setupRouter(stories), "/story", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"story":"Sono Borsa"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if stories.storyLang != persona.Spanish {
		t.Fatalf("unexpected language %q", stories.storyLang)
	}
}

func TestStoryUpstreamError(t *testing.T) {
	resp := post(t, setupRouter(&fakeStories{err: errs.Upstream(http.StatusTooManyRequests, "Rate limit reached")}), "/story", body)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Rate limit reached") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}

	resp = post(t, setupRouter(&fakeStories{err: errors.New("boom")}), "/story", body)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestStoryAudioWithText(t *testing.T) {
	stories := &fakeStories{}
	resp := post(t, setupRouter(stories), "/story/audio", `{"text":"Hola","language":"ES"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if resp.Header().Get("Content-Length") != "3" {
		t.Fatalf("unexpected content length %q", resp.Header().Get("Content-Length"))
	}
	if stories.speechText != "Hola" {
		t.Fatalf("unexpected speech text %q", stories.speechText)
	}
}

func TestStoryAudioGeneratesStoryFirst(t *testing.T) {
	stories := &fakeStories{}
	resp := post(t, setupRouter(stories), "/story/audio", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if stories.speechText != "Sono Borsa" {
		t.Fatalf("unexpected speech text %q", stories.speechText)
	}
}

func TestClearCache(t *testing.T) {
	stories := &fakeStories{}
	req := httptest.NewRequest(http.MethodDelete, "/story/cache", nil)
	resp := httptest.NewRecorder()
	setupRouter(stories).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if !stories.cleared {
		t.Fatal("expected cache to be cleared")
	}
}
