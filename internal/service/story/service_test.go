package story

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/dpp-browser/backend/internal/cache"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/persona"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/product"
	speechmodel "github.com/zhouzirui/dpp-browser/backend/internal/model/speech"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/speech"
)

type fakeModel struct {
	calls   atomic.Int32
	release chan struct{}
	reply   string
	err     error

	mu    sync.Mutex
	input []*schema.Message
}

func (m *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.input = input
	m.mu.Unlock()
	if m.release != nil {
		<-m.release
	}
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

type fakeSynth struct {
	calls atomic.Int32
	last  speechmodel.TTSRequest
}

func (s *fakeSynth) Synthesize(_ context.Context, req speechmodel.TTSRequest) (*speech.Audio, error) {
	s.calls.Add(1)
	s.last = req
	return &speech.Audio{Data: []byte("ID3" + req.Text), ContentType: speech.ContentTypeMPEG}, nil
}

const doc = `{"summary":{"item_name":"Sciarpa"},"batch_code":"B7","item_code":"I9","productfamily_code":"F2"}`

func newTestService(t *testing.T, m *fakeModel) (*Service, *fakeSynth) {
	t.Helper()
	synth := &fakeSynth{}
	svc, err := NewService(context.Background(), m, synth, cache.NewMemory(8, time.Hour), cache.NewMemory(8, time.Hour), nil, nil)
	require.NoError(t, err)
	return svc, synth
}

func mustProduct(t *testing.T) product.Product {
	t.Helper()
	p, err := product.Parse([]byte(doc))
	require.NoError(t, err)
	return p
}

func TestStoryCachedByProductAndLanguage(t *testing.T) {
	m := &fakeModel{reply: "  Sono una sciarpa di lana.  "}
	svc, _ := newTestService(t, m)
	p := mustProduct(t)

	got, err := svc.Story(context.Background(), p, persona.Italian)
	require.NoError(t, err)
	assert.Equal(t, "Sono una sciarpa di lana.", got)

	m.mu.Lock()
	require.Len(t, m.input, 2)
	assert.Equal(t, storytellerSystem, m.input[0].Content)
	assert.True(t, strings.HasPrefix(m.input[1].Content, "Scrivi in italiano un racconto in prima persona (massimo 200 parole) che descrive"))
	assert.Contains(t, m.input[1].Content, `"batch_code": "B7"`)
	m.mu.Unlock()

	_, err = svc.Story(context.Background(), p, persona.Italian)
	require.NoError(t, err)
	assert.Equal(t, int32(1), m.calls.Load())

	_, err = svc.Story(context.Background(), p, persona.English)
	require.NoError(t, err)
	assert.Equal(t, int32(2), m.calls.Load())
}

func TestConcurrentStoryRequestsShareOneCall(t *testing.T) {
	m := &fakeModel{reply: "story", release: make(chan struct{})}
	svc, _ := newTestService(t, m)
	p := mustProduct(t)

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.Story(context.Background(), p, persona.French)
		}(i)
	}
	require.Eventually(t, func() bool { return m.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(m.release)
	wg.Wait()

	assert.Equal(t, int32(1), m.calls.Load())
	for _, r := range results {
		assert.Equal(t, "story", r)
	}
}

func TestStoryErrorIsNotCached(t *testing.T) {
	m := &fakeModel{err: errors.New("upstream 500")}
	svc, _ := newTestService(t, m)
	p := mustProduct(t)

	_, err := svc.Story(context.Background(), p, persona.Spanish)
	require.Error(t, err)

	m.err = nil
	m.reply = "ok"
	got, err := svc.Story(context.Background(), p, persona.Spanish)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestSpeechUsesLanguageVoiceAndCache(t *testing.T) {
	svc, synth := newTestService(t, &fakeModel{reply: "x"})

	a, err := svc.Speech(context.Background(), "Hola, soy una bufanda.", persona.Spanish)
	require.NoError(t, err)
	assert.Equal(t, speech.ContentTypeMPEG, a.ContentType)
	assert.Equal(t, "shimmer", synth.last.Voice)
	assert.Equal(t, "tts-1", synth.last.Model)
	assert.Equal(t, 1.0, synth.last.Speed)

	again, err := svc.Speech(context.Background(), "Hola, soy una bufanda.", persona.Spanish)
	require.NoError(t, err)
	assert.Equal(t, a.Data, again.Data)
	assert.Equal(t, int32(1), synth.calls.Load())

	require.NoError(t, svc.ClearCache(context.Background()))
	_, err = svc.Speech(context.Background(), "Hola, soy una bufanda.", persona.Spanish)
	require.NoError(t, err)
	assert.Equal(t, int32(2), synth.calls.Load())
}

func TestStoryWithAudio(t *testing.T) {
	svc, synth := newTestService(t, &fakeModel{reply: "I am a scarf."})
	res, err := svc.StoryWithAudio(context.Background(), mustProduct(t), persona.English)
	require.NoError(t, err)
	assert.Equal(t, "I am a scarf.", res.Story)
	assert.Equal(t, "nova", synth.last.Voice)
	assert.Equal(t, []byte("ID3I am a scarf."), res.Audio.Data)
}

func TestAudioKey(t *testing.T) {
	long := strings.Repeat("è", 60)
	assert.Equal(t, "audio_"+strings.Repeat("è", 50)+"_IT", AudioKey(long, persona.Italian))
	assert.Equal(t, "audio_short_EN", AudioKey("short", persona.English))
}
