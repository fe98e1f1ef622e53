// Package story 生成产品第一人称故事及其语音，并缓存结果。
package story

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/zhouzirui/dpp-browser/backend/internal/cache"
	"github.com/zhouzirui/dpp-browser/backend/internal/metrics"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/persona"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/product"
	speechmodel "github.com/zhouzirui/dpp-browser/backend/internal/model/speech"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/speech"
)

// audioKeyPrefixLen 是音频缓存键中截取的文本长度（按字符计）。
const audioKeyPrefixLen = 50

// Synthesizer 是语音合成能力。
type Synthesizer interface {
	Synthesize(ctx context.Context, req speechmodel.TTSRequest) (*speech.Audio, error)
}

// Result 是故事及其语音。
type Result struct {
	Story string
	Audio *speech.Audio
}

// Service 生成并缓存故事与语音。并发的相同请求只触发一次上游调用。
type Service struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	speech  Synthesizer
	stories cache.Cache
	audio   cache.Cache
	group   singleflight.Group
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewService 编译 模板 -> 聊天模型 链。
func NewService(ctx context.Context, chatModel einomodel.BaseChatModel, synth Synthesizer, stories, audio cache.Cache, logger *zap.Logger, m *metrics.Collector) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tpl := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(storytellerSystem),
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tpl)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile story chain: %w", err)
	}

	return &Service{
		chain:   runnable,
		speech:  synth,
		stories: stories,
		audio:   audio,
		logger:  logger,
		metrics: m,
	}, nil
}

// Story 返回产品故事，键为 batch_item_family_lang。
func (s *Service) Story(ctx context.Context, p product.Product, lang persona.Language) (string, error) {
	lang = persona.ParseLanguage(string(lang))
	key := p.StoryKey(string(lang))

	if data, ok := s.lookup(ctx, s.stories, "story", key); ok {
		return string(data), nil
	}

	v, err, shared := s.group.Do("story:"+key, func() (any, error) {
		msg, err := s.chain.Invoke(ctx, map[string]any{"prompt": buildPrompt(p, lang)})
		if err != nil {
			return nil, fmt.Errorf("failed to run story chain: %w", err)
		}
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			return nil, errors.New("story generation returned empty text")
		}
		s.store(ctx, s.stories, key, []byte(text))
		return text, nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("story generated", zap.String("key", key), zap.Bool("shared", shared))
	return v.(string), nil
}

// Speech 合成文本语音，声音按语言选择；键为 audio_<前 50 个字符>_<lang>。
func (s *Service) Speech(ctx context.Context, text string, lang persona.Language) (*speech.Audio, error) {
	lang = persona.ParseLanguage(string(lang))
	key := AudioKey(text, lang)

	if data, ok := s.lookup(ctx, s.audio, "audio", key); ok {
		return &speech.Audio{Data: data, ContentType: speech.ContentTypeMPEG}, nil
	}

	v, err, _ := s.group.Do("audio:"+key, func() (any, error) {
		a, err := s.speech.Synthesize(ctx, speechmodel.TTSRequest{
			Text:  text,
			Voice: speech.VoiceForLanguage(string(lang)),
			Model: "tts-1",
			Speed: 1.0,
		})
		if err != nil {
			return nil, err
		}
		s.store(ctx, s.audio, key, a.Data)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*speech.Audio), nil
}

// StoryWithAudio 先生成故事再合成语音。
func (s *Service) StoryWithAudio(ctx context.Context, p product.Product, lang persona.Language) (*Result, error) {
	text, err := s.Story(ctx, p, lang)
	if err != nil {
		return nil, err
	}
	a, err := s.Speech(ctx, text, lang)
	if err != nil {
		return nil, err
	}
	return &Result{Story: text, Audio: a}, nil
}

// ClearCache 清空故事与音频缓存。
func (s *Service) ClearCache(ctx context.Context) error {
	return errors.Join(s.stories.Clear(ctx), s.audio.Clear(ctx))
}

// AudioKey 返回音频缓存键。
func AudioKey(text string, lang persona.Language) string {
	runes := []rune(text)
	if len(runes) > audioKeyPrefixLen {
		runes = runes[:audioKeyPrefixLen]
	}
	return "audio_" + string(runes) + "_" + string(lang)
}

func (s *Service) lookup(ctx context.Context, c cache.Cache, name, key string) ([]byte, bool) {
	data, err := c.Get(ctx, key)
	switch {
	case err == nil:
		s.metrics.RecordCache(name, true)
		s.logger.Debug("cache hit", zap.String("cache", name), zap.String("key", key))
		return data, true
	case !errors.Is(err, cache.ErrMiss):
		s.logger.Warn("cache get error", zap.String("cache", name), zap.Error(err))
	}
	s.metrics.RecordCache(name, false)
	return nil, false
}

func (s *Service) store(ctx context.Context, c cache.Cache, key string, data []byte) {
	if err := c.Set(ctx, key, data); err != nil {
		s.logger.Warn("cache set error", zap.String("key", key), zap.Error(err))
	}
}
