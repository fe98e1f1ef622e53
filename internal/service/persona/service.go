// Package persona 根据 DPP 文档生成"产品自述"角色的提示词。
package persona

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/model/persona"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/product"
)

// ErrInvalidProduct 表示文档缺少可用于构造角色的基本信息。
var ErrInvalidProduct = errors.New("product data must contain a name, forms or data")

// Validate 检查文档至少包含名称、表单或数据之一。
func Validate(p product.Product) error {
	if !p.HasBasicInfo() {
		return ErrInvalidProduct
	}
	return nil
}

// Service 持有各语言的系统提示词模板。
type Service struct {
	templates map[persona.Language]prompt.ChatTemplate
	logger    *zap.Logger
}

// NewService 构造服务。
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	templates := make(map[persona.Language]prompt.ChatTemplate, len(systemTemplates))
	for lang, tpl := range systemTemplates {
		templates[lang] = prompt.FromMessages(schema.FString, schema.SystemMessage(tpl))
	}
	return &Service{templates: templates, logger: logger}
}

// Build 生成系统提示词与欢迎提示。
func (s *Service) Build(ctx context.Context, p product.Product, lang persona.Language) (persona.Persona, error) {
	if err := Validate(p); err != nil {
		return persona.Persona{}, err
	}
	lang = persona.ParseLanguage(string(lang))

	info := Extract(p)
	traits := Traits(info)
	name := info.Name
	if strings.TrimSpace(name) == "" {
		name = defaultProductName(lang)
	}

	msgs, err := s.templates[lang].Format(ctx, map[string]any{
		"product_name": name,
		"personality":  traits,
		"product_data": p.Indented(),
	})
	if err != nil {
		return persona.Persona{}, fmt.Errorf("format persona prompt: %w", err)
	}
	if len(msgs) == 0 {
		return persona.Persona{}, errors.New("persona template produced no messages")
	}

	s.logger.Debug("persona prompt built",
		zap.String("language", string(lang)),
		zap.String("product", name),
		zap.String("traits", traits),
	)
	return persona.Persona{
		Language:      lang,
		ProductName:   name,
		Traits:        traits,
		SystemPrompt:  msgs[0].Content,
		WelcomePrompt: WelcomePrompt(lang),
	}, nil
}

// WelcomePrompt 返回让角色自我介绍的首条用户消息。
func WelcomePrompt(lang persona.Language) string {
	return welcomePrompts[persona.ParseLanguage(string(lang))]
}

// FallbackWelcome 返回生成失败时使用的欢迎词。
func FallbackWelcome(p product.Product, lang persona.Language) string {
	lang = persona.ParseLanguage(string(lang))
	name := strings.TrimSpace(Extract(p).Name)
	if name == "" {
		name = "the product"
		if lang == persona.Italian {
			name = "il prodotto"
		}
	}
	return fmt.Sprintf(fallbackWelcomes[lang], name)
}

// GenerateWelcome 通过 send 请求欢迎故事，失败时返回兜底欢迎词。
func (s *Service) GenerateWelcome(ctx context.Context, send func(context.Context, string) (string, error), p product.Product, lang persona.Language) string {
	story, err := send(ctx, WelcomePrompt(lang))
	if err != nil {
		s.logger.Warn("welcome story generation failed, using fallback", zap.Error(err))
		return FallbackWelcome(p, lang)
	}
	return story
}

func defaultProductName(lang persona.Language) string {
	if lang == persona.Italian {
		return "un capo di abbigliamento"
	}
	return "a clothing item"
}
