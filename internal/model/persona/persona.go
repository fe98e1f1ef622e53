// Package persona 描述由产品数据派生的对话角色。
package persona

import "strings"

// Language 是界面语言代码。
type Language string

const (
	Italian Language = "IT"
	English Language = "EN"
	Spanish Language = "ES"
	French  Language = "FR"
)

// ParseLanguage 规范化语言代码，未知或为空时回退为英语。
func ParseLanguage(code string) Language {
	switch lang := Language(strings.ToUpper(strings.TrimSpace(code))); lang {
	case Italian, English, Spanish, French:
		return lang
	}
	return English
}

// Info 是从产品文档中抽取的关键信息。
type Info struct {
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Materials      []string `json:"materials"`
	Colors         []string `json:"colors"`
	Certifications []string `json:"certifications"`
	Sustainability []string `json:"sustainability"`
	Origin         string   `json:"origin"`
	Brand          string   `json:"brand"`
}

// Persona 是交给前端的角色提示词。
type Persona struct {
	Language      Language `json:"language"`
	ProductName   string   `json:"productName"`
	Traits        string   `json:"traits"`
	SystemPrompt  string   `json:"systemPrompt"`
	WelcomePrompt string   `json:"welcomePrompt"`
}
