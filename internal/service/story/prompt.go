package story

import (
	"fmt"

	"github.com/zhouzirui/dpp-browser/backend/internal/model/persona"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/product"
)

const storytellerSystem = "You are a creative storyteller who brings clothing items to life through engaging first-person narratives."

var languageInstructions = map[persona.Language]string{
	persona.Italian: "Scrivi in italiano un racconto in prima persona (massimo 200 parole)",
	persona.English: "Write in English a first-person narrative (maximum 200 words)",
	persona.Spanish: "Escribe en español una narrativa en primera persona (máximo 200 palabras)",
	persona.French:  "Écris en français un récit à la première personne (maximum 200 mots)",
}

// buildPrompt 生成故事请求。文档 JSON 作为模板变量传入，不参与模板解析。
func buildPrompt(p product.Product, lang persona.Language) string {
	return fmt.Sprintf(`%s che descrive questo capo di abbigliamento.
Parla come se fossi il capo stesso, raccontando la tua storia, i materiali di cui sei fatto,
le tue caratteristiche uniche e come puoi far sentire chi ti indossa.

Dati del prodotto:
%s

Rendi il racconto emotivo, coinvolgente e personale. Non usare formattazioni markdown.`,
		languageInstructions[persona.ParseLanguage(string(lang))], p.Indented())
}
