package persona

import (
	"strings"

	"github.com/zhouzirui/dpp-browser/backend/internal/model/persona"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/product"
)

// Extract 遍历各表单引用的数据项，按标签与表单名关键词归类。
// 取值为空或为 "-" 的数据项被忽略；同一标签命中多个类别时各自记录。
func Extract(p product.Product) persona.Info {
	info := persona.Info{
		Name:           p.Summary.ItemName.String(),
		Materials:      []string{},
		Colors:         []string{},
		Certifications: []string{},
		Sustainability: []string{},
	}

	for _, form := range p.Forms {
		formName := strings.ToLower(form.FormName.String())
		for _, field := range form.Fields {
			item, ok := p.Lookup(field.ID)
			if !ok {
				continue
			}
			value := item.Value.String()
			if value == "" || value == "-" {
				continue
			}
			label := strings.ToLower(item.Label.String())
			labeled := item.Label.String() + ": " + value

			if containsAny(label, "category", "categoria", "tipo") {
				info.Category = value
			}
			if containsAny(formName, "material", "composizione") ||
				containsAny(label, "material", "composizione", "tessuto", "fabric") {
				info.Materials = append(info.Materials, labeled)
			}
			if containsAny(label, "color", "colore") {
				info.Colors = append(info.Colors, value)
			}
			if containsAny(formName, "certif") || containsAny(label, "certif") {
				if value != "No" {
					info.Certifications = append(info.Certifications, labeled)
				}
			}
			if containsAny(formName, "sustainab", "sostenib", "environment") ||
				containsAny(label, "sustainab", "sostenib", "environment", "recycl", "ricicla", "eco") {
				info.Sustainability = append(info.Sustainability, labeled)
			}
			if containsAny(label, "origin", "made", "provenienza", "produzione", "production") {
				info.Origin = value
			}
			if containsAny(label, "brand", "marca", "company", "azienda") {
				info.Brand = value
			}
		}
	}
	return info
}

// Traits 由材料、认证与可持续信息推导性格描述。
func Traits(info persona.Info) string {
	var traits []string
	if anyContains(info.Materials, "cotton", "cotone") {
		traits = append(traits, "soft and comfortable")
	}
	if anyContains(info.Materials, "wool", "lana") {
		traits = append(traits, "warm and cozy")
	}
	if anyContains(info.Materials, "polyester") {
		traits = append(traits, "durable and practical")
	}
	if anyContains(info.Materials, "recycled", "riciclat") {
		traits = append(traits, "eco-conscious and responsible")
	}
	if len(info.Certifications) > 0 {
		traits = append(traits, "certified and trustworthy")
	}
	if len(info.Sustainability) > 0 {
		traits = append(traits, "environmentally friendly")
	}
	if len(traits) == 0 {
		traits = append(traits, "well-crafted and reliable")
	}
	return strings.Join(traits, ", ")
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func anyContains(items []string, keywords ...string) bool {
	for _, item := range items {
		if containsAny(strings.ToLower(item), keywords...) {
			return true
		}
	}
	return false
}
