// Package product 描述数字产品护照（DPP）文档。
// 文档来自外部系统，字段类型并不稳定：ID 与取值可能是字符串也可能是数字，
// 因此解码时保留原始 JSON，供提示词原样嵌入。
package product

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Text 接受字符串、数字、布尔或 null，统一为字符串。
type Text string

// UnmarshalJSON 实现 json.Unmarshaler。
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case data[0] == '{', data[0] == '[':
		return errors.New("product: expected scalar value")
	default:
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Summary 是文档摘要。
type Summary struct {
	ItemName Text `json:"item_name"`
}

// Field 是表单中对数据项的引用。
type Field struct {
	ID Text `json:"ID"`
}

// Form 是一组数据项。
type Form struct {
	FormName Text    `json:"form_name"`
	Fields   []Field `json:"fields"`
}

// DataItem 是一条带标签的数据。
type DataItem struct {
	ID    Text `json:"ID"`
	Label Text `json:"label"`
	Value Text `json:"value"`
}

// Product 是一份 DPP 文档。
type Product struct {
	Summary           Summary    `json:"summary"`
	Forms             []Form     `json:"forms"`
	Data              []DataItem `json:"data"`
	BatchCode         Text       `json:"batch_code"`
	ItemCode          Text       `json:"item_code"`
	ProductFamilyCode Text       `json:"productfamily_code"`

	raw json.RawMessage
}

type productAlias Product

// UnmarshalJSON 解码并保留原始文档。
func (p *Product) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrNotObject
	}

	var a productAlias
	if err := json.Unmarshal(trimmed, &a); err != nil {
		return err
	}
	*p = Product(a)
	p.raw = append(json.RawMessage(nil), trimmed...)
	return nil
}

// MarshalJSON 优先输出原始文档。
func (p Product) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	return json.Marshal(productAlias(p))
}

// ErrNotObject 表示文档不是 JSON 对象。
var ErrNotObject = errors.New("product data must be a JSON object")

// Parse 解码一份文档。
func Parse(data []byte) (Product, error) {
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Indented 返回两空格缩进的完整文档。
func (p Product) Indented() string {
	raw, err := p.MarshalJSON()
	if err != nil {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// Lookup 按 ID 查找数据项，ID 以字符串形式比较。
func (p Product) Lookup(id Text) (DataItem, bool) {
	for _, d := range p.Data {
		if d.ID == id {
			return d, true
		}
	}
	return DataItem{}, false
}

// HasBasicInfo 判断文档是否至少包含名称、表单或数据之一。
func (p Product) HasBasicInfo() bool {
	return strings.TrimSpace(p.Summary.ItemName.String()) != "" || len(p.Forms) > 0 || len(p.Data) > 0
}

// StoryKey 返回故事缓存键 batch_item_family_lang。
func (p Product) StoryKey(language string) string {
	return strings.Join([]string{
		p.BatchCode.String(),
		p.ItemCode.String(),
		p.ProductFamilyCode.String(),
		language,
	}, "_")
}
