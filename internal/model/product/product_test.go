package product

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "summary": {"item_name": "Giacca Aurora"},
  "batch_code": "B01",
  "item_code": 778,
  "productfamily_code": "FAM",
  "forms": [{"form_name": "Materiali", "fields": [{"ID": 1}, {"ID": "2"}]}],
  "data": [
    {"ID": "1", "label": "Tessuto", "value": "Lana 80%"},
    {"ID": 2, "label": "Peso", "value": 450}
  ],
  "extra": {"kept": true}
}`

func TestParseFlexibleScalars(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, Text("Giacca Aurora"), p.Summary.ItemName)
	assert.Equal(t, Text("778"), p.ItemCode)

	item, ok := p.Lookup(p.Forms[0].Fields[0].ID)
	require.True(t, ok)
	assert.Equal(t, Text("Lana 80%"), item.Value)

	item, ok = p.Lookup(p.Forms[0].Fields[1].ID)
	require.True(t, ok)
	assert.Equal(t, Text("450"), item.Value)
}

func TestRawDocumentIsRetained(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"extra"`)
	assert.Contains(t, p.Indented(), "\n  \"summary\": {\n    \"item_name\": \"Giacca Aurora\"\n  }")
}

func TestParseRejectsNonObject(t *testing.T) {
	_, err := Parse([]byte(`[1,2]`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"summary":{"item_name":{"nested":1}}}`))
	assert.Error(t, err)
}

func TestStoryKeyAndBasicInfo(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "B01_778_FAM_IT", p.StoryKey("IT"))
	assert.True(t, p.HasBasicInfo())

	empty, err := Parse([]byte(`{"note":"x"}`))
	require.NoError(t, err)
	assert.False(t, empty.HasBasicInfo())
}
