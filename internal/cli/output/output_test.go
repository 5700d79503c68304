package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode(t *testing.T) {
	tests := map[string]OutputMode{
		"":         ModeAuto,
		"auto":     ModeAuto,
		"TEXT":     ModeText,
		"markdown": ModeMarkdown,
		"md":       ModeMarkdown,
		" json ":   ModeJSON,
		"yaml":     ModeAuto,
	}
	for in, want := range tests {
		assert.Equal(t, want, Mode(in), "input %q", in)
	}
}

func TestEffectiveMode(t *testing.T) {
	var out, errOut bytes.Buffer

	assert.Equal(t, ModeText, NewRendererWithTTY(&out, &errOut, true, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeMarkdown, NewRendererWithTTY(&out, &errOut, false, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRendererWithTTY(&out, &errOut, true, ModeJSON).EffectiveMode())
	assert.False(t, NewRenderer(&out, &errOut, ModeAuto).IsTTY(), "a buffer is never a terminal")
}

func TestRenderer_Markdown(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeAuto)

	r.Header(2, "Catalog")
	r.KeyValue("Entries", "3")
	r.Table([]string{"name", "backend"}, [][]string{{"Orders", "relational"}})
	r.Success("done")

	got := out.String()
	assert.Contains(t, got, "## Catalog\n")
	assert.Contains(t, got, "- **Entries**: 3")
	assert.Contains(t, got, "| name | backend |")
	assert.Contains(t, got, "| Orders | relational |")
	assert.NotContains(t, got, "\x1b[")
	assert.Contains(t, errOut.String(), "done")
}

func TestRenderer_Text(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, true, ModeText)

	r.Header(1, "Overview")
	r.KeyValue("Tables", "12")
	r.Table([]string{"a"}, [][]string{{"1"}})

	got := out.String()
	assert.Contains(t, got, "Overview")
	assert.Contains(t, got, "Tables: 12")
	assert.Contains(t, got, "┌")
	assert.Equal(t, "ok", NewRendererWithTTY(&out, &errOut, false, ModeMarkdown).Status(true, "ok"))
}

func TestRenderer_JSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"rows": 2}))
	assert.Equal(t, "{\n  \"rows\": 2\n}\n", out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Sub", FormatHeader(3, "Sub"))
	assert.True(t, strings.HasPrefix(FormatKeyValue("k", "v"), "- **k**"))
}
