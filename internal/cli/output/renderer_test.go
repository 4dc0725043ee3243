package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeAuto},
		{in: "auto", want: ModeAuto},
		{in: "TEXT", want: ModeText},
		{in: "md", want: ModeMarkdown},
		{in: "json", want: ModeJSON},
		{in: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorContains(t, err, "invalid output format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{name: "auto on terminal", mode: ModeAuto, isTTY: true, want: ModeText},
		{name: "auto when piped", mode: ModeAuto, isTTY: false, want: ModeMarkdown},
		{name: "explicit json", mode: ModeJSON, isTTY: true, want: ModeJSON},
		{name: "invalid falls back to auto", mode: "bogus", isTTY: false, want: ModeMarkdown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_BufferIsNotTerminal(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestRenderer_Table(t *testing.T) {
	t.Run("markdown", func(t *testing.T) {
		out := &bytes.Buffer{}
		r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeMarkdown)
		r.Table([]string{"Model", "Rows"}, [][]string{{"users", "3"}})
		assert.Contains(t, out.String(), "| Model | Rows |")
		assert.Contains(t, out.String(), "| users | 3 |")
	})

	t.Run("text", func(t *testing.T) {
		out := &bytes.Buffer{}
		r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeText)
		r.Table([]string{"Model", "Rows"}, [][]string{{"users", "3"}})
		assert.Contains(t, out.String(), "users")
		assert.Contains(t, out.String(), "┌")
	})
}

func TestRenderer_Notices(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	r := NewRendererWithTTY(out, errOut, false, ModeText)

	r.Header(1, "Runs")
	r.Muted("nothing yet")
	r.Success("done")
	r.Warning("skipped")

	assert.Equal(t, "Runs\nnothing yet\n", out.String(), "plain styles off a terminal")
	assert.Equal(t, "done\nwarning: skipped\n", errOut.String())
}

func TestRenderer_MarkdownHeaderAndJSON(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeMarkdown)
	r.Header(2, "Levels")
	require.NoError(t, r.JSON(map[string]int{"users": 1}))

	assert.True(t, strings.HasPrefix(out.String(), "## Levels\n\n"))
	assert.Contains(t, out.String(), "\"users\": 1")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Sub", FormatHeader(3, "Sub"))
	assert.Equal(t, "- **Seed:** demo", FormatKeyValue("Seed", "demo"))
}
