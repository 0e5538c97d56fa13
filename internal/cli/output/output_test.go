package output

import (
	"bytes"
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
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"TEXT", ModeText, false},
		{"md", ModeMarkdown, false},
		{"markdown", ModeMarkdown, false},
		{"json", ModeJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ModeMarkdown, NewRenderer(&buf, &buf, ModeAuto).EffectiveMode(), "buffers are not terminals")
	assert.Equal(t, ModeText, NewRenderer(&buf, &buf, ModeText).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRenderer(&buf, &buf, ModeJSON).EffectiveMode())
}

func TestTable_Markdown(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeMarkdown)

	r.Table([]string{"Property", "Value"}, [][]string{{"Remaining", "5"}})
	out := buf.String()
	assert.Contains(t, out, "| Property | Value |")
	assert.Contains(t, out, "| Remaining | 5 |")
}

func TestTable_Text(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeText)

	r.Table([]string{"Property"}, [][]string{{"Remaining"}})
	out := buf.String()
	assert.Contains(t, out, "Remaining")
	assert.Contains(t, out, "┌")
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf, &buf, ModeMarkdown).Header(2, "Levels")
	assert.Equal(t, "## Levels\n\n", buf.String())

	buf.Reset()
	NewRenderer(&buf, &buf, ModeText).Header(1, "Levels")
	assert.Equal(t, "Levels\n", buf.String(), "no styling without a terminal")

	buf.Reset()
	NewRenderer(&buf, &buf, ModeJSON).Header(1, "Levels")
	assert.Empty(t, buf.String())
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"cards": 3}))
	assert.JSONEq(t, `{"cards": 3}`, buf.String())
}

func TestWarnf(t *testing.T) {
	var out, errOut bytes.Buffer
	NewRenderer(&out, &errOut, ModeText).Warnf("skipped %d", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "warning: skipped 2\n", errOut.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Title", FormatHeader(3, "Title"))
	assert.Equal(t, "- **Cards:** 3", FormatKeyValue("Cards", "3"))
}
