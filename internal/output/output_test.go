package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_StatusIcons(t *testing.T) {
	tests := []struct {
		name  string
		print func(w *Writer)
		want  string
	}{
		{"status", func(w *Writer) { w.Status("🔍", "Scanning repository") }, "🔍 Scanning repository\n"},
		{"status without icon", func(w *Writer) { w.Status("", "detail") }, "   detail\n"},
		{"success", func(w *Writer) { w.Successf("Ingested %d entries", 3) }, "✅ Ingested 3 entries\n"},
		{"warning", func(w *Writer) { w.Warning("2 invalid paths") }, "⚠️  2 invalid paths\n"},
		{"error", func(w *Writer) { w.Errorf("repository %s failed", "releases") }, "❌ repository releases failed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.print(New(buf))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriter_Code_IndentsLines(t *testing.T) {
	buf := &bytes.Buffer{}

	New(buf).Code("version: 1\nindex:")

	assert.Equal(t, "\n  version: 1\n  index:\n\n", buf.String())
}

func TestWriter_KeyValues_AlignsValues(t *testing.T) {
	buf := &bytes.Buffer{}

	New(buf).KeyValues(Field{"entries", 12}, Field{"groups", 4})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Index(lines[0], "12"), strings.Index(lines[1], "4"))
}

func TestWriter_Table_PrintsHeaderAndRows(t *testing.T) {
	buf := &bytes.Buffer{}

	// When: printing two hits
	New(buf).Table([]string{"SCORE", "PATH"}, [][]string{
		{"1.20", "org/a/a/1.0/a-1.0.jar"},
		{"0.80", "org/b/b/2.0/b-2.0.jar"},
	})

	// Then: three aligned lines
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "SCORE"))
	assert.Equal(t, strings.Index(lines[0], "PATH"), strings.Index(lines[1], "org/"))
}

func TestWriter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}

	require.NoError(t, New(buf).JSON(map[string]int{"pages": 3}))

	assert.Equal(t, "{\n  \"pages\": 3\n}\n", buf.String())
}

func TestWriter_Newline(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Newline()
	assert.Equal(t, "\n", buf.String())
}
