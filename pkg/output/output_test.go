package output

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type item struct {
	Name         string  `json:"name"`
	RemainingQty float64 `json:"sisa"`
}

func TestMessages(t *testing.T) {
	var buf bytes.Buffer
	Success(&buf, "saved %d", 3)
	Warn(&buf, "careful")
	Info(&buf, "plain")
	Error(&buf, "failed: %s", "boom")

	assert.Equal(t, "✓ saved 3\n⚠ careful\nplain\n✗ failed: boom\n", buf.String())
}

func TestStyleColors(t *testing.T) {
	assert.True(t, strings.HasPrefix(successStyle.sprintf(true, "✓ %s", "ok"), "\x1b[32;1m✓ ok\x1b["))
	assert.Equal(t, "\x1b[36mhello\x1b[0m", infoStyle.sprintf(true, "hello"))
	assert.Equal(t, "hello", infoStyle.sprintf(false, "hello"))
}

func TestColorOnlyForProcessOutput(t *testing.T) {
	assert.False(t, colorEnabled(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, colorEnabled(f))
}

func TestNewPrinter(t *testing.T) {
	p, err := NewPrinter(io.Discard, "")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, p.Format())

	p, err = NewPrinter(io.Discard, " JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, p.Format())

	_, err = NewPrinter(io.Discard, "xml")
	assert.Error(t, err)
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, FormatJSON)
	require.NoError(t, err)

	require.NoError(t, p.Print([]item{{Name: "Gula", RemainingQty: 2}}, nil))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Gula", got[0]["name"])
	assert.Equal(t, 2.0, got[0]["sisa"])
}

func TestPrintYAMLUsesJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, FormatYAML)
	require.NoError(t, err)

	require.NoError(t, p.Print(item{Name: "Beras", RemainingQty: 1.5}, nil))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Beras", got["name"])
	assert.Equal(t, 1.5, got["sisa"])
	assert.NotContains(t, buf.String(), "remainingqty")
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, FormatTable)
	require.NoError(t, err)

	err = p.Print(nil, func() *Table {
		table := NewTable([]string{"NAME", "SISA"})
		table.AddRow([]string{"Minyak Goreng", "3"})
		table.AddRow([]string{"Gula", "12"})
		return table
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "NAME           SISA", lines[0])
	assert.Equal(t, "-------------  ----", lines[1])
	assert.Equal(t, "Minyak Goreng  3", lines[2])
	assert.Equal(t, "Gula           12", lines[3])
}
