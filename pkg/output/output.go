// Package output renders CLI results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Supported formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// style is the color of one kind of status line.
type style []color.Attribute

var (
	successStyle = style{color.FgGreen, color.Bold}
	errorStyle   = style{color.FgRed, color.Bold}
	infoStyle    = style{color.FgCyan}
	warnStyle    = style{color.FgYellow}
)

func (s style) sprintf(colored bool, format string, a ...interface{}) string {
	if !colored {
		return fmt.Sprintf(format, a...)
	}
	c := color.New(s...)
	c.EnableColor()
	return c.Sprintf(format, a...)
}

func (s style) fprintf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintln(w, s.sprintf(colorEnabled(w), format, a...))
}

// colorEnabled reports whether w is the process terminal. color.NoColor
// covers NO_COLOR and a redirected stdout.
func colorEnabled(w io.Writer) bool {
	if color.NoColor {
		return false
	}
	return w == os.Stdout || w == os.Stderr
}

func Success(w io.Writer, format string, a ...interface{}) {
	successStyle.fprintf(w, "✓ "+format, a...)
}

func Error(w io.Writer, format string, a ...interface{}) {
	errorStyle.fprintf(w, "✗ "+format, a...)
}

func Info(w io.Writer, format string, a ...interface{}) {
	infoStyle.fprintf(w, format, a...)
}

func Warn(w io.Writer, format string, a ...interface{}) {
	warnStyle.fprintf(w, "⚠ "+format, a...)
}

// Printer writes values in the selected format.
type Printer struct {
	w      io.Writer
	format string
}

// NewPrinter validates format and returns a Printer writing to w.
func NewPrinter(w io.Writer, format string) (*Printer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatTable
	}
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
	return &Printer{w: w, format: format}, nil
}

// Format returns the selected format.
func (p *Printer) Format() string {
	return p.format
}

// Print renders v as JSON or YAML, or calls table for the table format.
func (p *Printer) Print(v interface{}, table func() *Table) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(toPlain(v)); err != nil {
			return err
		}
		return enc.Close()
	default:
		if table == nil {
			_, err := fmt.Fprintf(p.w, "%v\n", v)
			return err
		}
		table().Render(p.w)
		return nil
	}
}

// toPlain round-trips v through JSON so YAML output uses the same field
// names as the JSON output.
func toPlain(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var plain interface{}
	if err := json.Unmarshal(data, &plain); err != nil {
		return v
	}
	return plain
}

type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers []string) *Table {
	return &Table{
		headers: headers,
		rows:    [][]string{},
	}
}

func (t *Table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

func (t *Table) Render(w io.Writer) {
	// Calculate column widths
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}

	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(cells []string) {
		var b strings.Builder
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	line(t.headers)
	sep := make([]string, len(widths))
	for i := range widths {
		sep[i] = strings.Repeat("-", widths[i])
	}
	line(sep)
	for _, row := range t.rows {
		line(row)
	}
}
