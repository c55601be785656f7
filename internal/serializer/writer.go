// Package serializer writes command results as JSON, YAML or tables.
package serializer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Format represents the output format type
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// IsUnknown reports whether f is not a supported format
func (f Format) IsUnknown() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatTable:
		return false
	default:
		return true
	}
}

// SupportedFormats returns every supported output format
func SupportedFormats() []string {
	return []string{
		string(FormatJSON),
		string(FormatYAML),
		string(FormatTable),
	}
}

// ParseFormat parses a format name
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f.IsUnknown() {
		return "", fmt.Errorf("unknown format %q, expected one of %s", s, strings.Join(SupportedFormats(), ", "))
	}
	return f, nil
}

// Writer serializes values in one format. Close must be called when the
// writer was opened on a file.
type Writer struct {
	format Format
	output io.Writer
	closer io.Closer
}

// NewWriter creates a writer. A nil output writes to stdout.
func NewWriter(format Format, output io.Writer) (*Writer, error) {
	if format.IsUnknown() {
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if output == nil {
		output = os.Stdout
	}
	return &Writer{format: format, output: output}, nil
}

// NewFileWriter creates a writer on path, or on stdout when path is empty
func NewFileWriter(format Format, path string) (*Writer, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return NewWriter(format, os.Stdout)
	}

	if format.IsUnknown() {
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	file, err := os.Create(trimmed)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	return &Writer{format: format, output: file, closer: file}, nil
}

// Close releases the output file, if any. Safe to call more than once.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}

// Serialize writes v in the configured format. Output is buffered so a
// failure never leaves a partial document behind.
func (w *Writer) Serialize(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	var err error
	switch w.format {
	case FormatJSON:
		err = writeJSON(&buf, v)
	case FormatYAML:
		err = writeYAML(&buf, v)
	case FormatTable:
		err = writeTable(&buf, v)
	default:
		err = fmt.Errorf("unsupported format: %s", w.format)
	}
	if err != nil {
		return err
	}

	if _, err := w.output.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("serialize to JSON: %w", err)
	}
	return nil
}

// writeYAML encodes v through its JSON form so both formats share field
// names
func writeYAML(out io.Writer, v any) error {
	generic, err := toGeneric(v)
	if err != nil {
		return err
	}

	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	if err := encoder.Encode(generic); err != nil {
		return fmt.Errorf("serialize to YAML: %w", err)
	}
	return encoder.Close()
}

func writeTable(out io.Writer, v any) error {
	if tables, ok := tablesFor(v); ok {
		return renderTables(out, tables)
	}

	generic, err := toGeneric(v)
	if err != nil {
		return err
	}

	flat := make(map[string]any)
	flatten(flat, generic, "")
	if len(flat) == 0 {
		fmt.Fprintln(out, "<empty>")
		return nil
	}

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := Table{Header: []string{"FIELD", "VALUE"}}
	for _, k := range keys {
		fields.Rows = append(fields.Rows, []string{k, fmt.Sprint(flat[k])})
	}
	return renderTables(out, []Table{fields})
}

func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serialize to JSON: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return generic, nil
}

// flatten turns nested maps and slices into dotted keys
func flatten(out map[string]any, v any, prefix string) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}

	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			flatten(out, item, join(k))
		}
	case []any:
		for i, item := range val {
			flatten(out, item, join(fmt.Sprint(i)))
		}
	case nil:
		if prefix != "" {
			out[prefix] = ""
		}
	default:
		if prefix == "" {
			prefix = "value"
		}
		out[prefix] = val
	}
}

// Table is one titled block of tabular output
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

func renderTables(out io.Writer, tables []Table) error {
	for i, t := range tables {
		if i > 0 {
			if _, err := fmt.Fprintln(out); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(out, newTableWriter(t).Render()); err != nil {
			return err
		}
	}
	return nil
}

func newTableWriter(t Table) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.SeparateColumns = false
	if t.Title != "" {
		tw.SetTitle(t.Title)
	}

	header := make(table.Row, 0, len(t.Header))
	for _, h := range t.Header {
		header = append(header, h)
	}
	tw.AppendHeader(header)

	if len(t.Rows) == 0 {
		tw.AppendRow(table.Row{"<none>"})
	}
	for _, r := range t.Rows {
		row := make(table.Row, 0, len(r))
		for _, cell := range r {
			row = append(row, cell)
		}
		tw.AppendRow(row)
	}
	return tw
}
