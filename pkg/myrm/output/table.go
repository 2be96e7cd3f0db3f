package output

import (
	"bytes"
	"encoding/csv"
	"strings"
)

// tsvEscaper keeps fields on one line and in one column.
var tsvEscaper = strings.NewReplacer("\t", " ", "\n", " ")

// TSVFormatter formats output as tab-separated values.
// It produces a header row followed by data rows.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(strings.Join(Columns, "\t"))
	w.WriteByte('\n')

	for _, row := range r.Rows {
		c := cells(row)
		for i := range c {
			c[i] = tsvEscaper.Replace(c[i])
		}
		w.WriteString(strings.Join(c, "\t"))
		w.WriteByte('\n')
	}

	return nil
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

// Ensure TSVFormatter implements Formatter.
var _ Formatter = (*TSVFormatter)(nil)

// CSVFormatter formats output as comma-separated values with proper quoting.
// It uses encoding/csv for RFC 4180 compliant output.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Columns); err != nil {
		return err
	}

	for _, row := range r.Rows {
		if err := writer.Write(cells(row)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

// Ensure CSVFormatter implements Formatter.
var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter formats output as a GitHub-flavored Markdown table.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString("| " + strings.Join(Columns, " | ") + " |\n")
	w.WriteString("|" + strings.Repeat("---|", len(Columns)) + "\n")

	for _, row := range r.Rows {
		c := cells(row)
		for i := range c {
			c[i] = escapeMarkdownPipe(c[i])
		}
		w.WriteString("| " + strings.Join(c, " | ") + " |\n")
	}

	return nil
}

// escapeMarkdownPipe escapes pipe characters in a string for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)
