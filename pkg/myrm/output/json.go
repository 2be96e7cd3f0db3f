package output

import (
	"bytes"
	"encoding/json"
	"time"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Entries []jsonEntry `json:"entries"`
	Meta    jsonMeta    `json:"meta"`
}

// jsonEntry represents one history row.
type jsonEntry struct {
	Index     int       `json:"index" yaml:"index"`
	Status    string    `json:"status" yaml:"status"`
	Name      string    `json:"name" yaml:"name"`
	Location  string    `json:"location" yaml:"location"`
	TrashedAt time.Time `json:"trashed_at" yaml:"trashed_at"`
}

// jsonMeta represents page and bucket metadata.
type jsonMeta struct {
	Page      int    `json:"page" yaml:"page"`
	Pages     int    `json:"pages" yaml:"pages"`
	Total     int    `json:"total" yaml:"total"`
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	UsedBytes int64  `json:"used_bytes" yaml:"used_bytes"`
	MaxBytes  int64  `json:"max_bytes" yaml:"max_bytes"`
}

func buildEntries(r *Result) []jsonEntry {
	entries := make([]jsonEntry, len(r.Rows))
	for i, row := range r.Rows {
		entries[i] = jsonEntry{
			Index:     row.Index,
			Status:    string(row.Status),
			Name:      row.Name,
			Location:  row.Location,
			TrashedAt: row.TrashedAt,
		}
	}
	return entries
}

func buildMeta(r *Result) jsonMeta {
	return jsonMeta{
		Page:      r.Page,
		Pages:     r.Pages,
		Total:     r.Total,
		Bucket:    r.Bucket,
		UsedBytes: r.Used,
		MaxBytes:  r.MaxSize,
	}
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(jsonOutput{
		Entries: buildEntries(r),
		Meta:    buildMeta(r),
	})
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats output as newline-delimited JSON (one object per line).
// This format is suitable for streaming processing with tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, entry := range buildEntries(r) {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
