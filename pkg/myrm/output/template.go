package output

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/myrm/pkg/myrm/history"
	"github.com/jamesainslie/myrm/pkg/myrm/types"
)

// defaultTemplate prints index, name, and age of every row.
const defaultTemplate = `{{range .Rows}}{{.Index}}	{{.Name}}	{{ago .TrashedAt}}
{{end}}`

// TemplateFormatter executes a user-supplied text/template against the
// Result. Rows are reachable as .Rows, usage as .Used and .MaxSize.
//
// Extra functions:
//
//	date  .TrashedAt "2006-01-02"   custom time layout
//	stamp .TrashedAt                the table's timestamp format
//	ago   .TrashedAt                relative time, e.g. "3 days ago"
//	bytes .Used                     IEC size, e.g. "1.5 MiB"
//	label .Status                   "Known" or "Unknown"
type TemplateFormatter struct {
	mu     sync.Mutex
	text   string
	parsed *template.Template
}

// NewTemplateFormatter returns a formatter for text. Parsing is deferred
// until the first Format call.
func NewTemplateFormatter(text string) *TemplateFormatter {
	return &TemplateFormatter{text: text}
}

// SetTemplate replaces the template text.
func (f *TemplateFormatter) SetTemplate(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
	f.parsed = nil
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time, layout string) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format(layout)
	},
	"stamp": types.FormatTimestamp,
	"ago":   humanize.Time,
	"bytes": types.FormatSize,
	"label": func(s history.Status) string { return s.Label() },
}

// Format writes the formatted output to the buffer.
func (f *TemplateFormatter) Format(w *bytes.Buffer, r *Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.parsed == nil {
		parsed, err := template.New("show").Funcs(templateFuncs).Parse(f.text)
		if err != nil {
			return fmt.Errorf("parsing template: %w", err)
		}
		f.parsed = parsed
	}

	if err := f.parsed.Execute(w, r); err != nil {
		return fmt.Errorf("executing template: %w", err)
	}
	return nil
}

func init() {
	Register("template", func() Formatter {
		return NewTemplateFormatter(defaultTemplate)
	})
}

// Ensure TemplateFormatter implements Formatter.
var _ Formatter = (*TemplateFormatter)(nil)
