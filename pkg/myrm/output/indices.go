package output

import (
	"bytes"
	"strconv"

	"github.com/jamesainslie/myrm/pkg/myrm/history"
)

// IndicesFormatter writes the index of every restorable entry, one per line,
// suitable for `myrm restore $(myrm show -o indices)`. Unknown entries are
// skipped because they cannot be restored.
type IndicesFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *IndicesFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, row := range r.Rows {
		if row.Status == history.StatusUnknown {
			continue
		}
		w.WriteString(strconv.Itoa(row.Index))
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("indices", func() Formatter {
		return &IndicesFormatter{}
	})
}

// Ensure IndicesFormatter implements Formatter.
var _ Formatter = (*IndicesFormatter)(nil)
