package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jamesainslie/myrm/pkg/myrm/history"
	"github.com/jamesainslie/myrm/pkg/myrm/types"
)

// usageWarnRatio is the fill level from which usage is highlighted.
const usageWarnRatio = 0.9

// PrettyFormatter renders a bordered table followed by a summary box.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	if len(r.Rows) == 0 {
		w.WriteString(MutedStyle.Render("Bucket is empty"))
		w.WriteString("\n")
		return nil
	}

	w.WriteString(f.formatTable(r.Rows))
	w.WriteString("\n")
	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) formatTable(rows []history.Row) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(MutedStyle).
		Headers(Columns...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row >= 0 && row < len(rows) && rows[row].Status == history.StatusUnknown:
				return UnknownCellStyle
			default:
				return TableCellStyle
			}
		})

	for _, row := range rows {
		t.Row(cells(row)...)
	}
	return t.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("%s %s",
		LabelStyle.Render("Page:"), ValueStyle.Render(fmt.Sprintf("%d/%d", r.Page, r.Pages))))
	parts = append(parts, fmt.Sprintf("%s %s",
		LabelStyle.Render("Items:"), ValueStyle.Render(fmt.Sprintf("%d", r.Total))))

	if r.MaxSize > 0 {
		usage := fmt.Sprintf("%s of %s", types.FormatSize(r.Used), types.FormatSize(r.MaxSize))
		style := ValueStyle
		if float64(r.Used) >= usageWarnRatio*float64(r.MaxSize) {
			style = DangerStyle
		}
		parts = append(parts, fmt.Sprintf("%s %s", LabelStyle.Render("Used:"), style.Render(usage)))
	}

	if r.Page < r.Pages {
		parts = append(parts, MutedStyle.Render(fmt.Sprintf("Use --page %d for more", r.Page+1)))
	}

	return FooterBox.Render(strings.Join(parts, "  "))
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
