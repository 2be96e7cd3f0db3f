package output

import "github.com/charmbracelet/lipgloss"

// Color constants using ANSI 256-color palette.
const (
	// ColorPrimary is used for headers and indices (bright blue).
	ColorPrimary = lipgloss.Color("39")

	// ColorWarning is used for unknown entries (orange/yellow).
	ColorWarning = lipgloss.Color("214")

	// ColorDanger is used when the bucket is close to its cap (red).
	ColorDanger = lipgloss.Color("196")

	// ColorMuted is used for secondary text (gray).
	ColorMuted = lipgloss.Color("245")
)

var (
	// FooterBox is the style for the summary under the table.
	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)

	// LabelStyle is used for field labels (e.g., "Page:", "Used:").
	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// ValueStyle is used for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	// MutedStyle is used for less important text.
	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// DangerStyle is used for usage close to the cap.
	DangerStyle = lipgloss.NewStyle().
			Foreground(ColorDanger).
			Bold(true)

	// TableHeaderStyle is used for table column headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorPrimary).
				Padding(0, 1)

	// TableCellStyle is used for table data cells.
	TableCellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	// UnknownCellStyle is used for cells of unknown entries.
	UnknownCellStyle = TableCellStyle.
				Foreground(ColorWarning)
)
