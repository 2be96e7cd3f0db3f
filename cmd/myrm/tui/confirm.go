package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Answer is the outcome of a confirmation prompt.
type Answer int

const (
	// Pending means no valid answer has been given yet.
	Pending Answer = iota
	// Yes means the user typed yes.
	Yes
	// No means the user typed no.
	No
	// Aborted means the user pressed esc or ctrl+c.
	Aborted
)

// ConfirmModel asks a yes/no question and keeps asking until it gets one of
// the two answers.
type ConfirmModel struct {
	question string
	input    textinput.Model
	answer   Answer
	rejected string
}

// NewConfirmModel creates a prompt for question.
func NewConfirmModel(question string) ConfirmModel {
	ti := textinput.New()
	ti.Placeholder = "yes/no"
	ti.Prompt = "> "
	ti.CharLimit = 8
	ti.Width = 10
	ti.Focus()

	return ConfirmModel{
		question: question,
		input:    ti,
	}
}

// Answer returns the answer given so far.
func (m ConfirmModel) Answer() Answer {
	return m.answer
}

// Init implements tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc":
			m.answer = Aborted
			return m, tea.Quit
		case "enter":
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m ConfirmModel) submit() (tea.Model, tea.Cmd) {
	value := strings.ToLower(strings.TrimSpace(m.input.Value()))
	switch value {
	case "yes", "y":
		m.answer = Yes
		return m, tea.Quit
	case "no", "n":
		m.answer = No
		return m, tea.Quit
	}

	m.rejected = value
	m.input.SetValue("")
	return m, nil
}

// View implements tea.Model.
func (m ConfirmModel) View() string {
	if m.answer != Pending {
		return ""
	}

	var b strings.Builder
	b.WriteString(questionStyle.Render(m.question))
	b.WriteString(" ")
	b.WriteString(hintStyle.Render("(yes/no)"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.rejected != "" {
		b.WriteString(errorTextStyle.Render(fmt.Sprintf("%q is not an answer, type yes or no", m.rejected)))
		b.WriteString("\n")
	}
	return b.String()
}

// Confirm runs a yes/no prompt on in/out and reports whether the user
// answered yes. Aborting the prompt counts as no.
func Confirm(question string, in io.Reader, out io.Writer) (bool, error) {
	p := tea.NewProgram(NewConfirmModel(question),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("running prompt: %w", err)
	}

	m, ok := final.(ConfirmModel)
	if !ok {
		return false, nil
	}
	return m.answer == Yes, nil
}
