// Package tui provides the interactive terminal prompts of the myrm CLI.
// It uses Charmbracelet's Bubble Tea, Lip Gloss, and Bubbles.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette for the prompts.
var (
	primaryColor = lipgloss.Color("#7D56F4")
	dangerColor  = lipgloss.Color("#DC3545")
	mutedColor   = lipgloss.Color("#666666")
)

// Text styles.
var (
	// questionStyle renders the question line.
	questionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// hintStyle renders the accepted answers.
	hintStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// errorTextStyle renders a rejected answer.
	errorTextStyle = lipgloss.NewStyle().
			Foreground(dangerColor)
)
