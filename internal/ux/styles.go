// Package ux provides the console styling and blocking prompts for the
// charforge interactive CLI.
package ux

import (
	"github.com/charmbracelet/lipgloss"
)

// Semantic colors
var (
	Success = lipgloss.Color("#8BC34A") // Lime Green
	Warning = lipgloss.Color("#FFC107") // Yellow
	Danger  = lipgloss.Color("#e53935") // Red
	Info    = lipgloss.Color("#2196F3") // Blue
	Accent  = lipgloss.Color("#E91E63") // Pink, used for questions
	Field   = lipgloss.Color("#FFEB3B") // field value display
	Muted   = lipgloss.Color("#9E9E9E")
)

var (
	TitleStyle    = lipgloss.NewStyle().Foreground(Info).Bold(true)
	SuccessStyle  = lipgloss.NewStyle().Foreground(Success)
	WarnStyle     = lipgloss.NewStyle().Foreground(Warning)
	ErrorStyle    = lipgloss.NewStyle().Foreground(Danger).Bold(true)
	QuestionStyle = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	HintStyle     = lipgloss.NewStyle().Italic(true).Foreground(Muted)
	LabelStyle    = lipgloss.NewStyle().Foreground(Field).Bold(true)
	ValueStyle    = lipgloss.NewStyle().Foreground(Field).Italic(true)
)
