package tui

import "github.com/charmbracelet/lipgloss"

var (
	AccentColor = lipgloss.Color("#7D56F4")
	MutedColor  = lipgloss.Color("#6C6C6C")
	ErrorColor  = lipgloss.Color("#FF5F87")
	TextColor   = lipgloss.Color("#E4E4E4")

	TitleStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(MutedColor).
			Padding(0, 1)

	FocusedInputStyle = InputStyle.BorderForeground(AccentColor)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	ItemStyle    = lipgloss.NewStyle().Foreground(TextColor)
	IDStyle      = lipgloss.NewStyle().Foreground(MutedColor)
	TimeStyle    = lipgloss.NewStyle().Foreground(MutedColor).Italic(true)
	PendingStyle = lipgloss.NewStyle().Foreground(MutedColor)
	FailedStyle  = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	StatusStyle  = lipgloss.NewStyle().Foreground(TextColor).Padding(0, 1)
	HelpStyle    = lipgloss.NewStyle().Foreground(MutedColor)
)
