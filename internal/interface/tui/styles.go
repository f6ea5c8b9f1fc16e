package tui

import "github.com/charmbracelet/lipgloss"

// Global styles used across views
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	selectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Foreground(lipgloss.Color("170")).
				Bold(true)

	convertedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("120")) // Light green

	busyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("yellow"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246")) // Lighter gray that works better in dark terminals

	summaryHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("cyan"))

	// Status line styles, one per severity
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("green")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)
