package cmd

import "github.com/charmbracelet/lipgloss"

// Common styles used across commands
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#BD93F9"))
	versionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")) // Blue
	faintStyle   = lipgloss.NewStyle().Faint(true)
)
