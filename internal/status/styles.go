package status

import "charm.land/lipgloss/v2"

// Catppuccin Mocha accents.
var (
	colorPrimary = lipgloss.Color("#cba6f7")
	colorText    = lipgloss.Color("#cdd6f4")
	colorMuted   = lipgloss.Color("#6c7086")
	colorSuccess = lipgloss.Color("#a6e3a1")
	colorWarning = lipgloss.Color("#f9e2af")
	colorError   = lipgloss.Color("#f38ba8")
	colorInfo    = lipgloss.Color("#89dceb")
)

var (
	styleBrand     = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	styleSeparator = lipgloss.NewStyle().Foreground(colorMuted)
	styleText      = lipgloss.NewStyle().Foreground(colorText)
	styleMuted     = lipgloss.NewStyle().Foreground(colorMuted)
	styleRunning   = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleIdle      = lipgloss.NewStyle().Foreground(colorMuted).Bold(true)

	eventStyles = map[string]lipgloss.Style{
		"info":    lipgloss.NewStyle().Foreground(colorInfo),
		"success": lipgloss.NewStyle().Foreground(colorSuccess),
		"warning": lipgloss.NewStyle().Foreground(colorWarning),
		"error":   lipgloss.NewStyle().Foreground(colorError).Bold(true),
	}
)
