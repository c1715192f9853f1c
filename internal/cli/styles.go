package cli

import "github.com/charmbracelet/lipgloss"

// Palette for text output. lipgloss drops colors when the writer is not a
// terminal, so text output stays plain in pipes and tests.
const (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6B7280")
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")
	colorPath    = lipgloss.Color("#3B82F6")
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	MutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	SuccessStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	ErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	WarningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	PathStyle    = lipgloss.NewStyle().Foreground(colorPath)
)

const (
	checkMark = "✓"
	crossMark = "✗"
	arrowMark = "→"
)
