package tui

import "github.com/charmbracelet/lipgloss"

// Color palette shared by every view.
const (
	ColorHeader  = lipgloss.Color("39")
	ColorLabel   = lipgloss.Color("245")
	ColorValue   = lipgloss.Color("255")
	ColorOK      = lipgloss.Color("42")
	ColorError   = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("240")
	ColorBorder  = lipgloss.Color("63")
	ColorWarning = lipgloss.Color("214")
)

// Shared styles.
//
//nolint:gochecknoglobals // lipgloss styles are immutable values reused across renders.
var (
	HeaderStyle = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	LabelStyle  = lipgloss.NewStyle().Foreground(ColorLabel)
	ValueStyle  = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	OKStyle     = lipgloss.NewStyle().Foreground(ColorOK).Bold(true)
	ErrorStyle  = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
	BoxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)
)

// Status icons.
const (
	IconOK        = "✓"
	IconFailed    = "✗"
	IconCancelled = "⊘"
)

// Key bindings.
const (
	keyQuit  = "q"
	keyCtrlC = "ctrl+c"
	keyEsc   = "esc"
)
