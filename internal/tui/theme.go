package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme/palette helpers.
//
// The keypad must remain readable on both light and dark terminal backgrounds, so colors are
// adaptive and faint styling is only used on dark backgrounds.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted    lipgloss.TerminalColor = ac("240", "243")
	colorAccent   lipgloss.TerminalColor = ac("27", "62")
	colorAccentFg lipgloss.TerminalColor = ac("255", "235")
	colorBorder   lipgloss.TerminalColor = ac("250", "243")
	colorSelected lipgloss.TerminalColor = ac("232", "255")
	colorError    lipgloss.TerminalColor = ac("160", "203")
	colorFocusBg  lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
)

var (
	styleHeader  = lipgloss.NewStyle().Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
	styleFlash   = lipgloss.NewStyle().Foreground(colorAccent)
	styleCursor  = lipgloss.NewStyle().Background(colorAccent).Foreground(colorAccentFg)
	styleFocused = lipgloss.NewStyle().Background(colorFocusBg).Foreground(colorSelected).Bold(true)

	styleKeyCap = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccentFg).
			Background(colorAccent).
			Padding(0, 1)
	styleKeyColumn = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
	styleKeyColumnPending = styleKeyColumn.BorderForeground(colorSelected)
	styleLeaf             = lipgloss.NewStyle().Bold(true)
)

// applyColorProfile honors NO_COLOR and KEYKAPP_TUI_THEME before the program starts.
func applyColorProfile() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envTheme))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	}
}

const envTheme = "KEYKAPP_TUI_THEME"
