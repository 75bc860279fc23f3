package tui

import (
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Theme contains the colors for the application.
type Theme struct {
	Primary lipgloss.TerminalColor
	Subtle  lipgloss.TerminalColor
	Success lipgloss.TerminalColor
	Error   lipgloss.TerminalColor
	Normal  lipgloss.TerminalColor
	Border  lipgloss.TerminalColor

	SignalHigh string
	SignalLow  string
}

// CurrentTheme is the active theme for the application.
var CurrentTheme = NewDefaultTheme()

// NewDefaultTheme creates a new default theme.
func NewDefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.AdaptiveColor{Light: "#2459B0", Dark: "#6CA6F2"},
		Subtle:  lipgloss.AdaptiveColor{Light: "#BDBDBD", Dark: "#616161"},
		Success: lipgloss.AdaptiveColor{Light: "#388E3C", Dark: "#81C784"},
		Error:   lipgloss.AdaptiveColor{Light: "#D32F2F", Dark: "#E57373"},
		Normal:  lipgloss.AdaptiveColor{Light: "#212121", Dark: "#FFFFFF"},
		Border:  lipgloss.AdaptiveColor{Light: "#BDBDBD", Dark: "#616161"},

		SignalHigh: "#00C800",
		SignalLow:  "#C05000",
	}
}

// SignalColor blends between the theme's low and high signal colors by
// strength percent.
func SignalColor(percent int) lipgloss.Color {
	start, _ := colorful.Hex(CurrentTheme.SignalLow)
	end, _ := colorful.Hex(CurrentTheme.SignalHigh)
	p := float64(percent) / 100.0
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	return lipgloss.Color(start.BlendRgb(end, p).Hex())
}
