package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"iwdtui/iwd"
)

// statusLine renders the one-line device summary at the top of the screen.
func statusLine(width int, st iwd.DeviceState, note string) string {
	name := st.Name
	if name == "" {
		name = "(no device)"
	}

	var stateStyle lipgloss.Style
	switch st.State {
	case iwd.StateConnected:
		stateStyle = lipgloss.NewStyle().Foreground(CurrentTheme.Success)
	case iwd.StateConnecting, iwd.StateRoaming:
		stateStyle = lipgloss.NewStyle().Foreground(CurrentTheme.Primary)
	default:
		stateStyle = lipgloss.NewStyle().Foreground(CurrentTheme.Subtle)
	}

	var parts []string
	parts = append(parts, lipgloss.NewStyle().Bold(true).Render(name))
	state := st.State.String()
	if st.State == iwd.StateConnected && st.SSID != "" {
		state = fmt.Sprintf("connected to %s", st.SSID)
	}
	parts = append(parts, stateStyle.Render(state))
	if st.Scanning {
		parts = append(parts, lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Render("scanning"))
	}
	if note != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(CurrentTheme.Subtle).Render(note))
	}

	line := strings.Join(parts, "  ")
	return lipgloss.NewStyle().
		Width(width).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(CurrentTheme.Border).
		Render(line)
}
