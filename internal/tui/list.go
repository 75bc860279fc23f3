package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"iwdtui/iwd"
)

// networkItem wraps one ordered-networks entry for the list component.
type networkItem struct {
	iwd.Network
}

func (i networkItem) FilterValue() string { return i.Name }

func (i networkItem) marker() string {
	switch {
	case i.Connected:
		return "*"
	case i.Known:
		return "+"
	}
	return " "
}

func (i networkItem) security() string {
	switch i.Type {
	case "open":
		return "    "
	case "8021x":
		return "802x"
	default:
		return "psk "
	}
}

// networkDelegate renders list rows: marker, SSID, security, colored signal.
type networkDelegate struct{}

func (d networkDelegate) Height() int                             { return 1 }
func (d networkDelegate) Spacing() int                            { return 0 }
func (d networkDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d networkDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(networkItem)
	if !ok {
		return
	}

	percent := iwd.SignalPercent(i.Strength)
	signal := lipgloss.NewStyle().
		Foreground(SignalColor(percent)).
		Render(fmt.Sprintf("%3d%%", percent))

	title := i.Name
	if i.Connected {
		title = lipgloss.NewStyle().Foreground(CurrentTheme.Success).Render(title)
	}
	line := fmt.Sprintf("%s %-32s %s %s", i.marker(), title, i.security(), signal)

	if index == m.Index() {
		line = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(CurrentTheme.Primary).
			Render(line)
	} else {
		line = lipgloss.NewStyle().PaddingLeft(1).Render(line)
	}
	fmt.Fprint(w, line)
}

func newNetworkList() list.Model {
	l := list.New(nil, networkDelegate{}, 0, 0)
	l.Title = "Networks"
	l.SetShowStatusBar(false)
	l.SetShowHelp(true)
	l.Styles.Title = lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true)
	return l
}

func networkItems(networks []iwd.Network) []list.Item {
	items := make([]list.Item, len(networks))
	for i, n := range networks {
		items[i] = networkItem{n}
	}
	return items
}
