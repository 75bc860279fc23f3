package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"iwdtui/iwd"
)

// promptReply is the user's answer to a passphrase request.
type promptReply struct {
	secret   string
	canceled bool
}

// promptOpenMsg asks the model to show the passphrase modal.
type promptOpenMsg struct {
	ssid  string
	reply chan<- promptReply
}

// programPrompt implements iwd.SecretPrompt by bouncing the request through
// the running tea program. The daemon's callback goroutine blocks here until
// the user answers the modal.
type programPrompt struct {
	p *tea.Program
}

func (pp programPrompt) RequestPassphrase(ctx context.Context, ssid string) (string, error) {
	reply := make(chan promptReply, 1)
	pp.p.Send(promptOpenMsg{ssid: ssid, reply: reply})
	select {
	case r := <-reply:
		if r.canceled {
			return "", iwd.ErrPromptCanceled
		}
		return r.secret, nil
	case <-ctx.Done():
		return "", iwd.ErrPromptCanceled
	}
}

// promptModel is the passphrase entry modal.
type promptModel struct {
	ssid  string
	input textinput.Model
	reply chan<- promptReply
}

func (m *promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func newPromptModel(msg promptOpenMsg) *promptModel {
	in := textinput.New()
	in.EchoMode = textinput.EchoPassword
	in.Placeholder = "passphrase"
	in.Focus()
	return &promptModel{ssid: msg.ssid, input: in, reply: msg.reply}
}

// Update returns false once the prompt has answered and should close.
func (m *promptModel) Update(msg tea.Msg) (bool, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.reply <- promptReply{secret: m.input.Value()}
			return false, nil
		case "esc", "ctrl+c":
			m.reply <- promptReply{canceled: true}
			return false, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return true, cmd
}

func (m *promptModel) View() string {
	title := fmt.Sprintf("Passphrase for %s", m.ssid)
	body := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Primary).Render(title),
		"",
		m.input.View(),
		"",
		lipgloss.NewStyle().Foreground(CurrentTheme.Subtle).Render("enter to submit, esc to cancel"),
	)
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(CurrentTheme.Border).
		Padding(1, 2).
		Render(body)
}
