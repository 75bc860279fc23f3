package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/godbus/dbus/v5"

	"iwdtui/internal/log"
	"iwdtui/internal/notify"
	"iwdtui/iwd"
)

const (
	rpcTimeout     = 10 * time.Second
	connectTimeout = 60 * time.Second
)

type (
	stateMsg    iwd.DeviceState
	refreshMsg  struct{}
	networksMsg []iwd.Network
	errorMsg    struct{ err error }
	readyMsg    struct{}
	notice      string
)

// model is the top-level TUI state: status line, network list, and an
// optional passphrase modal on top.
type model struct {
	client   *iwd.Client
	sync     *iwd.Synchronizer
	agent    *iwd.Agent
	notifier iwd.Notifier

	list    list.Model
	state   iwd.DeviceState
	prompt  *promptModel
	spinner spinner.Model
	loading bool
	status  string

	width, height int
}

func newModel(client *iwd.Client, sync *iwd.Synchronizer) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(CurrentTheme.Primary)
	return &model{
		client:  client,
		sync:    sync,
		list:    newNetworkList(),
		spinner: s,
		loading: true,
		status:  "Connecting to iwd...",
	}
}

// programNotifier surfaces notifications in the footer of the running UI.
type programNotifier struct{ p *tea.Program }

func (n programNotifier) Notify(title, body string) {
	n.p.Send(notice(fmt.Sprintf("%s: %s", title, body)))
}

// Run wires the synchronizer's observers to a tea program, activates the
// agent, and blocks until the user quits.
func Run(client *iwd.Client, window time.Duration, notifier iwd.Notifier) error {
	sync := iwd.NewSynchronizer(client, window)
	m := newModel(client, sync)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.agent = iwd.NewAgent(client, sync, programPrompt{p: p})

	// Connect outcomes go to the footer and, when available, the desktop.
	fan := notify.Multi{programNotifier{p: p}}
	if notifier != nil {
		fan = append(fan, notifier)
	}
	m.notifier = fan

	// Refresh observers fire before the status observer so the list is
	// already loading when the status line repaints.
	sync.OnRefresh(func() { p.Send(refreshMsg{}) })
	sync.OnState(func(st iwd.DeviceState) { p.Send(stateMsg(st)) })
	sync.OnError(func(err error) { p.Send(errorMsg{err: err}) })

	logCh := make(chan tea.Msg, 16)
	log.SetOutput(logCh)
	go func() {
		for msg := range logCh {
			p.Send(msg)
		}
	}()

	_, err := p.Run()

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	m.agent.Deactivate(ctx)

	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.activateCmd())
}

func (m *model) activateCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		if err := m.agent.Activate(ctx); err != nil {
			return errorMsg{err: err}
		}
		if err := m.sync.Sync(ctx); err != nil {
			return errorMsg{err: err}
		}
		return readyMsg{}
	}
}

func (m *model) loadNetworksCmd() tea.Cmd {
	return func() tea.Msg {
		station, ok := m.sync.Device()
		if !ok {
			return networksMsg(nil)
		}
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		networks, err := m.client.OrderedNetworks(ctx, station)
		if err != nil {
			return errorMsg{err: err}
		}
		return networksMsg(networks)
	}
}

func (m *model) scanCmd() tea.Cmd {
	return func() tea.Msg {
		station, ok := m.sync.Device()
		if !ok {
			return errorMsg{err: iwd.ErrNotFound}
		}
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		if err := m.client.Scan(ctx, station); err != nil {
			return errorMsg{err: err}
		}
		return notice("Scanning...")
	}
}

func (m *model) disconnectCmd() tea.Cmd {
	return func() tea.Msg {
		station, ok := m.sync.Device()
		if !ok {
			return errorMsg{err: iwd.ErrNotFound}
		}
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		if err := m.client.Disconnect(ctx, station); err != nil {
			return errorMsg{err: err}
		}
		return notice("Disconnected")
	}
}

func (m *model) connectCmd(network dbus.ObjectPath, ssid string) tea.Cmd {
	return func() tea.Msg {
		op := m.client.Connect(network, m.notifier)
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := op.Wait(ctx); err != nil {
			return errorMsg{err: err}
		}
		// The notifier already posted the outcome to the footer.
		return nil
	}
}

func (m *model) forgetCmd(network dbus.ObjectPath, ssid string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		if err := m.client.Forget(ctx, network); err != nil {
			return errorMsg{err: err}
		}
		return notice(fmt.Sprintf("Forgot %s", ssid))
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
	case readyMsg:
		m.loading = false
		m.status = ""
	case stateMsg:
		m.state = iwd.DeviceState(msg)
	case refreshMsg:
		cmds = append(cmds, m.loadNetworksCmd())
	case networksMsg:
		m.loading = false
		cmds = append(cmds, m.list.SetItems(networkItems(msg)))
	case notice:
		m.loading = false
		m.status = string(msg)
	case errorMsg:
		m.loading = false
		m.status = lipgloss.NewStyle().Foreground(CurrentTheme.Error).Render(msg.err.Error())
		slog.Error("command failed", "err", msg.err)
	case log.Msg:
		// Keep the most recent log line visible in the footer.
		if m.status == "" {
			m.status = slogLine(msg)
		}
	case promptOpenMsg:
		m.prompt = newPromptModel(msg)
		return m, m.prompt.Init()
	case tea.KeyMsg:
		if m.prompt != nil {
			open, cmd := m.prompt.Update(msg)
			if !open {
				m.prompt = nil
			}
			return m, cmd
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "s":
			m.loading = true
			return m, m.scanCmd()
		case "d":
			m.loading = true
			return m, m.disconnectCmd()
		case "f":
			if item, ok := m.list.SelectedItem().(networkItem); ok {
				m.loading = true
				m.status = fmt.Sprintf("Forgetting %s...", item.Name)
				return m, m.forgetCmd(item.Path, item.Name)
			}
		case "enter":
			if item, ok := m.list.SelectedItem().(networkItem); ok {
				m.loading = true
				m.status = fmt.Sprintf("Connecting to %s...", item.Name)
				return m, m.connectCmd(item.Path, item.Name)
			}
		}
	}

	if m.prompt != nil {
		open, cmd := m.prompt.Update(msg)
		if !open {
			m.prompt = nil
		}
		cmds = append(cmds, cmd)
	} else {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	}

	var spinnerCmd tea.Cmd
	m.spinner, spinnerCmd = m.spinner.Update(msg)
	cmds = append(cmds, spinnerCmd)
	return m, tea.Batch(cmds...)
}

func (m *model) View() string {
	var s strings.Builder
	s.WriteString(statusLine(m.width, m.state, ""))
	s.WriteString("\n")

	if m.prompt != nil {
		s.WriteString(lipgloss.Place(m.width, m.height-3, lipgloss.Center, lipgloss.Center, m.prompt.View()))
	} else {
		s.WriteString(m.list.View())
	}

	if m.loading {
		s.WriteString(fmt.Sprintf("\n%s %s", m.spinner.View(),
			lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Render(m.status)))
	} else if m.status != "" {
		s.WriteString("\n" + m.status)
	}
	return s.String()
}

func slogLine(msg log.Msg) string {
	rec := slog.Record(msg)
	return lipgloss.NewStyle().Foreground(CurrentTheme.Subtle).Render(rec.Message)
}
