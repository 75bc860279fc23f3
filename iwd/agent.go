package iwd

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

// pingTimeout bounds the liveness check during activation.
const pingTimeout = 5 * time.Second

// SecretPrompt supplies credentials when the daemon asks for them during a
// connection handshake. Implementations return ErrPromptCanceled when the
// user aborts.
type SecretPrompt interface {
	RequestPassphrase(ctx context.Context, ssid string) (string, error)
}

// PromptFunc adapts a function to the SecretPrompt interface.
type PromptFunc func(ctx context.Context, ssid string) (string, error)

func (f PromptFunc) RequestPassphrase(ctx context.Context, ssid string) (string, error) {
	return f(ctx, ssid)
}

type agentState int

const (
	agentInactive agentState = iota
	agentActivating
	agentActive
)

// Agent registers this process as the daemon's credential provider and
// feeds change signals into the synchronizer. Activation either completes
// every registration step or unwinds the ones that succeeded before
// surfacing the failure.
type Agent struct {
	bus     Bus
	client  *Client
	sync    *Synchronizer
	prompt  SecretPrompt
	objPath dbus.ObjectPath

	mu      sync.Mutex
	state   agentState
	matches [][]dbus.MatchOption
	cancel  context.CancelFunc
}

// NewAgent builds an agent around client's bus connection. The agent's
// object path is unique per instance so stale registrations from a previous
// run never collide.
func NewAgent(client *Client, sync *Synchronizer, prompt SecretPrompt) *Agent {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return &Agent{
		bus:     client.bus,
		client:  client,
		sync:    sync,
		prompt:  prompt,
		objPath: dbus.ObjectPath("/iwdtui/agent/" + suffix),
	}
}

// Activate registers the agent with the daemon and starts the signal loop.
// Calling it while already active is a no-op.
func (a *Agent) Activate(ctx context.Context) error {
	a.mu.Lock()
	if a.state != agentInactive {
		a.mu.Unlock()
		return nil
	}
	a.state = agentActivating
	a.mu.Unlock()

	if err := a.activate(ctx); err != nil {
		a.mu.Lock()
		a.state = agentInactive
		a.mu.Unlock()
		return err
	}

	a.mu.Lock()
	a.state = agentActive
	a.mu.Unlock()
	return nil
}

func (a *Agent) activate(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.client.Ping(pingCtx)
	cancel()
	if err != nil {
		return err
	}

	if err := a.bus.Export(agentObject{agent: a}, a.objPath, ifaceAgent); err != nil {
		return fmt.Errorf("exporting agent: %w", err)
	}

	manager := a.bus.Object(agentManagerPath)
	if call := manager.Call(ctx, ifaceAgentManager+".RegisterAgent", a.objPath); call.Err != nil {
		_ = a.bus.Export(nil, a.objPath, ifaceAgent)
		return fmt.Errorf("registering agent: %w", call.Err)
	}

	var added [][]dbus.MatchOption
	for _, opts := range signalMatches() {
		if err := a.bus.AddMatchSignal(opts...); err != nil {
			for _, prev := range added {
				_ = a.bus.RemoveMatchSignal(prev...)
			}
			_ = manager.Call(ctx, ifaceAgentManager+".UnregisterAgent", a.objPath)
			_ = a.bus.Export(nil, a.objPath, ifaceAgent)
			return fmt.Errorf("subscribing to change signals: %w", err)
		}
		added = append(added, opts)
	}

	a.bus.Signal(a.sync.Signals())

	runCtx, cancelRun := context.WithCancel(context.Background())
	a.mu.Lock()
	a.matches = added
	a.cancel = cancelRun
	a.mu.Unlock()
	go a.sync.Run(runCtx)
	return nil
}

// Deactivate tears down whatever is registered: the signal loop and its
// pending debounce timer, the match rules, and the exported agent object.
// UnregisterAgent is issued even when never activated; the daemon tolerates
// unknown agents and this keeps teardown unconditional.
func (a *Agent) Deactivate(ctx context.Context) {
	a.mu.Lock()
	matches := a.matches
	cancel := a.cancel
	active := a.state == agentActive
	a.matches = nil
	a.cancel = nil
	a.state = agentInactive
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, opts := range matches {
		_ = a.bus.RemoveMatchSignal(opts...)
	}
	if active {
		a.bus.RemoveSignal(a.sync.Signals())
		_ = a.bus.Export(nil, a.objPath, ifaceAgent)
	}
	_ = a.bus.Object(agentManagerPath).Call(ctx, ifaceAgentManager+".UnregisterAgent", a.objPath)
}

// requestPassphrase answers the daemon's credential callback. The daemon
// blocks on the reply, so every path out must produce either a secret or the
// structured Canceled error.
func (a *Agent) requestPassphrase(network dbus.ObjectPath) (string, *dbus.Error) {
	props, ok := a.client.Cache().InterfaceProperties(network, ifaceNetwork)
	if !ok {
		return "", dbus.NewError(errNameCanceled, []interface{}{
			fmt.Sprintf("unknown network %s", network),
		})
	}
	ssid, _ := props.String("Name")

	if a.prompt == nil {
		return "", dbus.NewError(errNameCanceled, []interface{}{"no prompt available"})
	}
	secret, err := a.prompt.RequestPassphrase(context.Background(), ssid)
	if err != nil {
		return "", dbus.NewError(errNameCanceled, []interface{}{err.Error()})
	}
	return secret, nil
}

// agentObject is the bus-facing surface of Agent; only its methods are
// exported under net.connman.iwd.Agent.
type agentObject struct {
	agent *Agent
}

func (o agentObject) RequestPassphrase(network dbus.ObjectPath) (string, *dbus.Error) {
	return o.agent.requestPassphrase(network)
}

func (o agentObject) Release() *dbus.Error {
	return nil
}

func (o agentObject) Cancel(reason string) *dbus.Error {
	return nil
}

// signalMatches are the three notification kinds the synchronizer reacts to.
func signalMatches() [][]dbus.MatchOption {
	return [][]dbus.MatchOption{
		{
			dbus.WithMatchSender(busName),
			dbus.WithMatchInterface(ifaceObjectManager),
			dbus.WithMatchMember("InterfacesAdded"),
		},
		{
			dbus.WithMatchSender(busName),
			dbus.WithMatchInterface(ifaceObjectManager),
			dbus.WithMatchMember("InterfacesRemoved"),
		},
		{
			dbus.WithMatchSender(busName),
			dbus.WithMatchInterface(ifaceProperties),
			dbus.WithMatchMember("PropertiesChanged"),
		},
	}
}
