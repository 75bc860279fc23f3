package iwd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// DefaultDebounce is the quiescence window after the last change signal
// before a coalesced refresh fires.
const DefaultDebounce = 200 * time.Millisecond

// ConnState is the station's connection state as reported by the daemon.
type ConnState int

const (
	StateUnknown ConnState = iota
	StateDisconnected
	StateConnecting
	StateConnected
	StateRoaming
	StateDisconnecting
)

func parseConnState(s string) ConnState {
	switch s {
	case "disconnected":
		return StateDisconnected
	case "connecting":
		return StateConnecting
	case "connected":
		return StateConnected
	case "roaming":
		return StateRoaming
	case "disconnecting":
		return StateDisconnecting
	}
	// Unrecognized daemon states degrade rather than fail.
	return StateUnknown
}

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRoaming:
		return "roaming"
	case StateDisconnecting:
		return "disconnecting"
	}
	return "unknown"
}

// DeviceState is a pure projection of the cache: the managed device and its
// station summarized for display. It has no identity of its own and is
// recomputed wholesale on every refresh.
type DeviceState struct {
	Name     string
	State    ConnState
	SSID     string // set when State is StateConnected
	Scanning bool
}

// Synchronizer keeps the cache in step with the daemon and derives
// DeviceState from it. Change signals are debounced: a burst of N signals
// collapses into one refresh, fired one quiescence window after the last.
type Synchronizer struct {
	client  *Client
	window  time.Duration
	signals chan *dbus.Signal

	mu         sync.Mutex
	device     dbus.ObjectPath
	state      DeviceState
	refreshFns []func()
	stateFns   []func(DeviceState)
	errorFns   []func(error)
}

// NewSynchronizer wraps client with a debounce window. A zero window means
// DefaultDebounce.
func NewSynchronizer(client *Client, window time.Duration) *Synchronizer {
	if window == 0 {
		window = DefaultDebounce
	}
	return &Synchronizer{
		client:  client,
		window:  window,
		signals: make(chan *dbus.Signal, 16),
	}
}

// Signals returns the channel change signals are delivered on.
func (s *Synchronizer) Signals() chan *dbus.Signal {
	return s.signals
}

// OnRefresh registers an observer called after every completed refresh.
// Refresh observers run before state observers, each set in registration
// order.
func (s *Synchronizer) OnRefresh(fn func()) {
	s.mu.Lock()
	s.refreshFns = append(s.refreshFns, fn)
	s.mu.Unlock()
}

// OnState registers an observer for the recomputed DeviceState.
func (s *Synchronizer) OnState(fn func(DeviceState)) {
	s.mu.Lock()
	s.stateFns = append(s.stateFns, fn)
	s.mu.Unlock()
}

// OnError registers an observer for refresh failures. Failures are reported
// once per trigger and leave DeviceState untouched.
func (s *Synchronizer) OnError(fn func(error)) {
	s.mu.Lock()
	s.errorFns = append(s.errorFns, fn)
	s.mu.Unlock()
}

// State returns the last derived device state.
func (s *Synchronizer) State() DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Device returns the selected station-capable device path. In iwd the
// Station interface lives on the device object, so this path doubles as the
// station target for commands.
func (s *Synchronizer) Device() (dbus.ObjectPath, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device, s.device != ""
}

// Sync refetches the object tree, re-resolves the selected device and
// recomputes DeviceState, then notifies observers synchronously.
func (s *Synchronizer) Sync(ctx context.Context) error {
	if err := s.client.Refresh(ctx); err != nil {
		s.reportError(err)
		return err
	}
	cache := s.client.Cache()

	s.mu.Lock()
	device := s.device
	if device != "" {
		if _, ok := cache.InterfaceProperties(device, ifaceStation); !ok {
			device = ""
		}
	}
	if device == "" {
		device, _ = cache.FirstWithInterface(ifaceStation)
	}
	if device == "" {
		s.device = ""
		s.mu.Unlock()
		err := fmt.Errorf("no station device: %w", ErrNotFound)
		s.reportError(err)
		return err
	}
	s.device = device

	state := DeviceState{State: StateUnknown}
	if props, ok := cache.InterfaceProperties(device, ifaceDevice); ok {
		state.Name, _ = props.String("Name")
	}
	if props, ok := cache.InterfaceProperties(device, ifaceStation); ok {
		if raw, ok := props.String("State"); ok {
			state.State = parseConnState(raw)
		}
		state.Scanning, _ = props.Bool("Scanning")
		if state.State == StateConnected {
			if netPath, ok := props.Path("ConnectedNetwork"); ok {
				if netProps, ok := cache.InterfaceProperties(netPath, ifaceNetwork); ok {
					state.SSID, _ = netProps.String("Name")
				}
			}
		}
	}
	s.state = state
	refreshFns := append([]func(){}, s.refreshFns...)
	stateFns := append([]func(DeviceState){}, s.stateFns...)
	s.mu.Unlock()

	for _, fn := range refreshFns {
		fn()
	}
	for _, fn := range stateFns {
		fn(state)
	}
	return nil
}

// Run consumes change signals until ctx is cancelled. It owns the debounce
// timer: each relevant signal replaces the pending timer, so only the most
// recent one is ever live.
func (s *Synchronizer) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case sig, ok := <-s.signals:
			if !ok {
				return
			}
			if !relevantSignal(sig) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(s.window)
			fire = timer.C
		case <-fire:
			timer, fire = nil, nil
			// Errors are already routed through OnError observers.
			_ = s.Sync(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func relevantSignal(sig *dbus.Signal) bool {
	switch sig.Name {
	case ifaceObjectManager + ".InterfacesAdded",
		ifaceObjectManager + ".InterfacesRemoved",
		ifaceProperties + ".PropertiesChanged":
		return true
	}
	return false
}

func (s *Synchronizer) reportError(err error) {
	s.mu.Lock()
	fns := append([]func(error){}, s.errorFns...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}
