package iwd

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

// iwd bus constants
const (
	busName          = "net.connman.iwd"
	rootPath         = dbus.ObjectPath("/")
	agentManagerPath = dbus.ObjectPath("/net/connman/iwd")

	ifaceAgentManager = "net.connman.iwd.AgentManager"
	ifaceAgent        = "net.connman.iwd.Agent"
	ifaceDevice       = "net.connman.iwd.Device"
	ifaceStation      = "net.connman.iwd.Station"
	ifaceNetwork      = "net.connman.iwd.Network"
	ifaceKnownNetwork = "net.connman.iwd.KnownNetwork"

	ifaceObjectManager = "org.freedesktop.DBus.ObjectManager"
	ifaceProperties    = "org.freedesktop.DBus.Properties"
	ifacePeer          = "org.freedesktop.DBus.Peer"

	// Error name the daemon expects when a credential request is aborted.
	errNameCanceled = "net.connman.iwd.Agent.Error.Canceled"
)

// Client talks to one iwd daemon and owns the local mirror of its object
// tree. All state it exposes is read from the cache, never fetched
// per-property from the daemon.
type Client struct {
	bus   Bus
	cache *Cache
}

// New wraps an existing bus connection.
func New(bus Bus) *Client {
	return &Client{bus: bus, cache: NewCache()}
}

// NewSystem connects to the system bus.
func NewSystem() (*Client, error) {
	bus, err := SystemBus()
	if err != nil {
		return nil, err
	}
	return New(bus), nil
}

// Cache returns the client's object cache.
func (c *Client) Cache() *Cache {
	return c.cache
}

// Ping verifies the daemon answers within ctx's deadline.
func (c *Client) Ping(ctx context.Context) error {
	if call := c.bus.Object(rootPath).Call(ctx, ifacePeer+".Ping"); call.Err != nil {
		return fmt.Errorf("pinging iwd: %v: %w", call.Err, ErrNotAvailable)
	}
	return nil
}

// Refresh refetches the daemon's entire object tree and replaces the cache.
// Incremental patching from signals is deliberately not done; refreshes are
// infrequent and debounced.
func (c *Client) Refresh(ctx context.Context) error {
	var raw map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := c.bus.Object(rootPath).Call(ctx, ifaceObjectManager+".GetManagedObjects")
	if err := call.Store(&raw); err != nil {
		return fmt.Errorf("fetching managed objects: %w", err)
	}
	snap := make(Snapshot, len(raw))
	for path, ifaces := range raw {
		obj := make(ManagedObject, len(ifaces))
		for name, props := range ifaces {
			obj[name] = PropertyBag(props)
		}
		snap[path] = obj
	}
	c.cache.Replace(snap)
	return nil
}

// OrderedNetwork is one entry of Station.GetOrderedNetworks: a network path
// and its signal strength in 1/100 dBm.
type OrderedNetwork struct {
	Path     dbus.ObjectPath
	Strength int16
}

// Network is an ordered-networks entry joined with cached properties.
type Network struct {
	Path      dbus.ObjectPath
	Name      string
	Type      string // open, psk, 8021x, wep
	Connected bool
	Known     bool
	Strength  int16 // 1/100 dBm
}

// OrderedNetworks asks the station for its ranked network list and joins
// each entry against the cache.
func (c *Client) OrderedNetworks(ctx context.Context, station dbus.ObjectPath) ([]Network, error) {
	var entries []OrderedNetwork
	call := c.bus.Object(station).Call(ctx, ifaceStation+".GetOrderedNetworks")
	if err := call.Store(&entries); err != nil {
		return nil, fmt.Errorf("listing networks: %w", err)
	}

	networks := make([]Network, 0, len(entries))
	for _, e := range entries {
		n := Network{Path: e.Path, Strength: e.Strength}
		props, ok := c.cache.InterfaceProperties(e.Path, ifaceNetwork)
		if !ok {
			continue
		}
		n.Name, _ = props.String("Name")
		n.Type, _ = props.String("Type")
		n.Connected, _ = props.Bool("Connected")
		_, n.Known = props.Path("KnownNetwork")
		networks = append(networks, n)
	}
	return networks, nil
}

// NetworkByName finds a visible network path by SSID in the cache.
func (c *Client) NetworkByName(name string) (dbus.ObjectPath, bool) {
	for _, path := range c.cache.PathsWithInterface(ifaceNetwork) {
		props, ok := c.cache.InterfaceProperties(path, ifaceNetwork)
		if !ok {
			continue
		}
		if n, ok := props.String("Name"); ok && n == name {
			return path, true
		}
	}
	return "", false
}

// KnownNetwork is a stored network configuration.
type KnownNetwork struct {
	Path          dbus.ObjectPath
	Name          string
	Type          string
	Hidden        bool
	LastConnected time.Time
}

// KnownNetworks lists the daemon's stored networks from the cache.
func (c *Client) KnownNetworks() []KnownNetwork {
	var known []KnownNetwork
	for _, path := range c.cache.PathsWithInterface(ifaceKnownNetwork) {
		props, ok := c.cache.InterfaceProperties(path, ifaceKnownNetwork)
		if !ok {
			continue
		}
		k := KnownNetwork{Path: path}
		k.Name, _ = props.String("Name")
		k.Type, _ = props.String("Type")
		k.Hidden, _ = props.Bool("Hidden")
		if s, ok := props.String("LastConnectedTime"); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				k.LastConnected = t
			}
		}
		known = append(known, k)
	}
	return known
}

// SignalPercent maps 1/100 dBm strength onto a rough 0-100 scale.
func SignalPercent(strength int16) int {
	dbm := float64(strength) / 100
	switch {
	case dbm >= -50:
		return 100
	case dbm <= -100:
		return 0
	default:
		return int((dbm + 100) * 2)
	}
}
