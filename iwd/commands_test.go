package iwd_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iwdtui/iwd"
	"iwdtui/iwd/iwdtest"
)

// recorder collects notifications.
type recorder struct {
	mu      sync.Mutex
	entries [][2]string
}

func (r *recorder) Notify(title, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, [2]string{title, body})
}

func (r *recorder) all() [][2]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][2]string{}, r.entries...)
}

func TestConnectSuccessNotifies(t *testing.T) {
	bus := iwdtest.New()
	bus.AddObject("/net0", "net.connman.iwd.Network", map[string]dbus.Variant{
		"Name":      dbus.MakeVariant("CoffeeShop"),
		"Type":      dbus.MakeVariant("psk"),
		"Connected": dbus.MakeVariant(false),
	})
	client := iwd.New(bus)
	require.NoError(t, client.Refresh(context.Background()))

	rec := &recorder{}
	op := client.Connect("/net0", rec)
	assert.Equal(t, "CoffeeShop", op.SSID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, op.Wait(ctx))

	assert.Equal(t, [][2]string{{"CoffeeShop", "Connected"}}, rec.all())
	assert.Equal(t, 1, bus.CallCount("Network.Connect"))
}

func TestConnectFailureNotifies(t *testing.T) {
	bus := iwdtest.New()
	bus.AddObject("/net0", "net.connman.iwd.Network", map[string]dbus.Variant{
		"Name": dbus.MakeVariant("CoffeeShop"),
	})
	bus.Errors["net.connman.iwd.Network.Connect"] = dbus.Error{
		Name: "net.connman.iwd.Failed",
		Body: []interface{}{"Operation failed"},
	}
	client := iwd.New(bus)
	require.NoError(t, client.Refresh(context.Background()))

	rec := &recorder{}
	op := client.Connect("/net0", rec)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.Error(t, op.Wait(ctx))

	// The notification carries the daemon's message, not the error name.
	assert.Equal(t, [][2]string{{"CoffeeShop", "Operation failed"}}, rec.all())
}

func TestConnectUnknownNetworkUsesPathAsTitle(t *testing.T) {
	bus := iwdtest.New()
	client := iwd.New(bus)

	rec := &recorder{}
	op := client.Connect("/net9", rec)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, op.Wait(ctx))
	assert.Equal(t, "/net9", op.SSID)
}

func TestForgetPreconditions(t *testing.T) {
	bus := iwdtest.New()
	bus.AddObject("/net0", "net.connman.iwd.Network", map[string]dbus.Variant{
		"Name":      dbus.MakeVariant("CoffeeShop"),
		"Connected": dbus.MakeVariant(false),
	})
	client := iwd.New(bus)
	ctx := context.Background()
	require.NoError(t, client.Refresh(ctx))

	err := client.Forget(ctx, "/net0")
	assert.ErrorIs(t, err, iwd.ErrNotKnown)
	assert.Zero(t, bus.CallCount("KnownNetwork.Forget"), "precondition failures issue no RPC")

	err = client.Forget(ctx, "/no/such/path")
	assert.ErrorIs(t, err, iwd.ErrNotFound)
	assert.Zero(t, bus.CallCount("KnownNetwork.Forget"))
}

func TestForgetConnectedKnownNetwork(t *testing.T) {
	bus := iwdtest.New()
	bus.AddObject("/net0", "net.connman.iwd.Network", map[string]dbus.Variant{
		"Name":         dbus.MakeVariant("CoffeeShop"),
		"Connected":    dbus.MakeVariant(true),
		"KnownNetwork": dbus.MakeVariant(dbus.ObjectPath("/known/0")),
	})
	client := iwd.New(bus)
	ctx := context.Background()
	require.NoError(t, client.Refresh(ctx))

	require.NoError(t, client.Forget(ctx, "/net0"))
	assert.Equal(t, 1, bus.CallCount("KnownNetwork.Forget"))

	calls := bus.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, dbus.ObjectPath("/known/0"), last.Path,
		"Forget targets the known-network object, not the network")
}

func TestScanAndDisconnect(t *testing.T) {
	bus := newStationBus()
	client := iwd.New(bus)
	ctx := context.Background()

	require.NoError(t, client.Scan(ctx, devicePath))
	assert.Equal(t, 1, bus.CallCount("Station.Scan"))

	require.NoError(t, client.Disconnect(ctx, devicePath))
	assert.Equal(t, 1, bus.CallCount("Station.Disconnect"))

	bus.Errors["net.connman.iwd.Station.Scan"] = dbus.ErrClosed
	assert.Error(t, client.Scan(ctx, devicePath))
}

func TestOrderedNetworks(t *testing.T) {
	bus := newStationBus()
	bus.Ordered = [][]interface{}{
		{networkPath, int16(-4500)},
		{dbus.ObjectPath("/ghost"), int16(-9000)},
	}
	client := iwd.New(bus)
	ctx := context.Background()
	require.NoError(t, client.Refresh(ctx))

	networks, err := client.OrderedNetworks(ctx, devicePath)
	require.NoError(t, err)
	require.Len(t, networks, 1, "entries missing from the cache are dropped")
	assert.Equal(t, "CoffeeShop", networks[0].Name)
	assert.Equal(t, "psk", networks[0].Type)
	assert.True(t, networks[0].Connected)
	assert.Equal(t, int16(-4500), networks[0].Strength)
}

func TestNetworkByName(t *testing.T) {
	bus := newStationBus()
	client := iwd.New(bus)
	require.NoError(t, client.Refresh(context.Background()))

	path, ok := client.NetworkByName("CoffeeShop")
	require.True(t, ok)
	assert.Equal(t, networkPath, path)

	_, ok = client.NetworkByName("Nowhere")
	assert.False(t, ok)
}
