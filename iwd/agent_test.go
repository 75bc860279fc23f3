package iwd_test

import (
	"context"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iwdtui/iwd"
	"iwdtui/iwd/iwdtest"
)

// passphraseHandler is the method set iwd invokes on the exported agent.
type passphraseHandler interface {
	RequestPassphrase(network dbus.ObjectPath) (string, *dbus.Error)
}

func exportedAgent(t *testing.T, bus *iwdtest.Bus) passphraseHandler {
	t.Helper()
	require.Len(t, bus.Exported, 1, "exactly one agent object should be exported")
	for _, v := range bus.Exported {
		h, ok := v.(passphraseHandler)
		require.True(t, ok, "exported object must handle RequestPassphrase")
		return h
	}
	return nil
}

func newAgent(bus *iwdtest.Bus, prompt iwd.SecretPrompt) (*iwd.Agent, *iwd.Synchronizer) {
	client := iwd.New(bus)
	sync := iwd.NewSynchronizer(client, 0)
	return iwd.NewAgent(client, sync, prompt), sync
}

func TestActivateRegistersEverything(t *testing.T) {
	bus := newStationBus()
	agent, _ := newAgent(bus, nil)
	ctx := context.Background()
	defer agent.Deactivate(ctx)

	require.NoError(t, agent.Activate(ctx))

	assert.Equal(t, 1, bus.CallCount("Peer.Ping"), "activation starts with a liveness check")
	assert.Equal(t, 1, bus.CallCount("AgentManager.RegisterAgent"))
	assert.Equal(t, 3, bus.Matches, "one match rule per notification kind")
	assert.Len(t, bus.Exported, 1)
}

func TestActivateIsIdempotent(t *testing.T) {
	bus := newStationBus()
	agent, _ := newAgent(bus, nil)
	ctx := context.Background()
	defer agent.Deactivate(ctx)

	require.NoError(t, agent.Activate(ctx))
	require.NoError(t, agent.Activate(ctx), "second activate is a no-op")

	assert.Equal(t, 1, bus.CallCount("AgentManager.RegisterAgent"))
	assert.Equal(t, 3, bus.Matches)
	assert.Len(t, bus.Exported, 1)
}

func TestActivateFailsWhenDaemonUnreachable(t *testing.T) {
	bus := newStationBus()
	bus.Errors["org.freedesktop.DBus.Peer.Ping"] = dbus.ErrClosed
	agent, _ := newAgent(bus, nil)

	err := agent.Activate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, iwd.ErrNotAvailable)
	assert.Zero(t, bus.CallCount("AgentManager.RegisterAgent"), "no registration after a failed ping")
	assert.Empty(t, bus.Exported)
}

func TestActivateUnwindsOnRegisterFailure(t *testing.T) {
	bus := newStationBus()
	bus.Errors["net.connman.iwd.AgentManager.RegisterAgent"] = dbus.ErrClosed
	agent, _ := newAgent(bus, nil)

	require.Error(t, agent.Activate(context.Background()))
	assert.Empty(t, bus.Exported, "exported handler must be unwound")
	assert.Zero(t, bus.Matches)

	// A later attempt succeeds once the daemon cooperates again.
	delete(bus.Errors, "net.connman.iwd.AgentManager.RegisterAgent")
	require.NoError(t, agent.Activate(context.Background()))
	defer agent.Deactivate(context.Background())
	assert.Len(t, bus.Exported, 1)
	assert.Equal(t, 3, bus.Matches)
}

func TestActivateUnwindsOnMatchFailure(t *testing.T) {
	bus := newStationBus()
	bus.FailMatchAt = 2
	agent, _ := newAgent(bus, nil)

	require.Error(t, agent.Activate(context.Background()))
	assert.Empty(t, bus.Exported)
	assert.Zero(t, bus.Matches, "partial match set must be removed")
	assert.Equal(t, 1, bus.CallCount("AgentManager.UnregisterAgent"),
		"registration is rolled back when a later step fails")
}

func TestRequestPassphrase(t *testing.T) {
	bus := newStationBus()
	prompt := iwd.PromptFunc(func(ctx context.Context, ssid string) (string, error) {
		assert.Equal(t, "CoffeeShop", ssid, "prompt shows the network name, not its path")
		return "hunter2", nil
	})
	agent, sync := newAgent(bus, prompt)
	ctx := context.Background()
	require.NoError(t, agent.Activate(ctx))
	defer agent.Deactivate(ctx)
	require.NoError(t, sync.Sync(ctx))

	secret, derr := exportedAgent(t, bus).RequestPassphrase(networkPath)
	require.Nil(t, derr)
	assert.Equal(t, "hunter2", secret)
}

func TestRequestPassphraseCanceled(t *testing.T) {
	bus := newStationBus()
	prompt := iwd.PromptFunc(func(ctx context.Context, ssid string) (string, error) {
		return "", iwd.ErrPromptCanceled
	})
	agent, sync := newAgent(bus, prompt)
	ctx := context.Background()
	require.NoError(t, agent.Activate(ctx))
	defer agent.Deactivate(ctx)
	require.NoError(t, sync.Sync(ctx))

	_, derr := exportedAgent(t, bus).RequestPassphrase(networkPath)
	require.NotNil(t, derr, "the daemon blocks on a reply; cancellation must still answer")
	assert.Equal(t, "net.connman.iwd.Agent.Error.Canceled", derr.Name)
}

func TestRequestPassphraseUnknownNetwork(t *testing.T) {
	bus := newStationBus()
	prompted := false
	prompt := iwd.PromptFunc(func(ctx context.Context, ssid string) (string, error) {
		prompted = true
		return "secret", nil
	})
	agent, sync := newAgent(bus, prompt)
	ctx := context.Background()
	require.NoError(t, agent.Activate(ctx))
	defer agent.Deactivate(ctx)
	require.NoError(t, sync.Sync(ctx))

	_, derr := exportedAgent(t, bus).RequestPassphrase("/no/such/network")
	require.NotNil(t, derr)
	assert.Equal(t, "net.connman.iwd.Agent.Error.Canceled", derr.Name)
	assert.False(t, prompted, "no prompt for a network missing from the cache")
}

func TestDeactivate(t *testing.T) {
	bus := newStationBus()
	agent, _ := newAgent(bus, nil)
	ctx := context.Background()

	require.NoError(t, agent.Activate(ctx))
	agent.Deactivate(ctx)

	assert.Zero(t, bus.Matches)
	assert.Empty(t, bus.Exported)
	assert.Equal(t, 1, bus.CallCount("AgentManager.UnregisterAgent"))

	// Deactivating again is safe; UnregisterAgent is issued regardless.
	agent.Deactivate(ctx)
	assert.Equal(t, 2, bus.CallCount("AgentManager.UnregisterAgent"))
}

func TestDeactivateWithoutActivate(t *testing.T) {
	bus := newStationBus()
	agent, _ := newAgent(bus, nil)

	agent.Deactivate(context.Background())
	assert.Equal(t, 1, bus.CallCount("AgentManager.UnregisterAgent"),
		"teardown is unconditional even when never activated")
	assert.Zero(t, bus.Matches)
}
