package iwd

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Notifier receives user-facing command outcomes.
type Notifier interface {
	Notify(title, body string)
}

// Scan asks the station to rescan. Fire and forget: completion shows up as
// the station's Scanning property flipping back, not as a reply here.
func (c *Client) Scan(ctx context.Context, station dbus.ObjectPath) error {
	if call := c.bus.Object(station).Call(ctx, ifaceStation+".Scan"); call.Err != nil {
		return fmt.Errorf("scan failed: %w", call.Err)
	}
	return nil
}

// Disconnect drops the station's current connection.
func (c *Client) Disconnect(ctx context.Context, station dbus.ObjectPath) error {
	if call := c.bus.Object(station).Call(ctx, ifaceStation+".Disconnect"); call.Err != nil {
		return fmt.Errorf("disconnect failed: %w", call.Err)
	}
	return nil
}

// Forget removes the stored credentials behind a network. The network must
// currently be connected and carry a known-network back-reference; anything
// else is a precondition failure and no RPC is issued.
func (c *Client) Forget(ctx context.Context, network dbus.ObjectPath) error {
	props, ok := c.cache.InterfaceProperties(network, ifaceNetwork)
	if !ok {
		return fmt.Errorf("network %s: %w", network, ErrNotFound)
	}
	connected, _ := props.Bool("Connected")
	known, hasKnown := props.Path("KnownNetwork")
	if !connected || !hasKnown {
		return fmt.Errorf("network %s: %w", network, ErrNotKnown)
	}
	if call := c.bus.Object(known).Call(ctx, ifaceKnownNetwork+".Forget"); call.Err != nil {
		return fmt.Errorf("forget failed: %w", call.Err)
	}
	return nil
}

// PendingConnect tracks one in-flight connection attempt. Attempts are not
// cancelable once issued; concurrent attempts to different networks each get
// their own handle.
type PendingConnect struct {
	SSID string

	done chan struct{}
	err  error
}

// Wait blocks until the attempt resolves or ctx expires.
func (p *PendingConnect) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect starts connecting to a network. Phase one issues the RPC; phase
// two resolves the returned handle when the daemon replies. Both outcomes
// are reported through n with the network's SSID as title. The daemon may
// call the registered agent for credentials while this is in flight; that
// exchange does not pass through here.
func (c *Client) Connect(network dbus.ObjectPath, n Notifier) *PendingConnect {
	ssid := string(network)
	if props, ok := c.cache.InterfaceProperties(network, ifaceNetwork); ok {
		if name, ok := props.String("Name"); ok && name != "" {
			ssid = name
		}
	}

	op := &PendingConnect{SSID: ssid, done: make(chan struct{})}
	call := c.bus.Object(network).Go(ifaceNetwork + ".Connect")
	go func() {
		<-call.Done
		if call.Err != nil {
			op.err = fmt.Errorf("connect failed: %w", call.Err)
			if n != nil {
				n.Notify(op.SSID, rpcErrorText(call.Err))
			}
		} else if n != nil {
			n.Notify(op.SSID, "Connected")
		}
		close(op.done)
	}()
	return op
}

// rpcErrorText extracts the daemon's human-readable message from an RPC
// failure, falling back to the error's own text.
func rpcErrorText(err error) string {
	var derr dbus.Error
	if errors.As(err, &derr) && len(derr.Body) > 0 {
		if s, ok := derr.Body[0].(string); ok && s != "" {
			return s
		}
	}
	return err.Error()
}
