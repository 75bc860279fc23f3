package iwd

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Bus is the slice of a D-Bus connection the client needs. The destination
// is fixed to the iwd daemon; tests substitute an in-memory implementation.
type Bus interface {
	Object(path dbus.ObjectPath) Object
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	AddMatchSignal(opts ...dbus.MatchOption) error
	RemoveMatchSignal(opts ...dbus.MatchOption) error
	Export(v interface{}, path dbus.ObjectPath, iface string) error
}

// Object is a bus-addressable object on the daemon.
type Object interface {
	// Call invokes method synchronously, bounded by ctx.
	Call(ctx context.Context, method string, args ...interface{}) *dbus.Call
	// Go invokes method asynchronously; the returned call's Done channel
	// delivers the outcome.
	Go(method string, args ...interface{}) *dbus.Call
	GetProperty(name string) (dbus.Variant, error)
}

// SystemBus connects to the system bus where iwd lives.
func SystemBus() (Bus, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to system bus: %w", err)
	}
	return &systemBus{conn: conn}, nil
}

type systemBus struct {
	conn *dbus.Conn
}

func (b *systemBus) Object(path dbus.ObjectPath) Object {
	return busObject{obj: b.conn.Object(busName, path)}
}

func (b *systemBus) Signal(ch chan<- *dbus.Signal)       { b.conn.Signal(ch) }
func (b *systemBus) RemoveSignal(ch chan<- *dbus.Signal) { b.conn.RemoveSignal(ch) }

func (b *systemBus) AddMatchSignal(opts ...dbus.MatchOption) error {
	return b.conn.AddMatchSignal(opts...)
}

func (b *systemBus) RemoveMatchSignal(opts ...dbus.MatchOption) error {
	return b.conn.RemoveMatchSignal(opts...)
}

func (b *systemBus) Export(v interface{}, path dbus.ObjectPath, iface string) error {
	return b.conn.Export(v, path, iface)
}

type busObject struct {
	obj dbus.BusObject
}

func (o busObject) Call(ctx context.Context, method string, args ...interface{}) *dbus.Call {
	return o.obj.CallWithContext(ctx, method, 0, args...)
}

func (o busObject) Go(method string, args ...interface{}) *dbus.Call {
	return o.obj.Go(method, 0, nil, args...)
}

func (o busObject) GetProperty(name string) (dbus.Variant, error) {
	return o.obj.GetProperty(name)
}
