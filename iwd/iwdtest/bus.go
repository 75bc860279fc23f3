// Package iwdtest provides an in-memory bus that stands in for the iwd
// daemon in tests.
package iwdtest

import (
	"context"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"iwdtui/iwd"
)

// Call records one method invocation against the fake bus.
type Call struct {
	Path   dbus.ObjectPath
	Method string
	Args   []interface{}
}

// Bus is an in-memory implementation of iwd.Bus. Objects holds the managed
// object tree served by GetManagedObjects and GetProperty; Errors forces
// specific methods to fail.
type Bus struct {
	mu sync.Mutex

	Objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	Ordered [][]interface{} // reply body for GetOrderedNetworks
	Errors  map[string]error

	Exported  map[dbus.ObjectPath]interface{}
	ExportErr error

	Matches     int // live match rules
	matchAdds   int
	FailMatchAt int // 1-based AddMatchSignal call to fail, 0 for never

	calls   []Call
	signals []chan<- *dbus.Signal
}

// New returns an empty fake bus.
func New() *Bus {
	return &Bus{
		Objects:  map[dbus.ObjectPath]map[string]map[string]dbus.Variant{},
		Errors:   map[string]error{},
		Exported: map[dbus.ObjectPath]interface{}{},
	}
}

// AddObject sets one interface's properties on a managed object.
func (b *Bus) AddObject(path dbus.ObjectPath, iface string, props map[string]dbus.Variant) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.Objects[path]
	if !ok {
		obj = map[string]map[string]dbus.Variant{}
		b.Objects[path] = obj
	}
	obj[iface] = props
}

// RemoveObject drops a managed object entirely.
func (b *Bus) RemoveObject(path dbus.ObjectPath) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.Objects, path)
}

// Calls returns every recorded method call, in order.
func (b *Bus) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call{}, b.calls...)
}

// CallCount counts recorded calls whose method name ends with suffix.
func (b *Bus) CallCount(suffix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if strings.HasSuffix(c.Method, suffix) {
			n++
		}
	}
	return n
}

// Emit delivers a signal to every registered channel.
func (b *Bus) Emit(sig *dbus.Signal) {
	b.mu.Lock()
	chans := append([]chan<- *dbus.Signal{}, b.signals...)
	b.mu.Unlock()
	for _, ch := range chans {
		ch <- sig
	}
}

func (b *Bus) Object(path dbus.ObjectPath) iwd.Object {
	return object{bus: b, path: path}
}

func (b *Bus) Signal(ch chan<- *dbus.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signals = append(b.signals, ch)
}

func (b *Bus) RemoveSignal(ch chan<- *dbus.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, c := range b.signals {
		if c == ch {
			b.signals = append(b.signals[:i], b.signals[i+1:]...)
			return
		}
	}
}

func (b *Bus) AddMatchSignal(opts ...dbus.MatchOption) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.matchAdds++
	if b.FailMatchAt != 0 && b.matchAdds == b.FailMatchAt {
		return dbus.ErrClosed
	}
	b.Matches++
	return nil
}

func (b *Bus) RemoveMatchSignal(opts ...dbus.MatchOption) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Matches--
	return nil
}

func (b *Bus) Export(v interface{}, path dbus.ObjectPath, iface string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ExportErr != nil {
		return b.ExportErr
	}
	if v == nil {
		delete(b.Exported, path)
		return nil
	}
	b.Exported[path] = v
	return nil
}

type object struct {
	bus  *Bus
	path dbus.ObjectPath
}

func (o object) Call(ctx context.Context, method string, args ...interface{}) *dbus.Call {
	return o.bus.invoke(o.path, method, args)
}

func (o object) Go(method string, args ...interface{}) *dbus.Call {
	call := o.bus.invoke(o.path, method, args)
	call.Done = make(chan *dbus.Call, 1)
	call.Done <- call
	return call
}

func (o object) GetProperty(name string) (dbus.Variant, error) {
	i := strings.LastIndex(name, ".")
	iface, prop := name[:i], name[i+1:]
	o.bus.mu.Lock()
	defer o.bus.mu.Unlock()
	if obj, ok := o.bus.Objects[o.path]; ok {
		if props, ok := obj[iface]; ok {
			if v, ok := props[prop]; ok {
				return v, nil
			}
		}
	}
	return dbus.Variant{}, dbus.ErrMsgNoObject
}

func (b *Bus) invoke(path dbus.ObjectPath, method string, args []interface{}) *dbus.Call {
	b.mu.Lock()
	b.calls = append(b.calls, Call{Path: path, Method: method, Args: args})
	call := &dbus.Call{Path: path, Method: method, Args: args}
	if err, ok := b.Errors[method]; ok && err != nil {
		call.Err = err
		b.mu.Unlock()
		return call
	}
	switch {
	case strings.HasSuffix(method, ".GetManagedObjects"):
		call.Body = []interface{}{b.snapshotLocked()}
	case strings.HasSuffix(method, ".GetOrderedNetworks"):
		call.Body = []interface{}{b.Ordered}
	}
	b.mu.Unlock()
	return call
}

// snapshotLocked deep-copies the object tree so later mutations of the fake
// never leak into an already-served fetch.
func (b *Bus) snapshotLocked() map[dbus.ObjectPath]map[string]map[string]dbus.Variant {
	out := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant, len(b.Objects))
	for path, ifaces := range b.Objects {
		oc := make(map[string]map[string]dbus.Variant, len(ifaces))
		for iface, props := range ifaces {
			pc := make(map[string]dbus.Variant, len(props))
			for k, v := range props {
				pc[k] = v
			}
			oc[iface] = pc
		}
		out[path] = oc
	}
	return out
}
