// Package notify delivers command outcomes to the user: desktop
// notifications over the session bus, or plain writes for CLI use.
package notify

import (
	"fmt"
	"io"

	"github.com/godbus/dbus/v5"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod = notifyDest + ".Notify"
)

// Desktop sends freedesktop notifications on the session bus.
type Desktop struct {
	obj dbus.BusObject
}

// NewDesktop connects to the session bus notification service.
func NewDesktop() (*Desktop, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	return &Desktop{obj: conn.Object(notifyDest, notifyPath)}, nil
}

// Notify shows a transient notification. Failures are swallowed; a missing
// notification daemon must not break the command that triggered it.
func (d *Desktop) Notify(title, body string) {
	_ = d.obj.Call(notifyMethod, 0,
		"iwdtui",             // app name
		uint32(0),            // no notification to replace
		"network-wireless",   // icon
		title, body,
		[]string{},           // no actions
		map[string]dbus.Variant{},
		int32(-1), // server default timeout
	).Err
}

// Writer prints outcomes to an io.Writer.
type Writer struct {
	W io.Writer
}

func (n Writer) Notify(title, body string) {
	fmt.Fprintf(n.W, "%s: %s\n", title, body)
}

// Multi fans a notification out to several notifiers.
type Multi []interface{ Notify(title, body string) }

func (m Multi) Notify(title, body string) {
	for _, n := range m {
		n.Notify(title, body)
	}
}
