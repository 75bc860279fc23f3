package iwd

import (
	"sort"
	"sync"

	"github.com/godbus/dbus/v5"
)

// PropertyBag holds one interface's properties on a managed object.
type PropertyBag map[string]dbus.Variant

// String returns the named property coerced to a string.
func (p PropertyBag) String(name string) (string, bool) {
	v, ok := p[name]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}

// Bool returns the named property coerced to a bool.
func (p PropertyBag) Bool(name string) (bool, bool) {
	v, ok := p[name]
	if !ok {
		return false, false
	}
	b, ok := v.Value().(bool)
	return b, ok
}

// Path returns the named property coerced to an object path.
func (p PropertyBag) Path(name string) (dbus.ObjectPath, bool) {
	v, ok := p[name]
	if !ok {
		return "", false
	}
	path, ok := v.Value().(dbus.ObjectPath)
	return path, ok
}

// ManagedObject maps interface name to that interface's properties.
type ManagedObject map[string]PropertyBag

// Snapshot is one full fetch of the daemon's managed-object tree.
type Snapshot map[dbus.ObjectPath]ManagedObject

// Cache mirrors the daemon's object tree. The synchronizer is the sole
// writer; Replace swaps the entire snapshot under the lock, so readers never
// observe a mix of two fetches.
type Cache struct {
	mu      sync.RWMutex
	objects Snapshot
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{objects: Snapshot{}}
}

// Replace installs a new snapshot atomically.
func (c *Cache) Replace(s Snapshot) {
	c.mu.Lock()
	c.objects = s
	c.mu.Unlock()
}

// Lookup returns the managed object at path.
func (c *Cache) Lookup(path dbus.ObjectPath) (ManagedObject, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	obj, ok := c.objects[path]
	return obj, ok
}

// InterfaceProperties returns the property bag for one interface of the
// object at path.
func (c *Cache) InterfaceProperties(path dbus.ObjectPath, iface string) (PropertyBag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	obj, ok := c.objects[path]
	if !ok {
		return nil, false
	}
	props, ok := obj[iface]
	return props, ok
}

// FirstWithInterface returns the lowest path exposing iface. Paths are
// ordered so the choice is stable across refreshes.
func (c *Cache) FirstWithInterface(iface string) (dbus.ObjectPath, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths := make([]string, 0, len(c.objects))
	for path, obj := range c.objects {
		if _, ok := obj[iface]; ok {
			paths = append(paths, string(path))
		}
	}
	if len(paths) == 0 {
		return "", false
	}
	sort.Strings(paths)
	return dbus.ObjectPath(paths[0]), true
}

// PathsWithInterface returns all paths exposing iface, in path order.
func (c *Cache) PathsWithInterface(iface string) []dbus.ObjectPath {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths := make([]string, 0, len(c.objects))
	for path, obj := range c.objects {
		if _, ok := obj[iface]; ok {
			paths = append(paths, string(path))
		}
	}
	sort.Strings(paths)
	out := make([]dbus.ObjectPath, len(paths))
	for i, p := range paths {
		out[i] = dbus.ObjectPath(p)
	}
	return out
}
