package redis

import "sync/atomic"

// Holder is a swappable, nullable reference to a Client. It never owns the
// client's lifecycle; whoever calls Set is responsible for Shutdown.
type Holder struct {
	v atomic.Pointer[Client]
}

// Set publishes c to every reader
func (h *Holder) Set(c *Client) {
	h.v.Store(c)
}

// Get returns the registered client, or nil when none is registered
func (h *Holder) Get() *Client {
	return h.v.Load()
}

// Clear removes the registered client
func (h *Holder) Clear() {
	h.v.Store(nil)
}

var global Holder

// SetGlobal registers c as the process-wide client
func SetGlobal(c *Client) {
	global.Set(c)
}

// Global returns the process-wide client, or nil before the plugin starts
// and after it stops
func Global() *Client {
	return global.Get()
}

// ClearGlobal unregisters the process-wide client
func ClearGlobal() {
	global.Clear()
}
