// Package notifier provides the per-route change signal.
//
// Listeners receive an empty struct when something in the route's tree changed
// and should re-read whatever they display. Pings coalesce: a slow listener
// sees at least one ping after the last change, not one per change.
package notifier

import (
	"sync"
	"sync/atomic"
)

// Notifier broadcasts change pings to every subscribed listener.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
	closed    bool
	version   atomic.Uint64
}

// New creates a new Notifier.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Subscribe returns a channel that receives a ping after each change.
// The caller must call Unsubscribe when done. Subscribing to a closed
// notifier returns an already closed channel.
func (n *Notifier) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		close(ch)
		return ch
	}
	n.listeners[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a listener and closes its channel. It is a no-op for
// channels already released by Close.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[ch]; !ok {
		return
	}
	delete(n.listeners, ch)
	close(ch)
}

// Broadcast records a change and pings all listeners without blocking.
func (n *Notifier) Broadcast() {
	n.version.Add(1)

	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.listeners {
		select {
		case ch <- struct{}{}:
		default:
			// a ping is already queued
		}
	}
}

// Version returns the number of broadcasts so far.
func (n *Notifier) Version() uint64 {
	return n.version.Load()
}

// Len returns the number of active listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Close closes every listener channel and rejects later subscriptions.
// Used when the owning route is deleted.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for ch := range n.listeners {
		close(ch)
	}
	clear(n.listeners)
}
