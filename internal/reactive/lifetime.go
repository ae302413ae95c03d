// Package reactive provides the push-based primitives PeerWatch is built
// on: lifetimes that scope subscriptions, streams that deliver values to
// consumers, multicast events, and value cells that replay their current
// state to new subscribers.
//
// Nothing in this package is safe for concurrent use. Every stream, event
// and cell belongs to a single owning goroutine (in PeerWatch that is the
// registry loop) and must be subscribed, fired and destroyed only from it.
// Work arriving from other goroutines has to be posted onto the owning
// goroutine first.
package reactive

// Lifetime scopes one or more subscriptions. Destroying a lifetime runs
// the registered teardown callbacks in reverse registration order and
// silences every stream started with it.
type Lifetime struct {
	destroyed bool
	callbacks []func()
}

// NewLifetime returns a fresh, alive lifetime.
func NewLifetime() *Lifetime {
	return &Lifetime{}
}

// OnDestroy registers fn to run when the lifetime is destroyed. If the
// lifetime is already destroyed, fn runs immediately.
func (l *Lifetime) OnDestroy(fn func()) {
	if l.destroyed {
		fn()
		return
	}
	l.callbacks = append(l.callbacks, fn)
}

// Destroy tears the lifetime down. Callbacks run in reverse registration
// order so that dependent subscriptions unwind before what they depend
// on. Calling Destroy again is a no-op.
func (l *Lifetime) Destroy() {
	if l.destroyed {
		return
	}
	l.destroyed = true
	for i := len(l.callbacks) - 1; i >= 0; i-- {
		l.callbacks[i]()
	}
	l.callbacks = nil
}

// Alive reports whether the lifetime has not been destroyed yet.
func (l *Lifetime) Alive() bool {
	return !l.destroyed
}

// Child returns a lifetime that is destroyed when either it or the parent
// is destroyed. It lets a subscriber tear down early without waiting for
// the parent scope to end.
func (l *Lifetime) Child() *Lifetime {
	child := NewLifetime()
	l.OnDestroy(child.Destroy)
	return child
}
