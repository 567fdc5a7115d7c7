package auth

import (
	"context"
	"sync"
	"time"
)

// Identity is an authenticated, possibly anonymous, user as seen by a Provider.
type Identity struct {
	UID           string
	Token         string    // bearer token for the HTTP service
	RefreshSecret string    // empty when the provider cannot refresh
	ExpiresAt     time.Time // zero when unknown
	Anonymous     bool
}

// StateListener is called with the new identity, or nil after sign-out.
type StateListener func(*Identity)

// ListenerHandle identifies a registered StateListener.
type ListenerHandle int

// Provider is an external identity provider supporting anonymous sign-in.
type Provider interface {
	SignInAnonymously(ctx context.Context) (*Identity, error)
	SignOut(ctx context.Context) error
	CurrentIdentity() *Identity
	AddStateListener(fn StateListener) ListenerHandle
	RemoveStateListener(h ListenerHandle)
}

// stateNotifier holds the current identity and fans changes out to listeners.
// Providers embed it.
type stateNotifier struct {
	mu        sync.Mutex
	current   *Identity
	nextID    ListenerHandle
	listeners map[ListenerHandle]StateListener
}

// CurrentIdentity returns a copy of the signed-in identity or nil.
func (n *stateNotifier) CurrentIdentity() *Identity {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return nil
	}
	id := *n.current
	return &id
}

// AddStateListener registers fn and returns its handle.
func (n *stateNotifier) AddStateListener(fn StateListener) ListenerHandle {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listeners == nil {
		n.listeners = make(map[ListenerHandle]StateListener)
	}
	n.nextID++
	n.listeners[n.nextID] = fn
	return n.nextID
}

// RemoveStateListener unregisters h. Unknown handles are ignored.
func (n *stateNotifier) RemoveStateListener(h ListenerHandle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.listeners, h)
}

// setIdentity replaces the current identity and notifies listeners outside the lock.
func (n *stateNotifier) setIdentity(id *Identity) {
	n.mu.Lock()
	n.current = id
	fns := make([]StateListener, 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		if id == nil {
			fn(nil)
			continue
		}
		cp := *id
		fn(&cp)
	}
}
