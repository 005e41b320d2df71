package service

import (
	"context"
	"sync"
	"time"
)

// AuthEventType names an auth state change.
type AuthEventType string

// Auth state changes.
const (
	AuthSignedIn       AuthEventType = "signed_in"
	AuthTokenRefreshed AuthEventType = "token_refreshed"
	AuthSignedOut      AuthEventType = "signed_out"
)

// AuthEvent is delivered to every subscriber when a session changes.
type AuthEvent struct {
	Type      AuthEventType
	UserID    string
	Email     string
	SessionID string
	At        time.Time
}

// AuthStateHandler reacts to an auth state change.
type AuthStateHandler func(ctx context.Context, event AuthEvent)

// AuthStateHub fans auth events out to subscribers in subscription order.
type AuthStateHub struct {
	mu       sync.RWMutex
	nextID   uint64
	order    []uint64
	handlers map[uint64]AuthStateHandler
}

// NewAuthStateHub creates an empty hub.
func NewAuthStateHub() *AuthStateHub {
	return &AuthStateHub{handlers: make(map[uint64]AuthStateHandler)}
}

// Subscription is a registered handler. Unsubscribe removes it.
type Subscription struct {
	hub  *AuthStateHub
	id   uint64
	once sync.Once
}

// Unsubscribe stops delivery to the handler. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.remove(s.id)
	})
}

// Subscribe registers h for every future event.
func (h *AuthStateHub) Subscribe(handler AuthStateHandler) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.handlers[h.nextID] = handler
	h.order = append(h.order, h.nextID)
	return &Subscription{hub: h, id: h.nextID}
}

func (h *AuthStateHub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.handlers, id)
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of live subscriptions.
func (h *AuthStateHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

// Publish calls every handler synchronously. Handlers run outside the lock
// so they may subscribe or unsubscribe.
func (h *AuthStateHub) Publish(ctx context.Context, event AuthEvent) {
	h.mu.RLock()
	handlers := make([]AuthStateHandler, 0, len(h.order))
	for _, id := range h.order {
		handlers = append(handlers, h.handlers[id])
	}
	h.mu.RUnlock()

	for _, handler := range handlers {
		handler(ctx, event)
	}
}
