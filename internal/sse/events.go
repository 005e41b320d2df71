// Package sse pushes per-user realtime events to connected web clients.
package sse

import "time"

// EventType names an SSE event.
type EventType string

// Event types.
const (
	EventNotificationCreated EventType = "notification.created"
	EventNotificationRead    EventType = "notification.read"
	EventRequestCreated      EventType = "request.created"
	EventRequestUpdated      EventType = "request.updated"
	EventExchangeUpdated     EventType = "exchange.updated"
	EventNavState            EventType = "nav.state"
	EventSignedOut           EventType = "session.signed_out"
	EventHeartbeat           EventType = "heartbeat"
	EventConnected           EventType = "connected"
)

// Event is one message on a client stream. UserID addresses the event and is
// not serialised; an empty UserID reaches every client.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"-"`
}

// AffectsNavigation reports whether the event can change a navigation counter.
func (e Event) AffectsNavigation() bool {
	switch e.Type {
	case EventNotificationCreated, EventNotificationRead, EventRequestCreated, EventRequestUpdated:
		return true
	default:
		return false
	}
}

// NewEvent builds an event stamped with the current time.
func NewEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now().UTC()}
}

// NotificationEventData is the payload of notification.created.
type NotificationEventData struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// RequestEventData is the payload of request.created and request.updated.
type RequestEventData struct {
	RequestID string `json:"request_id"`
	BookID    string `json:"book_id"`
	BookTitle string `json:"book_title,omitempty"`
	Status    string `json:"status"`
}

// ExchangeEventData is the payload of exchange.updated.
type ExchangeEventData struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	// SharedBy is the role that just shared.
	SharedBy string `json:"shared_by"`
}

// SignedOutEventData is the payload of session.signed_out.
type SignedOutEventData struct {
	SessionID string `json:"session_id,omitempty"`
	Landing   string `json:"landing"`
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return NewEvent(EventHeartbeat, struct{}{})
}
