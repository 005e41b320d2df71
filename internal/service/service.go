// Package service holds BookBridge's application services. Each service
// orchestrates store calls, notifications and realtime events for one area:
// auth, profiles, donations, requests, contact exchange and navigation.
package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
	"github.com/bookbridge/bookbridge-server/internal/sse"
)

// EventEmitter delivers realtime events to a user's open streams.
// *sse.Manager implements it.
type EventEmitter interface {
	EmitToUser(userID string, event sse.Event)
}

// noopEmitter drops every event.
type noopEmitter struct{}

func (noopEmitter) EmitToUser(string, sse.Event) {}

// NoopEmitter returns an emitter that discards events.
func NoopEmitter() EventEmitter { return noopEmitter{} }

// WatermarkStore persists the per-user "last visited requests" time.
// *watermark.Store implements it.
type WatermarkStore interface {
	Get(userID string) (*time.Time, error)
	Set(userID string, t time.Time) error
	Clear(userID string) error
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

func emitterOrNoop(e EventEmitter) EventEmitter {
	if e == nil {
		return noopEmitter{}
	}
	return e
}

// asNotFound converts a store not-found into a domain not-found with msg and
// passes every other error through.
func asNotFound(err error, msg string) error {
	if errors.Is(err, backend.ErrNotFound) {
		return domainerrors.NotFound(msg)
	}
	return err
}

func utcNow() time.Time {
	return time.Now().UTC()
}
