// Package store provides typed table gateways over the generic backend client.
// Each file covers one logical table; services depend on *Store rather than
// building backend queries themselves.
package store

import (
	"log/slog"

	"github.com/bookbridge/bookbridge-server/internal/backend"
)

// Store wraps a backend.Client with typed, table-specific operations.
type Store struct {
	client backend.Client
	logger *slog.Logger
}

// New creates a store over client.
func New(client backend.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{client: client, logger: logger}
}

// Client returns the underlying backend client.
func (s *Store) Client() backend.Client {
	return s.client
}

// Not-found errors per table. All match backend.ErrNotFound with errors.Is.
var (
	ErrUserNotFound         = backend.ErrNotFound.WithMessage("user not found")
	ErrSessionNotFound      = backend.ErrNotFound.WithMessage("session not found")
	ErrProfileNotFound      = backend.ErrNotFound.WithMessage("profile not found")
	ErrBookNotFound         = backend.ErrNotFound.WithMessage("book not found")
	ErrRequestNotFound      = backend.ErrNotFound.WithMessage("request not found")
	ErrExchangeNotFound     = backend.ErrNotFound.WithMessage("exchange not found")
	ErrNotificationNotFound = backend.ErrNotFound.WithMessage("notification not found")
)

// ErrStaleWrite is returned when a conditional update matched no row because
// the row changed since it was read.
var ErrStaleWrite = backend.ErrConflict.WithMessage("row changed since it was read")

// notFound swaps a generic not-found for the table-specific one.
func notFound(err, specific error) error {
	if err == backend.ErrNotFound { //nolint:errorlint // DecodeOne returns the sentinel itself
		return specific
	}
	return err
}
