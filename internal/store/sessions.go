package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/domain"
)

type sessionRow struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"refresh_token_hash"`
	UserAgent        string    `json:"user_agent"`
	IPAddress        string    `json:"ip_address"`
	CreatedAt        time.Time `json:"created_at"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

func (r sessionRow) toDomain() *domain.Session {
	return &domain.Session{
		ID:               r.ID,
		UserID:           r.UserID,
		RefreshTokenHash: r.RefreshTokenHash,
		UserAgent:        r.UserAgent,
		IPAddress:        r.IPAddress,
		CreatedAt:        r.CreatedAt,
		LastSeenAt:       r.LastSeenAt,
		ExpiresAt:        r.ExpiresAt,
	}
}

// CreateSession inserts a refresh session.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	err := s.client.Insert(ctx, backend.TableSessions, backend.Row{
		"id":                 sess.ID,
		"user_id":            sess.UserID,
		"refresh_token_hash": sess.RefreshTokenHash,
		"user_agent":         sess.UserAgent,
		"ip_address":         sess.IPAddress,
		"created_at":         sess.CreatedAt,
		"last_seen_at":       sess.LastSeenAt,
		"expires_at":         sess.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession returns a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row, err := backend.SelectOne[sessionRow](ctx, s.client, backend.TableSessions, backend.Eq("id", id))
	if err != nil {
		return nil, notFound(err, ErrSessionNotFound)
	}
	return row.toDomain(), nil
}

// GetSessionByRefreshHash returns the session holding a refresh token hash.
func (s *Store) GetSessionByRefreshHash(ctx context.Context, hash string) (*domain.Session, error) {
	row, err := backend.SelectOne[sessionRow](ctx, s.client, backend.TableSessions,
		backend.Eq("refresh_token_hash", hash))
	if err != nil {
		return nil, notFound(err, ErrSessionNotFound)
	}
	return row.toDomain(), nil
}

// RotateSession replaces the refresh hash and extends the session. It only
// succeeds if the session still holds oldHash, so a refresh token is usable once.
func (s *Store) RotateSession(ctx context.Context, sessionID, oldHash, newHash string, seenAt, expiresAt time.Time) error {
	n, err := s.client.Update(ctx, backend.TableSessions,
		backend.Row{"refresh_token_hash": newHash, "last_seen_at": seenAt, "expires_at": expiresAt},
		backend.Eq("id", sessionID), backend.Eq("refresh_token_hash", oldHash))
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	if n == 0 {
		return ErrStaleWrite
	}
	return nil
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	n, err := s.client.Delete(ctx, backend.TableSessions, backend.Eq("id", id))
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteUserSessions removes every session for a user.
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) (int64, error) {
	return s.client.Delete(ctx, backend.TableSessions, backend.Eq("user_id", userID))
}

// CountUserSessions counts the user's sessions that are still live at now.
func (s *Store) CountUserSessions(ctx context.Context, userID string, now time.Time) (int, error) {
	n, err := s.client.Count(ctx, backend.TableSessions,
		backend.Eq("user_id", userID), backend.Gt("expires_at", now))
	if err != nil {
		return 0, fmt.Errorf("count user sessions: %w", err)
	}
	return n, nil
}

// DeleteExpiredSessions removes sessions that expired before now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.client.Delete(ctx, backend.TableSessions, backend.Lte("expires_at", now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}
