package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/domain"
)

type notificationRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (r notificationRow) toDomain() *domain.Notification {
	return &domain.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      domain.NotificationType(r.Type),
		Title:     r.Title,
		Message:   r.Message,
		Read:      r.Read,
		CreatedAt: r.CreatedAt,
	}
}

// InsertNotification stores n as unread.
func (s *Store) InsertNotification(ctx context.Context, n *domain.Notification) error {
	err := s.client.Insert(ctx, backend.TableNotifications, backend.Row{
		"id":         n.ID,
		"user_id":    n.UserID,
		"type":       n.Type,
		"title":      n.Title,
		"message":    n.Message,
		"read":       n.Read,
		"created_at": n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns the user's notifications, newest first. A zero
// limit returns all.
func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	rows, err := backend.SelectAll[notificationRow](ctx, s.client, backend.TableNotifications,
		backend.Where(backend.Eq("user_id", userID)).
			OrderBy(backend.Desc("created_at"), backend.Desc("id")).
			Take(limit, 0))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]*domain.Notification, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// CountUnread returns how many of the user's notifications are unread.
func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	n, err := s.client.Count(ctx, backend.TableNotifications,
		backend.Eq("user_id", userID), backend.Eq("read", false))
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkRead marks one of the user's notifications read.
func (s *Store) MarkRead(ctx context.Context, userID, notificationID string) error {
	n, err := s.client.Update(ctx, backend.TableNotifications,
		backend.Row{"read": true},
		backend.Eq("id", notificationID), backend.Eq("user_id", userID))
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification for the user read and returns
// how many changed.
func (s *Store) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.client.Update(ctx, backend.TableNotifications,
		backend.Row{"read": true},
		backend.Eq("user_id", userID), backend.Eq("read", false))
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}
