package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/domain"
	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
	"github.com/bookbridge/bookbridge-server/internal/sse"
	"github.com/bookbridge/bookbridge-server/internal/store"
)

// Procedure argument names for create_book_notification.
const (
	argUserID  = "user_id"
	argType    = "notification_type"
	argTitle   = "notification_title"
	argMessage = "notification_message"
)

// DefaultNotificationLimit caps notification listings.
const DefaultNotificationLimit = 50

// ProcedureRegistrar accepts server-side procedures.
// *sqlite.Client implements it.
type ProcedureRegistrar interface {
	RegisterProcedure(name string, p backend.Procedure)
}

// NotificationService creates notifications through the backend procedure
// and serves the recipient's inbox.
type NotificationService struct {
	client  backend.Client
	store   *store.Store
	emitter EventEmitter
	logger  *slog.Logger
}

// NewNotificationService creates a new notification service.
func NewNotificationService(client backend.Client, st *store.Store, emitter EventEmitter, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		client:  client,
		store:   st,
		emitter: emitterOrNoop(emitter),
		logger:  orDiscard(logger),
	}
}

// Register installs create_book_notification on r.
func (s *NotificationService) Register(r ProcedureRegistrar) {
	r.RegisterProcedure(backend.ProcCreateBookNotification, s.createProcedure)
}

// createProcedure stores a notification and pushes it to the recipient.
func (s *NotificationService) createProcedure(ctx context.Context, c backend.Client, args backend.Row) (backend.Row, error) {
	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    stringArg(args, argUserID),
		Type:      domain.NotificationType(stringArg(args, argType)),
		Title:     stringArg(args, argTitle),
		Message:   stringArg(args, argMessage),
		CreatedAt: utcNow(),
	}
	if n.UserID == "" || n.Type == "" || n.Title == "" {
		return nil, backend.ErrInvalidInput.WithMessage("user_id, notification_type and notification_title are required")
	}

	if err := store.New(c, s.logger).InsertNotification(ctx, n); err != nil {
		return nil, err
	}

	s.emitter.EmitToUser(n.UserID, sse.NewEvent(sse.EventNotificationCreated, sse.NotificationEventData{
		ID:      n.ID,
		Type:    string(n.Type),
		Title:   n.Title,
		Message: n.Message,
	}))

	return backend.Row{"id": n.ID}, nil
}

func stringArg(args backend.Row, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Send invokes create_book_notification for draft and returns the new ID.
func (s *NotificationService) Send(ctx context.Context, draft domain.NotificationDraft) (string, error) {
	out, err := s.client.Invoke(ctx, backend.ProcCreateBookNotification, backend.Row{
		argUserID:  draft.UserID,
		argType:    string(draft.Type),
		argTitle:   draft.Title,
		argMessage: draft.Message,
	})
	if err != nil {
		return "", fmt.Errorf("create notification: %w", err)
	}

	notificationID, _ := out["id"].(string)
	s.logger.Debug("notification sent",
		slog.String("notification_id", notificationID),
		slog.String("user_id", draft.UserID),
		slog.String("type", string(draft.Type)))
	return notificationID, nil
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > DefaultNotificationLimit {
		limit = DefaultNotificationLimit
	}
	return s.store.ListNotifications(ctx, userID, limit)
}

// UnreadCount returns how many of the user's notifications are unread.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkRead marks one notification read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if err := s.store.MarkRead(ctx, userID, notificationID); err != nil {
		return asNotFound(err, "notification not found")
	}
	s.emitter.EmitToUser(userID, sse.NewEvent(sse.EventNotificationRead, map[string]string{"id": notificationID}))
	return nil
}

// MarkAllRead marks every notification read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to mark notifications read")
	}
	if n > 0 {
		s.emitter.EmitToUser(userID, sse.NewEvent(sse.EventNotificationRead, map[string]int64{"count": n}))
	}
	return n, nil
}
