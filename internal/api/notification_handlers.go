package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookbridge/bookbridge-server/internal/domain"
)

func (s *Server) registerNotificationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listNotifications",
		Method:      http.MethodGet,
		Path:        "/api/v1/notifications",
		Summary:     "List notifications",
		Description: "Returns the caller's notifications, newest first, with the unread count",
		Tags:        []string{"Notifications"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListNotifications)

	huma.Register(s.api, huma.Operation{
		OperationID:   "markNotificationRead",
		Method:        http.MethodPost,
		Path:          "/api/v1/notifications/{id}/read",
		Summary:       "Mark notification read",
		Tags:          []string{"Notifications"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleMarkNotificationRead)

	huma.Register(s.api, huma.Operation{
		OperationID: "markAllNotificationsRead",
		Method:      http.MethodPost,
		Path:        "/api/v1/notifications/read-all",
		Summary:     "Mark all notifications read",
		Tags:        []string{"Notifications"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMarkAllNotificationsRead)
}

// ListNotificationsInput holds the notification list parameters.
type ListNotificationsInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
	Limit         int    `query:"limit" default:"50" minimum:"1" maximum:"50" doc:"Maximum notifications to return"`
}

// NotificationsResponse lists notifications.
type NotificationsResponse struct {
	Notifications []*domain.Notification `json:"notifications" doc:"Notifications, newest first"`
	Unread        int                    `json:"unread" doc:"Total unread notifications"`
}

// NotificationsOutput wraps the notification list for Huma.
type NotificationsOutput struct {
	Body NotificationsResponse
}

// NotificationIDInput identifies a notification.
type NotificationIDInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
	ID            string `path:"id" doc:"Notification ID"`
}

// MarkAllReadResponse reports how many notifications changed.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated" doc:"Notifications marked read"`
}

// MarkAllReadOutput wraps the mark-all result for Huma.
type MarkAllReadOutput struct {
	Body MarkAllReadResponse
}

func (s *Server) handleListNotifications(ctx context.Context, input *ListNotificationsInput) (*NotificationsOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	list, err := s.services.Notification.List(ctx, identity.UserID, input.Limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.services.Notification.UnreadCount(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	return &NotificationsOutput{Body: NotificationsResponse{
		Notifications: list,
		Unread:        unread,
	}}, nil
}

func (s *Server) handleMarkNotificationRead(ctx context.Context, input *NotificationIDInput) (*struct{}, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Notification.MarkRead(ctx, identity.UserID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleMarkAllNotificationsRead(ctx context.Context, input *AuthenticatedInput) (*MarkAllReadOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	n, err := s.services.Notification.MarkAllRead(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	return &MarkAllReadOutput{Body: MarkAllReadResponse{Updated: n}}, nil
}
