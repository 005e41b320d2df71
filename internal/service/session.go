package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/auth"
	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/domain"
	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
	"github.com/bookbridge/bookbridge-server/internal/id"
	"github.com/bookbridge/bookbridge-server/internal/store"
)

// SessionService manages refresh sessions: creation, rotation, revocation
// and expiry.
type SessionService struct {
	store        *store.Store
	tokenService *auth.TokenService
	logger       *slog.Logger
	now          func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(st *store.Store, tokenService *auth.TokenService, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:        st,
		tokenService: tokenService,
		logger:       orDiscard(logger),
		now:          utcNow,
	}
}

// ClientInfo describes where a session was opened from.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// SessionResponse contains the tokens handed to a client.
type SessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	SessionID    string `json:"session_id"`
}

// CreateSession opens a session for user and issues its first token pair.
func (s *SessionService) CreateSession(ctx context.Context, user *domain.User, client ClientInfo) (*SessionResponse, error) {
	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	refreshToken, err := s.tokenService.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &domain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: auth.HashRefreshToken(refreshToken),
		UserAgent:        client.UserAgent,
		IPAddress:        client.IPAddress,
		CreatedAt:        now,
		LastSeenAt:       now,
		ExpiresAt:        now.Add(s.tokenService.RefreshTokenDuration()),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	accessToken, err := s.tokenService.GenerateAccessToken(user, sessionID)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	s.logger.Info("session created",
		slog.String("session_id", sessionID),
		slog.String("user_id", user.ID),
		slog.String("ip_address", client.IPAddress))

	return s.response(accessToken, refreshToken, sessionID), nil
}

// RefreshSession exchanges a refresh token for a new token pair. The old
// refresh token stops working; presenting it again fails.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string) (*domain.User, *SessionResponse, error) {
	oldHash := auth.HashRefreshToken(refreshToken)

	session, err := s.store.GetSessionByRefreshHash(ctx, oldHash)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, nil, domainerrors.Unauthorized("invalid refresh token")
		}
		return nil, nil, err
	}

	now := s.now()
	if session.IsExpired(now) {
		if err := s.store.DeleteSession(ctx, session.ID); err != nil && !errors.Is(err, backend.ErrNotFound) {
			s.logger.Warn("failed to delete expired session",
				slog.String("session_id", session.ID), slog.String("error", err.Error()))
		}
		return nil, nil, domainerrors.TokenExpired("session expired")
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, nil, domainerrors.Unauthorized("user no longer exists")
		}
		return nil, nil, err
	}

	newRefresh, err := s.tokenService.GenerateRefreshToken()
	if err != nil {
		return nil, nil, err
	}

	err = s.store.RotateSession(ctx, session.ID, oldHash, auth.HashRefreshToken(newRefresh),
		now, now.Add(s.tokenService.RefreshTokenDuration()))
	if err != nil {
		if errors.Is(err, store.ErrStaleWrite) {
			return nil, nil, domainerrors.Unauthorized("refresh token already used")
		}
		return nil, nil, err
	}

	accessToken, err := s.tokenService.GenerateAccessToken(user, session.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("generate access token: %w", err)
	}

	return user, s.response(accessToken, newRefresh, session.ID), nil
}

// ValidateSession confirms a session is still open. Access tokens are
// stateless, so this is what makes sign-out take effect immediately.
func (s *SessionService) ValidateSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, domainerrors.Unauthorized("session has ended")
		}
		return nil, err
	}
	if session.IsExpired(s.now()) {
		return nil, domainerrors.TokenExpired("session expired")
	}
	return session, nil
}

// DeleteSession revokes a session. Deleting an already-deleted session is
// not an error.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, backend.ErrNotFound) {
		return err
	}
	s.logger.Info("session deleted", slog.String("session_id", sessionID))
	return nil
}

// DeleteExpiredSessions removes every session past its expiry.
func (s *SessionService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", slog.Int64("count", n))
	}
	return n, nil
}

// RunCleanup deletes expired sessions every interval until ctx is done.
func (s *SessionService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.DeleteExpiredSessions(ctx); err != nil {
				s.logger.Warn("session cleanup failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *SessionService) response(accessToken, refreshToken, sessionID string) *SessionResponse {
	return &SessionResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenService.AccessTokenDuration().Seconds()),
		SessionID:    sessionID,
	}
}
