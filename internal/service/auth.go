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
	"github.com/bookbridge/bookbridge-server/internal/normalize"
	"github.com/bookbridge/bookbridge-server/internal/store"
	"github.com/bookbridge/bookbridge-server/internal/validation"
)

// AuthService handles sign-up, sign-in, token refresh and sign-out, and
// publishes auth state changes. Session bookkeeping is delegated to
// SessionService.
type AuthService struct {
	store          *store.Store
	tokenService   *auth.TokenService
	sessionService *SessionService
	validator      *validation.Validator
	hub            *AuthStateHub
	logger         *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	st *store.Store,
	tokenService *auth.TokenService,
	sessionService *SessionService,
	validator *validation.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:          st,
		tokenService:   tokenService,
		sessionService: sessionService,
		validator:      validator,
		hub:            NewAuthStateHub(),
		logger:         orDiscard(logger),
	}
}

// SignUpRequest contains new account data.
type SignUpRequest struct {
	Email    string     `json:"email" validate:"required,email,max=254"`
	Password string     `json:"password" validate:"required,min=8,max=1024"`
	FullName string     `json:"full_name" validate:"max=100"`
	Client   ClientInfo `json:"-"`
}

// SignInRequest contains user credentials.
type SignInRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required"`
	Client   ClientInfo `json:"-"`
}

// RefreshRequest contains the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User *domain.User `json:"user"`
	SessionResponse
}

// Identity is the authenticated caller behind an access token.
type Identity struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
}

// SignUp creates an account with an empty-contact profile and signs it in.
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		Entity:       domain.Entity{ID: userID},
		Email:        domain.NormalizeEmail(req.Email),
		PasswordHash: passwordHash,
	}
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, backend.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, err
	}

	profile := &domain.Profile{
		ID:        userID,
		FullName:  normalize.Text(req.FullName),
		UpdatedAt: user.CreatedAt,
	}
	if err := s.store.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", slog.String("user_id", userID), slog.String("email", user.Email))

	return s.openSession(ctx, user, req.Client)
}

// SignIn authenticates credentials and opens a new session.
func (s *AuthService) SignIn(ctx context.Context, req SignInRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, err
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	now := s.sessionService.now()
	if auth.DefaultPasswordParams.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, req.Password, now)
	}
	if err := s.store.RecordLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record login", slog.String("user_id", user.ID), slog.String("error", err.Error()))
	} else {
		user.LastLoginAt = &now
	}

	return s.openSession(ctx, user, req.Client)
}

// rehash upgrades a hash made with older cost settings. Failures leave the
// old hash in place.
func (s *AuthService) rehash(ctx context.Context, user *domain.User, password string, now time.Time) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = s.store.UpdatePasswordHash(ctx, user.ID, hash, now)
	}
	if err != nil {
		s.logger.Warn("failed to upgrade password hash", slog.String("user_id", user.ID), slog.String("error", err.Error()))
		return
	}
	user.PasswordHash = hash
	s.logger.Info("password hash upgraded", slog.String("user_id", user.ID))
}

func (s *AuthService) openSession(ctx context.Context, user *domain.User, client ClientInfo) (*AuthResponse, error) {
	resp, err := s.sessionService.CreateSession(ctx, user, client)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.hub.Publish(ctx, AuthEvent{
		Type:      AuthSignedIn,
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: resp.SessionID,
		At:        s.sessionService.now(),
	})

	return &AuthResponse{User: user, SessionResponse: *resp}, nil
}

// Refresh rotates a refresh token.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, resp, err := s.sessionService.RefreshSession(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ctx, AuthEvent{
		Type:      AuthTokenRefreshed,
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: resp.SessionID,
		At:        s.sessionService.now(),
	})

	return &AuthResponse{User: user, SessionResponse: *resp}, nil
}

// SignOut ends the caller's session.
func (s *AuthService) SignOut(ctx context.Context, identity *Identity) error {
	if err := s.sessionService.DeleteSession(ctx, identity.SessionID); err != nil {
		return err
	}

	s.hub.Publish(ctx, AuthEvent{
		Type:      AuthSignedOut,
		UserID:    identity.UserID,
		Email:     identity.Email,
		SessionID: identity.SessionID,
		At:        s.sessionService.now(),
	})
	return nil
}

// GetSession resolves an access token to the caller's identity. The token
// must be valid and its session must still be open.
func (s *AuthService) GetSession(ctx context.Context, accessToken string) (*Identity, error) {
	claims, err := s.tokenService.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired access token")
	}

	if _, err := s.sessionService.ValidateSession(ctx, claims.SessionID); err != nil {
		return nil, err
	}

	return &Identity{
		UserID:    claims.UserID,
		Email:     claims.Email,
		SessionID: claims.SessionID,
	}, nil
}

// OnAuthStateChange subscribes handler to sign-in, refresh and sign-out
// events. Call Unsubscribe on the result when the subscriber goes away.
func (s *AuthService) OnAuthStateChange(handler AuthStateHandler) *Subscription {
	return s.hub.Subscribe(handler)
}
