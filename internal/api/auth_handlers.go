package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookbridge/bookbridge-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "signUp",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signup",
		Summary:     "Sign up",
		Description: "Creates an account with an empty profile and signs the new user in",
		Tags:        []string{"Authentication"},
	}, s.handleSignUp)

	huma.Register(s.api, huma.Operation{
		OperationID: "signIn",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signin",
		Summary:     "Sign in",
		Description: "Authenticates with email and password and returns access and refresh tokens",
		Tags:        []string{"Authentication"},
	}, s.handleSignIn)

	huma.Register(s.api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/refresh",
		Summary:     "Refresh tokens",
		Description: "Exchanges a refresh token for new tokens. Each refresh token works once.",
		Tags:        []string{"Authentication"},
	}, s.handleRefresh)

	huma.Register(s.api, huma.Operation{
		OperationID: "signOut",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signout",
		Summary:     "Sign out",
		Description: "Ends the current session and closes its navigation streams",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSignOut)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/session",
		Summary:     "Current session",
		Description: "Returns the identity behind the bearer token",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSession)
}

// === DTOs ===

// SignUpRequest is the request body for account creation.
type SignUpRequest struct {
	Email    string `json:"email" doc:"Email address"`
	Password string `json:"password" doc:"Password, at least 8 characters"`
	FullName string `json:"full_name,omitempty" doc:"Full name shown to other members"`
}

// SignUpInput wraps the sign-up request for Huma.
type SignUpInput struct {
	Body SignUpRequest
}

// SignInRequest is the request body for sign-in.
type SignInRequest struct {
	Email    string `json:"email" doc:"Email address"`
	Password string `json:"password" doc:"Password"`
}

// SignInInput wraps the sign-in request for Huma.
type SignInInput struct {
	Body SignInRequest
}

// RefreshRequest is the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" doc:"Refresh token"`
}

// RefreshInput wraps the refresh request for Huma.
type RefreshInput struct {
	Body RefreshRequest
}

// AuthenticatedInput carries only the bearer token.
type AuthenticatedInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
}

// UserResponse contains user information in auth responses.
type UserResponse struct {
	ID          string     `json:"id" doc:"User ID"`
	Email       string     `json:"email" doc:"User email"`
	CreatedAt   time.Time  `json:"created_at" doc:"Creation timestamp"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty" doc:"Last sign-in timestamp"`
}

// AuthResponse contains authentication tokens and user info.
type AuthResponse struct {
	AccessToken  string       `json:"access_token" doc:"PASETO access token"`
	RefreshToken string       `json:"refresh_token" doc:"Refresh token"`
	SessionID    string       `json:"session_id" doc:"Session identifier"`
	TokenType    string       `json:"token_type" doc:"Token type (Bearer)"`
	ExpiresIn    int          `json:"expires_in" doc:"Token expiry in seconds"`
	User         UserResponse `json:"user" doc:"Authenticated user"`
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body AuthResponse
}

// SessionResponse describes the caller's session.
type SessionResponse struct {
	UserID    string `json:"user_id" doc:"User ID"`
	Email     string `json:"email" doc:"User email"`
	SessionID string `json:"session_id" doc:"Session identifier"`
}

// SessionOutput wraps the session response for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleSignUp(ctx context.Context, input *SignUpInput) (*AuthOutput, error) {
	if err := s.checkSignInRate(ctx); err != nil {
		return nil, err
	}

	resp, err := s.services.Auth.SignUp(ctx, service.SignUpRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
		FullName: input.Body.FullName,
		Client:   clientInfo(ctx),
	})
	if err != nil {
		return nil, err
	}

	return &AuthOutput{Body: mapAuthResponse(resp)}, nil
}

func (s *Server) handleSignIn(ctx context.Context, input *SignInInput) (*AuthOutput, error) {
	if err := s.checkSignInRate(ctx); err != nil {
		return nil, err
	}

	resp, err := s.services.Auth.SignIn(ctx, service.SignInRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
		Client:   clientInfo(ctx),
	})
	if err != nil {
		return nil, err
	}

	return &AuthOutput{Body: mapAuthResponse(resp)}, nil
}

func (s *Server) handleRefresh(ctx context.Context, input *RefreshInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Refresh(ctx, service.RefreshRequest{
		RefreshToken: input.Body.RefreshToken,
	})
	if err != nil {
		return nil, err
	}

	return &AuthOutput{Body: mapAuthResponse(resp)}, nil
}

func (s *Server) handleSignOut(ctx context.Context, input *AuthenticatedInput) (*MessageOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Auth.SignOut(ctx, identity); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Signed out"}}, nil
}

func (s *Server) handleGetSession(ctx context.Context, input *AuthenticatedInput) (*SessionOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	return &SessionOutput{Body: SessionResponse{
		UserID:    identity.UserID,
		Email:     identity.Email,
		SessionID: identity.SessionID,
	}}, nil
}

// === Helpers ===

func mapAuthResponse(resp *service.AuthResponse) AuthResponse {
	return AuthResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		SessionID:    resp.SessionID,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		User: UserResponse{
			ID:          resp.User.ID,
			Email:       resp.User.Email,
			CreatedAt:   resp.User.CreatedAt,
			LastLoginAt: resp.User.LastLoginAt,
		},
	}
}
