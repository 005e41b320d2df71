package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookbridge/bookbridge-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// clientInfoKey is the context key for the caller's user agent and address.
const clientInfoKey ctxKey = "clientInfo"

// clientInfoMiddleware records the caller's user agent and IP so handlers can
// attach them to new sessions and key the sign-in limiter.
func clientInfoMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := service.ClientInfo{
			UserAgent: r.UserAgent(),
			IPAddress: getClientIP(r),
		}
		ctx := context.WithValue(r.Context(), clientInfoKey, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientInfo returns the caller info recorded by clientInfoMiddleware.
func clientInfo(ctx context.Context) service.ClientInfo {
	info, _ := ctx.Value(clientInfoKey).(service.ClientInfo)
	return info
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", huma.Error401Unauthorized("Invalid authorization header format")
	}
	return parts[1], nil
}

// authenticateRequest validates the Authorization header and returns the
// caller's identity.
func (s *Server) authenticateRequest(ctx context.Context, authHeader string) (*service.Identity, error) {
	token, err := bearerToken(authHeader)
	if err != nil {
		return nil, err
	}
	return s.services.Auth.GetSession(ctx, token)
}

// optionalIdentity authenticates when a header is present. Public endpoints
// use it to personalize responses without requiring sign-in.
func (s *Server) optionalIdentity(ctx context.Context, authHeader string) *service.Identity {
	if authHeader == "" {
		return nil
	}
	identity, err := s.authenticateRequest(ctx, authHeader)
	if err != nil {
		return nil
	}
	return identity
}
