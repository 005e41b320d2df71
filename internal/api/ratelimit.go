package api

import (
	"context"
	"net"
	"net/http"
	"strings"

	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
)

// checkSignInRate refuses the attempt when the caller's address has used up
// its sign-in budget. A nil limiter allows everything.
func (s *Server) checkSignInRate(ctx context.Context) error {
	if s.signInLimiter == nil {
		return nil
	}
	ip := clientInfo(ctx).IPAddress
	if s.signInLimiter.Allow(ip) {
		return nil
	}
	s.logger.Warn("Rate limit exceeded", "ip", ip, "scope", "signin")
	return domainerrors.RateLimited("Too many attempts. Please try again later.")
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func getClientIP(r *http.Request) string {
	// X-Forwarded-For may carry a chain; the first entry is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
