package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/bookbridge/bookbridge-server/internal/auth"
	"github.com/bookbridge/bookbridge-server/internal/backend/sqlite"
	"github.com/bookbridge/bookbridge-server/internal/ratelimit"
	"github.com/bookbridge/bookbridge-server/internal/search"
	"github.com/bookbridge/bookbridge-server/internal/service"
	"github.com/bookbridge/bookbridge-server/internal/sse"
	"github.com/bookbridge/bookbridge-server/internal/store"
	"github.com/bookbridge/bookbridge-server/internal/validation"
	"github.com/bookbridge/bookbridge-server/internal/watermark"
)

// testEnvelope mirrors the success envelope with a typed payload.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// testErrorEnvelope mirrors the coded error envelope.
type testErrorEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

type testServer struct {
	*Server
	api        humatest.TestAPI
	sseManager *sse.Manager
	watermarks *watermark.Store
}

type serverOption func(*testServerConfig)

type testServerConfig struct {
	signInRate  float64
	signInBurst int
}

func withSignInLimit(rps float64, burst int) serverOption {
	return func(c *testServerConfig) {
		c.signInRate = rps
		c.signInBurst = burst
	}
}

// setupTestServer wires the full stack over a temporary database.
func setupTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	cfg := testServerConfig{signInRate: 1000, signInBurst: 1000}
	for _, o := range opts {
		o(&cfg)
	}

	logger := slog.New(slog.DiscardHandler)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	wm, err := watermark.Open("", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = wm.Close() })

	index, err := search.NewSearchIndex(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	tokens, err := auth.NewTokenService(make([]byte, 32), 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	sseManager := sse.NewManager(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go sseManager.Start(ctx)
	t.Cleanup(cancel)

	st := store.New(db, logger)
	v := validation.New()

	sessions := service.NewSessionService(st, tokens, logger)
	authService := service.NewAuthService(st, tokens, sessions, v, logger)
	profiles := service.NewProfileService(st, v, logger)
	notifications := service.NewNotificationService(db, st, sseManager, logger)
	notifications.Register(db)
	catalog := service.NewCatalogService(st, index, v, logger)
	requests := service.NewRequestService(st, catalog, profiles, notifications, v, sseManager, logger)
	exchange := service.NewExchangeService(st, profiles, notifications, sseManager, logger)
	exchange.OnComplete(requests.CompleteExchange)
	nav := service.NewNavigationService(st, wm, sseManager, logger)
	nav.Attach(authService)
	t.Cleanup(nav.Detach)

	services := &Services{
		Auth:         authService,
		Profile:      profiles,
		Catalog:      catalog,
		Donation:     service.NewDonationService(st, catalog, logger),
		Request:      requests,
		Exchange:     exchange,
		Notification: notifications,
		Navigation:   nav,
		Search:       index,
	}

	navStream := sse.NewHandler(sseManager, func(ctx context.Context, userID string) (any, error) {
		return nav.Snapshot(ctx, userID)
	}, sse.StreamConfig{}, logger)

	limiter := ratelimit.New(cfg.signInRate, cfg.signInBurst, 0)
	t.Cleanup(limiter.Stop)

	s := NewServer(st, services, sseManager, navStream, limiter, Options{
		AllowedOrigins: []string{"http://localhost:5173"},
	}, logger)

	return &testServer{
		Server:     s,
		api:        humatest.Wrap(t, s.api),
		sseManager: sseManager,
		watermarks: wm,
	}
}

// signUp creates an account and returns its access token and user ID.
func (ts *testServer) signUp(t *testing.T, email, fullName string) (token, userID string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"email":     email,
		"password":  "correct horse battery",
		"full_name": fullName,
	})
	require.Equal(t, http.StatusOK, resp.Code, "signup failed: %s", resp.Body.String())

	envelope := decodeEnvelope[AuthResponse](t, resp.Body.Bytes())
	return envelope.Data.AccessToken, envelope.Data.User.ID
}

// donate lists a book as owner and returns its ID.
func (ts *testServer) donate(t *testing.T, token, title string) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/books", bearer(token), map[string]any{
		"title":  title,
		"author": "Frank Herbert",
	})
	require.Equal(t, http.StatusCreated, resp.Code, "donate failed: %s", resp.Body.String())

	var envelope testEnvelope[map[string]any]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return envelope.Data["id"].(string)
}

// acceptedRequest makes Ada donate Dune, Bea request it, and Ada accept.
func (ts *testServer) acceptedRequest(t *testing.T) (adaToken, beaToken, requestID string) {
	t.Helper()

	adaToken, _ = ts.signUp(t, "ada@example.com", "Ada")
	beaToken, _ = ts.signUp(t, "bea@example.com", "Bea")
	bookID := ts.donate(t, adaToken, "Dune")

	resp := ts.api.Post("/api/v1/books/"+bookID+"/requests", bearer(beaToken), map[string]any{})
	require.Equal(t, http.StatusCreated, resp.Code, "request failed: %s", resp.Body.String())
	requestID = decodeEnvelope[map[string]any](t, resp.Body.Bytes()).Data["id"].(string)

	resp = ts.api.Post("/api/v1/requests/"+requestID+"/accept", bearer(adaToken))
	require.Equal(t, http.StatusOK, resp.Code, "accept failed: %s", resp.Body.String())
	return adaToken, beaToken, requestID
}

func bearer(token string) string {
	return "Authorization: Bearer " + token
}

func decodeEnvelope[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var envelope testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &envelope), "body: %s", body)
	return envelope
}

func decodeError(t *testing.T, body []byte) testErrorEnvelope {
	t.Helper()
	var envelope testErrorEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope), "body: %s", body)
	return envelope
}
