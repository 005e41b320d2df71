package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/bookbridge/bookbridge-server/internal/api"
	"github.com/bookbridge/bookbridge-server/internal/config"
	"github.com/bookbridge/bookbridge-server/internal/logger"
	"github.com/bookbridge/bookbridge-server/internal/ratelimit"
	"github.com/bookbridge/bookbridge-server/internal/service"
	"github.com/bookbridge/bookbridge-server/internal/sse"
	"github.com/bookbridge/bookbridge-server/internal/store"
)

// SignInLimiterHandle wraps the per-IP sign-in limiter with Shutdownable.
type SignInLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *SignInLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideSignInLimiter provides the sign-in rate limiter.
func ProvideSignInLimiter(i do.Injector) (*SignInLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	limiter := ratelimit.New(cfg.Auth.SignInRate, cfg.Auth.SignInBurst, 0)
	return &SignInLimiterHandle{KeyedRateLimiter: limiter}, nil
}

// ProvideNavStream provides the navigation event stream handler.
func ProvideNavStream(i do.Injector) (*sse.Handler, error) {
	cfg := do.MustInvoke[*config.Config](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	navHandle := do.MustInvoke[*NavigationServiceHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	snapshot := func(ctx context.Context, userID string) (any, error) {
		return navHandle.Snapshot(ctx, userID)
	}

	return sse.NewHandler(sseHandle.Manager, snapshot, sse.StreamConfig{
		RefreshInterval:   cfg.Navigation.RefreshInterval,
		HeartbeatInterval: cfg.Navigation.HeartbeatInterval,
	}, log.Component("nav-stream")), nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideAPIServer provides the HTTP handler with every route registered.
func ProvideAPIServer(i do.Injector) (*api.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	st := do.MustInvoke[*store.Store](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	navStream := do.MustInvoke[*sse.Handler](i)
	limiter := do.MustInvoke[*SignInLimiterHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	navHandle := do.MustInvoke[*NavigationServiceHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Auth:         do.MustInvoke[*service.AuthService](i),
		Profile:      do.MustInvoke[*service.ProfileService](i),
		Catalog:      do.MustInvoke[*service.CatalogService](i),
		Donation:     do.MustInvoke[*service.DonationService](i),
		Request:      do.MustInvoke[*service.RequestService](i),
		Exchange:     do.MustInvoke[*service.ExchangeService](i),
		Notification: do.MustInvoke[*service.NotificationService](i),
		Navigation:   navHandle.NavigationService,
		Search:       indexHandle.SearchIndex,
	}

	return api.NewServer(st, services, sseHandle.Manager, navStream, limiter.KeyedRateLimiter, api.Options{
		Title:          cfg.App.Name,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestLogging: cfg.App.Environment == "development",
	}, log.Logger), nil
}

// ProvideHTTPServer provides the HTTP server and starts it in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	handler := do.MustInvoke[*api.Server](i)
	log := do.MustInvoke[*logger.Logger](i)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
