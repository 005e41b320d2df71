// Package di provides dependency injection configuration for the BookBridge server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/bookbridge/bookbridge-server/internal/api"
	"github.com/bookbridge/bookbridge-server/internal/auth"
	"github.com/bookbridge/bookbridge-server/internal/config"
	"github.com/bookbridge/bookbridge-server/internal/di/providers"
	"github.com/bookbridge/bookbridge-server/internal/logger"
	"github.com/bookbridge/bookbridge-server/internal/service"
	"github.com/bookbridge/bookbridge-server/internal/sse"
	"github.com/bookbridge/bookbridge-server/internal/store"
	"github.com/bookbridge/bookbridge-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()
	RegisterCore(injector)

	// Workers
	do.Provide(injector, providers.ProvideSessionCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideSignInLimiter)
	do.Provide(injector, providers.ProvideNavStream)
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// RegisterCore registers the providers shared by the server and the admin
// CLI: configuration, storage and business services.
func RegisterCore(injector do.Injector) {
	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideBackend)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideWatermarks)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideProfileService)
	do.Provide(injector, providers.ProvideNotificationService)
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideDonationService)
	do.Provide(injector, providers.ProvideRequestService)
	do.Provide(injector, providers.ProvideExchangeService)
	do.Provide(injector, providers.ProvideNavigationService)
}

// Bootstrap initializes all services and returns once the HTTP server is
// listening in the background.
func Bootstrap(injector *do.RootScope) error {
	if err := BootstrapCore(injector); err != nil {
		return err
	}

	// Workers
	_ = do.MustInvoke[*providers.SessionCleanupJob](injector)

	// Server
	_ = do.MustInvoke[*providers.SignInLimiterHandle](injector)
	_ = do.MustInvoke[*sse.Handler](injector)
	_ = do.MustInvoke[*api.Server](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	providers.TriggerCatalogReindex(injector)

	return nil
}

// BootstrapCore initializes the shared providers without starting the
// server or background workers.
func BootstrapCore(injector do.Injector) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	if _, err := do.Invoke[*store.Store](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.WatermarkHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*auth.TokenService](injector); err != nil {
		return err
	}

	// Business services
	_ = do.MustInvoke[*service.SessionService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.ProfileService](injector)
	_ = do.MustInvoke[*service.NotificationService](injector)
	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*service.DonationService](injector)
	_ = do.MustInvoke[*service.RequestService](injector)
	_ = do.MustInvoke[*service.ExchangeService](injector)
	_ = do.MustInvoke[*providers.NavigationServiceHandle](injector)

	return nil
}
