package providers

import (
	"github.com/samber/do/v2"

	"github.com/bookbridge/bookbridge-server/internal/auth"
	"github.com/bookbridge/bookbridge-server/internal/logger"
	"github.com/bookbridge/bookbridge-server/internal/service"
	"github.com/bookbridge/bookbridge-server/internal/store"
	"github.com/bookbridge/bookbridge-server/internal/validation"
)

// ProvideValidator provides the shared request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideSessionService provides the session management service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	st := do.MustInvoke[*store.Store](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(st, tokenService, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	st := do.MustInvoke[*store.Store](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(st, tokenService, sessionService, v, log.Logger), nil
}

// ProvideProfileService provides the profile service.
func ProvideProfileService(i do.Injector) (*service.ProfileService, error) {
	st := do.MustInvoke[*store.Store](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProfileService(st, v, log.Logger), nil
}

// ProvideNotificationService provides the notification service and registers
// its create_book_notification procedure on the backend.
func ProvideNotificationService(i do.Injector) (*service.NotificationService, error) {
	backendHandle := do.MustInvoke[*BackendHandle](i)
	st := do.MustInvoke[*store.Store](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewNotificationService(backendHandle.Client, st, sseHandle.Manager, log.Logger)
	svc.Register(backendHandle.Client)
	return svc, nil
}

// ProvideCatalogService provides the catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	st := do.MustInvoke[*store.Store](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(st, indexHandle.SearchIndex, v, log.Logger), nil
}

// ProvideDonationService provides the donations list service.
func ProvideDonationService(i do.Injector) (*service.DonationService, error) {
	st := do.MustInvoke[*store.Store](i)
	catalog := do.MustInvoke[*service.CatalogService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewDonationService(st, catalog, log.Logger), nil
}

// ProvideRequestService provides the book request service.
func ProvideRequestService(i do.Injector) (*service.RequestService, error) {
	st := do.MustInvoke[*store.Store](i)
	catalog := do.MustInvoke[*service.CatalogService](i)
	profiles := do.MustInvoke[*service.ProfileService](i)
	notifications := do.MustInvoke[*service.NotificationService](i)
	v := do.MustInvoke[*validation.Validator](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRequestService(st, catalog, profiles, notifications, v, sseHandle.Manager, log.Logger), nil
}

// ProvideExchangeService provides the contact exchange service. Completing an
// exchange marks the request and book as donated.
func ProvideExchangeService(i do.Injector) (*service.ExchangeService, error) {
	st := do.MustInvoke[*store.Store](i)
	profiles := do.MustInvoke[*service.ProfileService](i)
	notifications := do.MustInvoke[*service.NotificationService](i)
	requests := do.MustInvoke[*service.RequestService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewExchangeService(st, profiles, notifications, sseHandle.Manager, log.Logger)
	svc.OnComplete(requests.CompleteExchange)
	return svc, nil
}

// NavigationServiceHandle detaches the navigation service from auth events
// on shutdown.
type NavigationServiceHandle struct {
	*service.NavigationService
}

// Shutdown implements do.Shutdownable.
func (h *NavigationServiceHandle) Shutdown() error {
	h.Detach()
	return nil
}

// ProvideNavigationService provides the navigation service, subscribed to
// auth state changes.
func ProvideNavigationService(i do.Injector) (*NavigationServiceHandle, error) {
	st := do.MustInvoke[*store.Store](i)
	wmHandle := do.MustInvoke[*WatermarkHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	authService := do.MustInvoke[*service.AuthService](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewNavigationService(st, wmHandle.Store, sseHandle.Manager, log.Component("navigation"))
	svc.Attach(authService)
	return &NavigationServiceHandle{NavigationService: svc}, nil
}
