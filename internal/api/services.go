package api

import (
	"github.com/bookbridge/bookbridge-server/internal/search"
	"github.com/bookbridge/bookbridge-server/internal/service"
)

// Services groups all business logic services used by the API server.
type Services struct {
	Auth         *service.AuthService
	Profile      *service.ProfileService
	Catalog      *service.CatalogService
	Donation     *service.DonationService
	Request      *service.RequestService
	Exchange     *service.ExchangeService
	Notification *service.NotificationService
	Navigation   *service.NavigationService
	Search       *search.SearchIndex // nil when search is disabled
}
