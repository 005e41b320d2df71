package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookbridge/bookbridge-server/internal/service"
)

func (s *Server) registerDonationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listDonations",
		Method:      http.MethodGet,
		Path:        "/api/v1/donations",
		Summary:     "List my donations",
		Description: "Returns the caller's donated books, newest first, with a status badge",
		Tags:        []string{"Donations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListDonations)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteDonation",
		Method:        http.MethodDelete,
		Path:          "/api/v1/donations/{id}",
		Summary:       "Delete a donation",
		Description:   "Removes one of the caller's books. Refused while the book has pending requests.",
		Tags:          []string{"Donations"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteDonation)
}

// DonationsResponse lists the caller's donations.
type DonationsResponse struct {
	Donations []service.DonationItem `json:"donations" doc:"Donated books, newest first"`
}

// DonationsOutput wraps the donations list for Huma.
type DonationsOutput struct {
	Body DonationsResponse
}

// DeleteDonationInput identifies a donation.
type DeleteDonationInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
	ID            string `path:"id" doc:"Book ID"`
}

func (s *Server) handleListDonations(ctx context.Context, input *AuthenticatedInput) (*DonationsOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	items, err := s.services.Donation.List(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	return &DonationsOutput{Body: DonationsResponse{Donations: items}}, nil
}

func (s *Server) handleDeleteDonation(ctx context.Context, input *DeleteDonationInput) (*struct{}, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Donation.Delete(ctx, identity.UserID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
