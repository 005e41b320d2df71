package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookbridge/bookbridge-server/internal/domain"
	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
	"github.com/bookbridge/bookbridge-server/internal/service"
)

func (s *Server) registerExchangeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "openExchange",
		Method:      http.MethodGet,
		Path:        "/api/v1/requests/{id}/exchange",
		Summary:     "Open contact exchange",
		Description: "Returns the exchange dialog for the caller: the view to show, the prefilled contact form, and the other side's details once both have shared.",
		Tags:        []string{"Exchange"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleOpenExchange)

	huma.Register(s.api, huma.Operation{
		OperationID: "submitContact",
		Method:      http.MethodPost,
		Path:        "/api/v1/requests/{id}/exchange",
		Summary:     "Share contact details",
		Description: "Shares the caller's phone and address with the other participant. Both fields are required. The exchange completes when both sides have shared.",
		Tags:        []string{"Exchange"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSubmitContact)
}

// SubmitContactRequest is the request body for sharing contact details.
type SubmitContactRequest struct {
	Role    domain.Role `json:"role" enum:"donor,requester" doc:"The caller's role in the request"`
	Phone   string      `json:"phone,omitempty" doc:"Phone number"`
	Address string      `json:"address,omitempty" doc:"Postal address"`
}

// SubmitContactInput wraps the submission for Huma.
type SubmitContactInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
	ID            string `path:"id" doc:"Request ID"`
	Body          SubmitContactRequest
}

// ExchangeDialogOutput wraps the dialog for Huma.
type ExchangeDialogOutput struct {
	Body *service.ExchangeDialog
}

// SubmitContactOutput wraps the submission result for Huma.
type SubmitContactOutput struct {
	Body *service.SubmitResult
}

func (s *Server) handleOpenExchange(ctx context.Context, input *RequestIDInput) (*ExchangeDialogOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	dialog, err := s.services.Exchange.Open(ctx, identity.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &ExchangeDialogOutput{Body: dialog}, nil
}

func (s *Server) handleSubmitContact(ctx context.Context, input *SubmitContactInput) (*SubmitContactOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	sub, err := domain.NewContactSubmission(input.Body.Role, domain.Contact{
		Phone:   input.Body.Phone,
		Address: input.Body.Address,
	})
	if err != nil {
		return nil, domainerrors.Validation("role must be donor or requester")
	}

	result, err := s.services.Exchange.Submit(ctx, identity.UserID, input.ID, sub)
	if err != nil {
		return nil, err
	}
	return &SubmitContactOutput{Body: result}, nil
}
