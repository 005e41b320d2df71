package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookbridge/bookbridge-server/internal/domain"
	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
	"github.com/bookbridge/bookbridge-server/internal/http/response"
	"github.com/bookbridge/bookbridge-server/internal/service"
)

func (s *Server) registerNavRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getNavState",
		Method:      http.MethodGet,
		Path:        "/api/v1/nav",
		Summary:     "Navigation state",
		Description: "Returns the navigation bar for the caller: pages, display name, unread notifications and new incoming requests. Without a token it returns the signed-out bar.",
		Tags:        []string{"Navigation"},
	}, s.handleGetNavState)

	huma.Register(s.api, huma.Operation{
		OperationID: "visitPage",
		Method:      http.MethodPost,
		Path:        "/api/v1/nav/visit",
		Summary:     "Visit page",
		Description: "Records navigation to a page. Visiting requests clears the new-requests badge.",
		Tags:        []string{"Navigation"},
	}, s.handleVisitPage)

	// Event streams bypass huma so the envelope transformer never touches them.
	s.router.Get("/api/v1/nav/stream", s.handleNavStream)
}

// NavStateInput optionally carries a bearer token.
type NavStateInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token (optional)"`
}

// NavStateOutput wraps the navigation state for Huma.
type NavStateOutput struct {
	Body service.NavState
}

// VisitPageRequest is the request body for page visits.
type VisitPageRequest struct {
	Page domain.Page `json:"page" doc:"Page identifier, e.g. requests"`
}

// VisitPageInput wraps the visit for Huma.
type VisitPageInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
	Body          VisitPageRequest
}

func (s *Server) handleGetNavState(ctx context.Context, input *NavStateInput) (*NavStateOutput, error) {
	identity := s.optionalIdentity(ctx, input.Authorization)
	if identity == nil {
		return &NavStateOutput{Body: service.SignedOutState()}, nil
	}
	return &NavStateOutput{Body: s.services.Navigation.State(ctx, *identity)}, nil
}

func (s *Server) handleVisitPage(ctx context.Context, input *VisitPageInput) (*NavStateOutput, error) {
	page := input.Body.Page
	if !page.Valid() {
		return nil, domainerrors.Validation("unknown page " + string(page))
	}

	if input.Authorization == "" {
		if page.RequiresSignIn() {
			return nil, domainerrors.Unauthorized("Sign in to open this page.")
		}
		state := service.SignedOutState()
		state.CurrentPage = page
		return &NavStateOutput{Body: state}, nil
	}

	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	state, err := s.services.Navigation.VisitPage(ctx, *identity, page)
	if err != nil {
		return nil, err
	}
	return &NavStateOutput{Body: state}, nil
}

// handleNavStream serves the caller's navigation events. Browsers cannot set
// headers on an EventSource, so the token may also come from access_token.
func (s *Server) handleNavStream(w http.ResponseWriter, r *http.Request) {
	if s.navStream == nil {
		http.Error(w, "Streaming disabled", http.StatusServiceUnavailable)
		return
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("access_token"); token != "" {
			authHeader = "Bearer " + token
		}
	}

	identity, err := s.authenticateRequest(r.Context(), authHeader)
	if err != nil {
		s.writeStreamError(w, err)
		return
	}

	s.navStream.Serve(w, r, identity.UserID, identity.SessionID)
}

// writeStreamError renders an authentication failure in the envelope format.
func (s *Server) writeStreamError(w http.ResponseWriter, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		response.Error(w, apiErr.GetStatus(), domainerrors.Code(apiErr.Code), apiErr.Message, s.logger)
		return
	}
	response.HandleError(w, err, s.logger)
}
