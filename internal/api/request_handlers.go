package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookbridge/bookbridge-server/internal/domain"
)

func (s *Server) registerRequestRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listIncomingRequests",
		Method:      http.MethodGet,
		Path:        "/api/v1/requests/incoming",
		Summary:     "Incoming requests",
		Description: "Requests other members made for the caller's books, newest first",
		Tags:        []string{"Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleIncomingRequests)

	huma.Register(s.api, huma.Operation{
		OperationID: "listOutgoingRequests",
		Method:      http.MethodGet,
		Path:        "/api/v1/requests/outgoing",
		Summary:     "Outgoing requests",
		Description: "Requests the caller made, newest first",
		Tags:        []string{"Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleOutgoingRequests)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRequest",
		Method:      http.MethodGet,
		Path:        "/api/v1/requests/{id}",
		Summary:     "Get request",
		Description: "Returns a request the caller takes part in",
		Tags:        []string{"Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "acceptRequest",
		Method:      http.MethodPost,
		Path:        "/api/v1/requests/{id}/accept",
		Summary:     "Accept request",
		Description: "Promises the book to the requester. Only the donor may accept.",
		Tags:        []string{"Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAcceptRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "rejectRequest",
		Method:      http.MethodPost,
		Path:        "/api/v1/requests/{id}/reject",
		Summary:     "Reject request",
		Description: "Declines a pending request. Only the donor may reject.",
		Tags:        []string{"Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRejectRequest)
}

// RequestsResponse lists book requests.
type RequestsResponse struct {
	Requests []*domain.BookRequest `json:"requests" doc:"Requests, newest first"`
}

// RequestsOutput wraps a request list for Huma.
type RequestsOutput struct {
	Body RequestsResponse
}

// RequestIDInput identifies a request.
type RequestIDInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
	ID            string `path:"id" doc:"Request ID"`
}

func (s *Server) handleIncomingRequests(ctx context.Context, input *AuthenticatedInput) (*RequestsOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	reqs, err := s.services.Request.Incoming(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	return &RequestsOutput{Body: RequestsResponse{Requests: reqs}}, nil
}

func (s *Server) handleOutgoingRequests(ctx context.Context, input *AuthenticatedInput) (*RequestsOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	reqs, err := s.services.Request.Outgoing(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	return &RequestsOutput{Body: RequestsResponse{Requests: reqs}}, nil
}

func (s *Server) handleGetRequest(ctx context.Context, input *RequestIDInput) (*BookRequestOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	req, err := s.services.Request.Get(ctx, identity.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookRequestOutput{Body: req}, nil
}

func (s *Server) handleAcceptRequest(ctx context.Context, input *RequestIDInput) (*BookRequestOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	req, err := s.services.Request.Accept(ctx, identity.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookRequestOutput{Body: req}, nil
}

func (s *Server) handleRejectRequest(ctx context.Context, input *RequestIDInput) (*BookRequestOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	req, err := s.services.Request.Reject(ctx, identity.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookRequestOutput{Body: req}, nil
}
