package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookbridge/bookbridge-server/internal/domain"
	"github.com/bookbridge/bookbridge-server/internal/service"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/profile",
		Summary:     "Get profile",
		Description: "Returns the caller's profile, including the contact details last shared",
		Tags:        []string{"Profile"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProfile",
		Method:      http.MethodPatch,
		Path:        "/api/v1/profile",
		Summary:     "Update profile",
		Description: "Updates the given profile fields; omitted fields are left unchanged",
		Tags:        []string{"Profile"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateProfile)
}

// ProfileOutput wraps a profile for Huma.
type ProfileOutput struct {
	Body *domain.Profile
}

// UpdateProfileRequest is the request body for profile edits.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty" doc:"Full name"`
	Phone    *string `json:"phone,omitempty" doc:"Phone number"`
	Address  *string `json:"address,omitempty" doc:"Postal address"`
}

// UpdateProfileInput wraps the update request for Huma.
type UpdateProfileInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
	Body          UpdateProfileRequest
}

func (s *Server) handleGetProfile(ctx context.Context, input *AuthenticatedInput) (*ProfileOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	profile, err := s.services.Profile.Get(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: profile}, nil
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *UpdateProfileInput) (*ProfileOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	profile, err := s.services.Profile.Update(ctx, identity.UserID, service.UpdateProfileRequest{
		FullName: input.Body.FullName,
		Phone:    input.Body.Phone,
		Address:  input.Body.Address,
	})
	if err != nil {
		return nil, err
	}

	// The navigation bar shows the full name.
	s.services.Navigation.Refresh(ctx, identity.UserID)

	return &ProfileOutput{Body: profile}, nil
}
