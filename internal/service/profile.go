package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/domain"
	"github.com/bookbridge/bookbridge-server/internal/normalize"
	"github.com/bookbridge/bookbridge-server/internal/store"
	"github.com/bookbridge/bookbridge-server/internal/validation"
)

// ProfileService reads and edits user profiles.
type ProfileService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(st *store.Store, validator *validation.Validator, logger *slog.Logger) *ProfileService {
	return &ProfileService{store: st, validator: validator, logger: orDiscard(logger)}
}

// UpdateProfileRequest edits the caller's profile. Nil fields are left alone.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=100"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,phone"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// Get returns the user's profile. A user without a profile row gets an
// empty one.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return &domain.Profile{ID: userID}, nil
		}
		return nil, err
	}
	return p, nil
}

// Update applies req to the caller's profile and returns the result.
func (s *ProfileService) Update(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.Profile, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if req.FullName != nil {
		if err := s.ensureProfile(ctx, userID); err != nil {
			return nil, err
		}
		if err := s.store.UpdateProfileName(ctx, userID, normalize.Text(*req.FullName)); err != nil {
			return nil, err
		}
	}

	if req.Phone != nil || req.Address != nil {
		current, err := s.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		c := current.Contact()
		if req.Phone != nil {
			c.Phone = *req.Phone
		}
		if req.Address != nil {
			c.Address = *req.Address
		}
		if err := s.SaveContact(ctx, userID, c); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, userID)
}

func (s *ProfileService) ensureProfile(ctx context.Context, userID string) error {
	_, err := s.store.GetProfile(ctx, userID)
	if !errors.Is(err, backend.ErrNotFound) {
		return err
	}
	err = s.store.CreateProfile(ctx, &domain.Profile{ID: userID, UpdatedAt: utcNow()})
	if errors.Is(err, backend.ErrAlreadyExists) {
		return nil
	}
	return err
}

// SaveContact normalizes and overwrites the user's phone and address.
func (s *ProfileService) SaveContact(ctx context.Context, userID string, c domain.Contact) error {
	phone, address := normalize.Contact(c.Phone, c.Address)
	return s.store.SaveContact(ctx, userID, domain.Contact{Phone: phone, Address: address})
}

// Prefill returns the contact to pre-populate the exchange form with.
// Lookup failures are logged and yield an empty contact.
func (s *ProfileService) Prefill(ctx context.Context, userID string) domain.Contact {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, backend.ErrNotFound) {
			s.logger.Warn("profile prefill failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		}
		return domain.Contact{}
	}
	return p.Contact()
}

// DisplayName returns the user's full name, their email when the name is
// blank, or "Someone" when neither can be read.
func (s *ProfileService) DisplayName(ctx context.Context, userID string) string {
	fallback := domain.UnknownSender
	if u, err := s.store.GetUser(ctx, userID); err == nil {
		fallback = u.Email
	} else if !errors.Is(err, backend.ErrNotFound) {
		s.logger.Warn("user lookup failed", slog.String("user_id", userID), slog.String("error", err.Error()))
	}

	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, backend.ErrNotFound) {
			s.logger.Warn("profile lookup failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		}
		return fallback
	}
	return p.DisplayName(fallback)
}

// SenderName is the name shown in notifications the user triggers: the full
// name, or "Someone" when it is blank or unreadable.
func (s *ProfileService) SenderName(ctx context.Context, userID string) string {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, backend.ErrNotFound) {
			s.logger.Warn("profile lookup failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		}
		return domain.UnknownSender
	}
	return p.DisplayName(domain.UnknownSender)
}
