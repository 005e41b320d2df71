package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/domain"
)

type profileRow struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r profileRow) toDomain() *domain.Profile {
	return &domain.Profile{
		ID:        r.ID,
		FullName:  r.FullName,
		Phone:     r.Phone,
		Address:   r.Address,
		UpdatedAt: r.UpdatedAt,
	}
}

// CreateProfile inserts a profile row for a user.
func (s *Store) CreateProfile(ctx context.Context, p *domain.Profile) error {
	err := s.client.Insert(ctx, backend.TableProfiles, backend.Row{
		"id":         p.ID,
		"full_name":  p.FullName,
		"phone":      p.Phone,
		"address":    p.Address,
		"updated_at": p.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// GetProfile returns a user's profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	row, err := backend.SelectOne[profileRow](ctx, s.client, backend.TableProfiles, backend.Eq("id", userID))
	if err != nil {
		return nil, notFound(err, ErrProfileNotFound)
	}
	return row.toDomain(), nil
}

// UpdateProfileName sets the display name.
func (s *Store) UpdateProfileName(ctx context.Context, userID, fullName string) error {
	return s.patchProfile(ctx, userID, backend.Row{"full_name": fullName})
}

// SaveContact overwrites the user's phone and address. A missing profile row
// is created so the write is never silently dropped.
func (s *Store) SaveContact(ctx context.Context, userID string, c domain.Contact) error {
	err := s.patchProfile(ctx, userID, backend.Row{"phone": c.Phone, "address": c.Address})
	if !errors.Is(err, ErrProfileNotFound) {
		return err
	}

	err = s.CreateProfile(ctx, &domain.Profile{
		ID:        userID,
		Phone:     c.Phone,
		Address:   c.Address,
		UpdatedAt: time.Now().UTC(),
	})
	if errors.Is(err, backend.ErrAlreadyExists) {
		// Created concurrently; the overwrite still applies.
		return s.patchProfile(ctx, userID, backend.Row{"phone": c.Phone, "address": c.Address})
	}
	return err
}

func (s *Store) patchProfile(ctx context.Context, userID string, patch backend.Row) error {
	patch["updated_at"] = time.Now().UTC()
	n, err := s.client.Update(ctx, backend.TableProfiles, patch, backend.Eq("id", userID))
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}
