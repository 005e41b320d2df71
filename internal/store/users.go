package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/domain"
)

type userRow struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		Entity:       domain.Entity{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		LastLoginAt:  r.LastLoginAt,
	}
}

// CreateUser inserts a user. A taken email returns backend.ErrAlreadyExists.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	err := s.client.Insert(ctx, backend.TableUsers, backend.Row{
		"id":            u.ID,
		"email":         domain.NormalizeEmail(u.Email),
		"password_hash": u.PasswordHash,
		"created_at":    u.CreatedAt,
		"updated_at":    u.UpdatedAt,
		"last_login_at": u.LastLoginAt,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row, err := backend.SelectOne[userRow](ctx, s.client, backend.TableUsers, backend.Eq("id", id))
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return row.toDomain(), nil
}

// GetUserByEmail returns a user by case-insensitive email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row, err := backend.SelectOne[userRow](ctx, s.client, backend.TableUsers,
		backend.Eq("email", domain.NormalizeEmail(email)))
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return row.toDomain(), nil
}

// RecordLogin stamps the user's last login time.
func (s *Store) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	n, err := s.client.Update(ctx, backend.TableUsers,
		backend.Row{"last_login_at": at, "updated_at": at},
		backend.Eq("id", userID))
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error {
	n, err := s.client.Update(ctx, backend.TableUsers,
		backend.Row{"password_hash": hash, "updated_at": at},
		backend.Eq("id", userID))
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountUsers returns the number of registered users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	return s.client.Count(ctx, backend.TableUsers)
}
