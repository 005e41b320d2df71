package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/domain"
)

type exchangeRow struct {
	ID               string    `json:"id"`
	RequestID        string    `json:"request_id"`
	DonorPhone       *string   `json:"donor_phone"`
	DonorAddress     *string   `json:"donor_address"`
	RequesterPhone   *string   `json:"requester_phone"`
	RequesterAddress *string   `json:"requester_address"`
	Status           string    `json:"status"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func contactFromColumns(phone, address *string) *domain.Contact {
	if phone == nil && address == nil {
		return nil
	}
	c := &domain.Contact{}
	if phone != nil {
		c.Phone = *phone
	}
	if address != nil {
		c.Address = *address
	}
	return c
}

func contactColumns(c *domain.Contact) (phone, address any) {
	if c == nil {
		return nil, nil
	}
	return c.Phone, c.Address
}

func (r exchangeRow) toDomain() *domain.ExchangeRecord {
	return &domain.ExchangeRecord{
		ID:               r.ID,
		RequestID:        r.RequestID,
		DonorContact:     contactFromColumns(r.DonorPhone, r.DonorAddress),
		RequesterContact: contactFromColumns(r.RequesterPhone, r.RequesterAddress),
		Status:           domain.ExchangeStatus(r.Status),
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// contactPatch holds the contact and status columns of x.
func contactPatch(x *domain.ExchangeRecord) backend.Row {
	dp, da := contactColumns(x.DonorContact)
	rp, ra := contactColumns(x.RequesterContact)
	return backend.Row{
		"donor_phone":       dp,
		"donor_address":     da,
		"requester_phone":   rp,
		"requester_address": ra,
		"status":            x.Status,
	}
}

// GetExchange returns the exchange record for a request.
func (s *Store) GetExchange(ctx context.Context, requestID string) (*domain.ExchangeRecord, error) {
	row, err := backend.SelectOne[exchangeRow](ctx, s.client, backend.TableExchanges, backend.Eq("request_id", requestID))
	if err != nil {
		return nil, notFound(err, ErrExchangeNotFound)
	}
	return row.toDomain(), nil
}

// InsertExchange creates the record at version 1. If another writer created
// the record for the same request first, it returns ErrStaleWrite.
func (s *Store) InsertExchange(ctx context.Context, x *domain.ExchangeRecord) error {
	row := contactPatch(x)
	row["id"] = x.ID
	row["request_id"] = x.RequestID
	row["version"] = int64(1)
	row["created_at"] = x.CreatedAt
	row["updated_at"] = x.UpdatedAt

	if err := s.client.Insert(ctx, backend.TableExchanges, row); err != nil {
		if errors.Is(err, backend.ErrAlreadyExists) {
			return ErrStaleWrite
		}
		return fmt.Errorf("insert exchange: %w", err)
	}
	x.Version = 1
	return nil
}

// UpdateExchangeIfVersion writes the contacts and status of x only if the
// stored version still equals x.Version, then bumps the version. It returns
// ErrStaleWrite when another write got there first.
func (s *Store) UpdateExchangeIfVersion(ctx context.Context, x *domain.ExchangeRecord) error {
	patch := contactPatch(x)
	patch["version"] = x.Version + 1
	patch["updated_at"] = x.UpdatedAt

	n, err := s.client.Update(ctx, backend.TableExchanges, patch,
		backend.Eq("request_id", x.RequestID), backend.Eq("version", x.Version))
	if err != nil {
		return fmt.Errorf("update exchange: %w", err)
	}
	if n == 0 {
		return ErrStaleWrite
	}
	x.Version++
	return nil
}
