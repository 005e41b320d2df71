package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/domain"
)

type requestRow struct {
	ID          string    `json:"id"`
	BookID      string    `json:"book_id"`
	DonorID     string    `json:"donor_id"`
	RequesterID string    `json:"requester_id"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r requestRow) toDomain() *domain.BookRequest {
	return &domain.BookRequest{
		Entity:      domain.Entity{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
		BookID:      r.BookID,
		DonorID:     r.DonorID,
		RequesterID: r.RequesterID,
		Status:      domain.RequestStatus(r.Status),
		Message:     r.Message,
	}
}

// CreateRequest inserts a book request.
func (s *Store) CreateRequest(ctx context.Context, r *domain.BookRequest) error {
	err := s.client.Insert(ctx, backend.TableBookRequests, backend.Row{
		"id":           r.ID,
		"book_id":      r.BookID,
		"donor_id":     r.DonorID,
		"requester_id": r.RequesterID,
		"status":       r.Status,
		"message":      r.Message,
		"created_at":   r.CreatedAt,
		"updated_at":   r.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetRequest returns a request with its book title resolved.
func (s *Store) GetRequest(ctx context.Context, id string) (*domain.BookRequest, error) {
	row, err := backend.SelectOne[requestRow](ctx, s.client, backend.TableBookRequests, backend.Eq("id", id))
	if err != nil {
		return nil, notFound(err, ErrRequestNotFound)
	}
	req := row.toDomain()
	if err := s.resolveTitles(ctx, []*domain.BookRequest{req}); err != nil {
		return nil, err
	}
	return req, nil
}

// ListIncomingRequests returns requests addressed to the donor, newest first.
func (s *Store) ListIncomingRequests(ctx context.Context, donorID string) ([]*domain.BookRequest, error) {
	return s.listRequests(ctx, backend.Eq("donor_id", donorID))
}

// ListOutgoingRequests returns requests made by the requester, newest first.
func (s *Store) ListOutgoingRequests(ctx context.Context, requesterID string) ([]*domain.BookRequest, error) {
	return s.listRequests(ctx, backend.Eq("requester_id", requesterID))
}

func (s *Store) listRequests(ctx context.Context, filter backend.Filter) ([]*domain.BookRequest, error) {
	rows, err := backend.SelectAll[requestRow](ctx, s.client, backend.TableBookRequests,
		backend.Where(filter).OrderBy(backend.Desc("created_at"), backend.Desc("id")))
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	out := make([]*domain.BookRequest, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	if err := s.resolveTitles(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveTitles fills BookTitle from the books table. A deleted book leaves
// the title empty.
func (s *Store) resolveTitles(ctx context.Context, reqs []*domain.BookRequest) error {
	titles := make(map[string]string)
	for _, r := range reqs {
		title, ok := titles[r.BookID]
		if !ok {
			book, err := s.GetBook(ctx, r.BookID)
			switch {
			case err == nil:
				title = book.Title
			case errors.Is(err, backend.ErrNotFound):
			default:
				return err
			}
			titles[r.BookID] = title
		}
		r.BookTitle = title
	}
	return nil
}

// CountPendingForBook returns how many pending requests reference the book.
func (s *Store) CountPendingForBook(ctx context.Context, bookID string) (int, error) {
	n, err := s.client.Count(ctx, backend.TableBookRequests,
		backend.Eq("book_id", bookID), backend.Eq("status", domain.RequestPending))
	if err != nil {
		return 0, fmt.Errorf("count pending for book: %w", err)
	}
	return n, nil
}

// CountPendingIncoming counts pending requests addressed to the donor. A nil
// after counts all of them; otherwise only requests created after it count.
func (s *Store) CountPendingIncoming(ctx context.Context, donorID string, after *time.Time) (int, error) {
	filters := []backend.Filter{
		backend.Eq("donor_id", donorID),
		backend.Eq("status", domain.RequestPending),
	}
	if after != nil {
		filters = append(filters, backend.Gt("created_at", *after))
	}
	n, err := s.client.Count(ctx, backend.TableBookRequests, filters...)
	if err != nil {
		return 0, fmt.Errorf("count pending incoming: %w", err)
	}
	return n, nil
}

// HasPendingRequest reports whether the requester already has a pending
// request for the book.
func (s *Store) HasPendingRequest(ctx context.Context, bookID, requesterID string) (bool, error) {
	n, err := s.client.Count(ctx, backend.TableBookRequests,
		backend.Eq("book_id", bookID),
		backend.Eq("requester_id", requesterID),
		backend.Eq("status", domain.RequestPending))
	if err != nil {
		return false, fmt.Errorf("check pending request: %w", err)
	}
	return n > 0, nil
}

// SetRequestStatus moves a request from one status to another. It returns
// ErrStaleWrite if the request is no longer in from.
func (s *Store) SetRequestStatus(ctx context.Context, id string, from, to domain.RequestStatus) error {
	n, err := s.client.Update(ctx, backend.TableBookRequests,
		backend.Row{"status": to, "updated_at": time.Now().UTC()},
		backend.Eq("id", id), backend.Eq("status", from))
	if err != nil {
		return fmt.Errorf("set request status: %w", err)
	}
	if n == 0 {
		if _, err := backend.SelectOne[requestRow](ctx, s.client, backend.TableBookRequests, backend.Eq("id", id)); err != nil {
			return notFound(err, ErrRequestNotFound)
		}
		return ErrStaleWrite
	}
	return nil
}
