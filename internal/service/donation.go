package service

import (
	"context"
	"log/slog"

	"github.com/bookbridge/bookbridge-server/internal/domain"
	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
	"github.com/bookbridge/bookbridge-server/internal/store"
)

// ErrPendingRequests is returned when deleting a book that still has
// pending requests.
var ErrPendingRequests = domainerrors.Conflict("This book has pending requests. Please handle them first.")

// DonationService serves the caller's own donated books.
type DonationService struct {
	store   *store.Store
	catalog *CatalogService
	logger  *slog.Logger
}

// NewDonationService creates a new donation service.
func NewDonationService(st *store.Store, catalog *CatalogService, logger *slog.Logger) *DonationService {
	return &DonationService{store: st, catalog: catalog, logger: orDiscard(logger)}
}

// DonationItem is one row of the donations list.
type DonationItem struct {
	domain.Book
	Badge string `json:"badge"`
}

// List returns the owner's books, newest first, with their status badges.
func (s *DonationService) List(ctx context.Context, ownerID string) ([]DonationItem, error) {
	books, err := s.store.ListBooksByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	items := make([]DonationItem, len(books))
	for i, b := range books {
		items[i] = DonationItem{Book: *b, Badge: b.Status.Badge()}
	}
	return items, nil
}

// Delete removes one of the owner's books. It refuses while any pending
// request references the book. There is no undo.
func (s *DonationService) Delete(ctx context.Context, ownerID, bookID string) error {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return asNotFound(err, "book not found")
	}
	if book.OwnerID != ownerID {
		return domainerrors.Forbidden("you can only delete your own donations")
	}

	pending, err := s.store.CountPendingForBook(ctx, bookID)
	if err != nil {
		return err
	}
	if pending > 0 {
		return ErrPendingRequests
	}

	if err := s.store.DeleteBook(ctx, bookID, ownerID); err != nil {
		return asNotFound(err, "book not found")
	}
	s.catalog.Unindex(bookID)

	s.logger.Info("donation deleted", slog.String("book_id", bookID), slog.String("owner_id", ownerID))
	return nil
}
