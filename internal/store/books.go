package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/domain"
)

type bookRow struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	Condition    string    `json:"condition"`
	Status       string    `json:"status"`
	IsFreeToRead bool      `json:"is_free_to_read"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r bookRow) toDomain() *domain.Book {
	return &domain.Book{
		Entity:       domain.Entity{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
		OwnerID:      r.OwnerID,
		Title:        r.Title,
		Author:       r.Author,
		Category:     r.Category,
		Description:  r.Description,
		Condition:    r.Condition,
		Status:       domain.BookStatus(r.Status),
		IsFreeToRead: r.IsFreeToRead,
	}
}

func booksFromRows(rows []bookRow) []*domain.Book {
	out := make([]*domain.Book, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out
}

// CreateBook inserts a donated book.
func (s *Store) CreateBook(ctx context.Context, b *domain.Book) error {
	err := s.client.Insert(ctx, backend.TableBooks, backend.Row{
		"id":              b.ID,
		"owner_id":        b.OwnerID,
		"title":           b.Title,
		"author":          b.Author,
		"category":        b.Category,
		"description":     b.Description,
		"condition":       b.Condition,
		"status":          b.Status,
		"is_free_to_read": b.IsFreeToRead,
		"created_at":      b.CreatedAt,
		"updated_at":      b.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// GetBook returns a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row, err := backend.SelectOne[bookRow](ctx, s.client, backend.TableBooks, backend.Eq("id", id))
	if err != nil {
		return nil, notFound(err, ErrBookNotFound)
	}
	return row.toDomain(), nil
}

// ListBooksByOwner returns the owner's books, newest first.
func (s *Store) ListBooksByOwner(ctx context.Context, ownerID string) ([]*domain.Book, error) {
	rows, err := backend.SelectAll[bookRow](ctx, s.client, backend.TableBooks,
		backend.Where(backend.Eq("owner_id", ownerID)).OrderBy(backend.Desc("created_at"), backend.Desc("id")))
	if err != nil {
		return nil, fmt.Errorf("list books by owner: %w", err)
	}
	return booksFromRows(rows), nil
}

// ListBooksByStatus returns books in status, newest first. A zero limit returns all.
func (s *Store) ListBooksByStatus(ctx context.Context, status domain.BookStatus, limit, offset int) ([]*domain.Book, error) {
	rows, err := backend.SelectAll[bookRow](ctx, s.client, backend.TableBooks,
		backend.Where(backend.Eq("status", status)).
			OrderBy(backend.Desc("created_at"), backend.Desc("id")).
			Take(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("list books by status: %w", err)
	}
	return booksFromRows(rows), nil
}

// SetBookStatus moves a book from one status to another. It returns
// ErrStaleWrite if the book is no longer in from.
func (s *Store) SetBookStatus(ctx context.Context, id string, from, to domain.BookStatus) error {
	n, err := s.client.Update(ctx, backend.TableBooks,
		backend.Row{"status": to, "updated_at": time.Now().UTC()},
		backend.Eq("id", id), backend.Eq("status", from))
	if err != nil {
		return fmt.Errorf("set book status: %w", err)
	}
	if n == 0 {
		if _, err := s.GetBook(ctx, id); err != nil {
			return err
		}
		return ErrStaleWrite
	}
	return nil
}

// DeleteBook removes a book owned by ownerID.
func (s *Store) DeleteBook(ctx context.Context, id, ownerID string) error {
	n, err := s.client.Delete(ctx, backend.TableBooks, backend.Eq("id", id), backend.Eq("owner_id", ownerID))
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}
