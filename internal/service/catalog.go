package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/category"
	"github.com/bookbridge/bookbridge-server/internal/domain"
	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
	"github.com/bookbridge/bookbridge-server/internal/id"
	"github.com/bookbridge/bookbridge-server/internal/normalize"
	"github.com/bookbridge/bookbridge-server/internal/search"
	"github.com/bookbridge/bookbridge-server/internal/store"
	"github.com/bookbridge/bookbridge-server/internal/validation"
)

// rebuildPageSize is how many books are read per page during a rebuild.
const rebuildPageSize = 500

// CatalogService lists books for donation and keeps the search index in step
// with availability. A nil index falls back to backend listing without text
// search.
type CatalogService struct {
	store     *store.Store
	index     *search.SearchIndex
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(st *store.Store, index *search.SearchIndex, validator *validation.Validator, logger *slog.Logger) *CatalogService {
	return &CatalogService{store: st, index: index, validator: validator, logger: orDiscard(logger)}
}

// DonateBookRequest lists a book for donation.
type DonateBookRequest struct {
	Title        string `json:"title" validate:"notblank,max=300"`
	Author       string `json:"author" validate:"max=200"`
	Category     string `json:"category" validate:"max=100"`
	Description  string `json:"description" validate:"max=5000"`
	Condition    string `json:"condition" validate:"max=50"`
	IsFreeToRead bool   `json:"is_free_to_read"`
}

// BrowseRequest selects catalog books.
type BrowseRequest struct {
	Query    string
	FreeOnly bool
	Category string
	Limit    int
	Offset   int
}

// BrowseResult is one page of available books.
type BrowseResult struct {
	Query string         `json:"query,omitempty"`
	Total int            `json:"total"`
	Books []*domain.Book `json:"books"`
}

// Donate lists a new available book owned by ownerID.
func (s *CatalogService) Donate(ctx context.Context, ownerID string, req DonateBookRequest) (*domain.Book, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book := &domain.Book{
		Entity:       domain.Entity{ID: bookID},
		OwnerID:      ownerID,
		Title:        normalize.Text(req.Title),
		Author:       normalize.Text(req.Author),
		Category:     normalize.Text(req.Category),
		Description:  normalize.Multiline(req.Description),
		Condition:    normalize.Text(req.Condition),
		Status:       domain.BookAvailable,
		IsFreeToRead: req.IsFreeToRead,
	}
	book.InitTimestamps()

	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, err
	}
	s.Index(book)

	s.logger.Info("book donated", slog.String("book_id", book.ID), slog.String("owner_id", ownerID))
	return book, nil
}

// Get returns a book by ID.
func (s *CatalogService) Get(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, asNotFound(err, "book not found")
	}
	return book, nil
}

// Browse returns available books matching req.
func (s *CatalogService) Browse(ctx context.Context, req BrowseRequest) (*BrowseResult, error) {
	if s.index == nil {
		return s.browseBackend(ctx, req)
	}

	res, err := s.index.Search(ctx, search.Params{
		Query:    req.Query,
		FreeOnly: req.FreeOnly,
		Category: req.Category,
		Limit:    req.Limit,
		Offset:   req.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}

	out := &BrowseResult{Query: res.Query, Total: int(res.Total), Books: make([]*domain.Book, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		book, err := s.store.GetBook(ctx, hit.ID)
		if err != nil {
			if errors.Is(err, backend.ErrNotFound) {
				s.Unindex(hit.ID)
				continue
			}
			return nil, err
		}
		if !book.IsAvailable() {
			s.Unindex(book.ID)
			continue
		}
		out.Books = append(out.Books, book)
	}
	return out, nil
}

// browseBackend lists available books newest first. Text queries are not
// supported without the index.
func (s *CatalogService) browseBackend(ctx context.Context, req BrowseRequest) (*BrowseResult, error) {
	if strings.TrimSpace(req.Query) != "" {
		return nil, domainerrors.Validation("text search is disabled on this server")
	}

	books, err := s.store.ListBooksByStatus(ctx, domain.BookAvailable, 0, 0)
	if err != nil {
		return nil, err
	}

	matched := books[:0]
	for _, b := range books {
		if req.FreeOnly && !b.IsFreeToRead {
			continue
		}
		if !category.Match(b.Category, req.Category) {
			continue
		}
		matched = append(matched, b)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := min(max(req.Offset, 0), len(matched))
	end := min(offset+limit, len(matched))

	return &BrowseResult{Total: len(matched), Books: matched[offset:end]}, nil
}

// Index adds or refreshes an available book in the search index. Index
// failures are logged; the backend row is the source of truth.
func (s *CatalogService) Index(book *domain.Book) {
	if s.index == nil || !book.IsAvailable() {
		return
	}
	if err := s.index.IndexBook(search.BookToDocument(book)); err != nil {
		s.logger.Warn("failed to index book", slog.String("book_id", book.ID), slog.String("error", err.Error()))
	}
}

// Unindex removes a book from the search index.
func (s *CatalogService) Unindex(bookID string) {
	if s.index == nil {
		return
	}
	if err := s.index.DeleteBook(bookID); err != nil {
		s.logger.Warn("failed to unindex book", slog.String("book_id", bookID), slog.String("error", err.Error()))
	}
}

// Rebuild replaces the index contents with every available book.
func (s *CatalogService) Rebuild(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	if err := s.index.Reset(); err != nil {
		return 0, fmt.Errorf("reset index: %w", err)
	}

	total := 0
	for offset := 0; ; offset += rebuildPageSize {
		books, err := s.store.ListBooksByStatus(ctx, domain.BookAvailable, rebuildPageSize, offset)
		if err != nil {
			return total, err
		}
		docs := make([]*search.BookDocument, len(books))
		for i, b := range books {
			docs[i] = search.BookToDocument(b)
		}
		if err := s.index.IndexBooks(docs); err != nil {
			return total, fmt.Errorf("index books: %w", err)
		}
		total += len(books)
		if len(books) < rebuildPageSize {
			break
		}
	}

	s.logger.Info("catalog index rebuilt", slog.Int("books", total))
	return total, nil
}
