package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookbridge/bookbridge-server/internal/category"
	"github.com/bookbridge/bookbridge-server/internal/domain"
	"github.com/bookbridge/bookbridge-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "donateBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Donate a book",
		Description:   "Lists a book for donation. It shows up in the catalog immediately.",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDonateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "browseBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "Browse books",
		Description: "Lists available books, newest first. q runs a text search over title, author, category and description.",
		Tags:        []string{"Books"},
	}, s.handleBrowseBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a single book",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories",
		Summary:     "List categories",
		Description: "Returns the categories offered on the donate form. Browse filters also accept common spellings such as sci-fi.",
		Tags:        []string{"Books"},
	}, s.handleListCategories)

	huma.Register(s.api, huma.Operation{
		OperationID:   "requestBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books/{id}/requests",
		Summary:       "Request a book",
		Description:   "Asks the donor for the book. The donor is notified.",
		Tags:          []string{"Requests"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleRequestBook)
}

// === DTOs ===

// DonateBookRequest is the request body for listing a book.
type DonateBookRequest struct {
	Title        string `json:"title" doc:"Book title"`
	Author       string `json:"author,omitempty" doc:"Author"`
	Category     string `json:"category,omitempty" doc:"Category or genre"`
	Description  string `json:"description,omitempty" doc:"Free-text description"`
	Condition    string `json:"condition,omitempty" doc:"Physical condition, e.g. good or like new"`
	IsFreeToRead bool   `json:"is_free_to_read,omitempty" doc:"Whether the book is listed under Free Books"`
}

// DonateBookInput wraps the donate request for Huma.
type DonateBookInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
	Body          DonateBookRequest
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// BrowseBooksInput holds catalog query parameters.
type BrowseBooksInput struct {
	Query    string `query:"q" doc:"Text search"`
	Free     bool   `query:"free" doc:"Only books that are free to read"`
	Category string `query:"category" doc:"Category; aliases such as sci-fi are resolved"`
	Limit    int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Page size"`
	Offset   int    `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

// BrowseBooksResponse is one catalog page.
type BrowseBooksResponse struct {
	Query  string         `json:"query,omitempty" doc:"Normalized search text"`
	Total  int            `json:"total" doc:"Total matching books"`
	Limit  int            `json:"limit" doc:"Page size"`
	Offset int            `json:"offset" doc:"Page offset"`
	Books  []*domain.Book `json:"books" doc:"Books on this page"`
}

// BrowseBooksOutput wraps a catalog page for Huma.
type BrowseBooksOutput struct {
	Body BrowseBooksResponse
}

// GetBookInput identifies a book.
type GetBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// Category is one donate-form category.
type Category struct {
	Name string `json:"name" doc:"Display name"`
	Slug string `json:"slug" doc:"Canonical slug"`
}

// CategoriesResponse lists the donate-form categories.
type CategoriesResponse struct {
	Categories []Category `json:"categories"`
}

// CategoriesOutput wraps the category list for Huma.
type CategoriesOutput struct {
	Body CategoriesResponse
}

// RequestBookRequest is the request body for asking for a book.
type RequestBookRequest struct {
	Message string `json:"message,omitempty" doc:"Optional note to the donor"`
}

// RequestBookInput wraps the book request for Huma.
type RequestBookInput struct {
	Authorization string             `header:"Authorization" doc:"Bearer token"`
	ID            string             `path:"id" doc:"Book ID"`
	Body          RequestBookRequest `required:"false"`
}

// BookRequestOutput wraps a book request for Huma.
type BookRequestOutput struct {
	Body *domain.BookRequest
}

// === Handlers ===

func (s *Server) handleDonateBook(ctx context.Context, input *DonateBookInput) (*BookOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Catalog.Donate(ctx, identity.UserID, service.DonateBookRequest{
		Title:        input.Body.Title,
		Author:       input.Body.Author,
		Category:     input.Body.Category,
		Description:  input.Body.Description,
		Condition:    input.Body.Condition,
		IsFreeToRead: input.Body.IsFreeToRead,
	})
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleBrowseBooks(ctx context.Context, input *BrowseBooksInput) (*BrowseBooksOutput, error) {
	res, err := s.services.Catalog.Browse(ctx, service.BrowseRequest{
		Query:    input.Query,
		FreeOnly: input.Free,
		Category: input.Category,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return nil, err
	}

	return &BrowseBooksOutput{Body: BrowseBooksResponse{
		Query:  res.Query,
		Total:  res.Total,
		Limit:  input.Limit,
		Offset: input.Offset,
		Books:  res.Books,
	}}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, err := s.services.Catalog.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleListCategories(_ context.Context, _ *struct{}) (*CategoriesOutput, error) {
	out := &CategoriesOutput{}
	out.Body.Categories = make([]Category, len(category.Defaults))
	for i, d := range category.Defaults {
		out.Body.Categories[i] = Category{Name: d.Name, Slug: d.Slug}
	}
	return out, nil
}

func (s *Server) handleRequestBook(ctx context.Context, input *RequestBookInput) (*BookRequestOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	req, err := s.services.Request.Create(ctx, identity.UserID, input.ID, service.CreateRequestInput{
		Message: input.Body.Message,
	})
	if err != nil {
		return nil, err
	}
	return &BookRequestOutput{Body: req}, nil
}
