package search

import (
	"github.com/bookbridge/bookbridge-server/internal/category"
	"github.com/bookbridge/bookbridge-server/internal/domain"
)

// BookDocument is the indexed form of an available book.
type BookDocument struct {
	ID          string
	Title       string
	Author      string
	Description string
	Category    string
	// CategorySlug is the canonical category used for filtering.
	CategorySlug string
	Condition    string
	OwnerID      string
	FreeToRead   bool
	// CreatedAt is Unix milliseconds, used for recency ordering.
	CreatedAt int64
}

// BookToDocument converts a book for indexing.
func BookToDocument(b *domain.Book) *BookDocument {
	return &BookDocument{
		ID:           b.ID,
		Title:        b.Title,
		Author:       b.Author,
		Description:  b.Description,
		Category:     b.Category,
		CategorySlug: category.Canonical(b.Category),
		Condition:    b.Condition,
		OwnerID:      b.OwnerID,
		FreeToRead:   b.IsFreeToRead,
		CreatedAt:    b.CreatedAt.UnixMilli(),
	}
}

// ToMap returns the document keyed by mapped field name.
func (d *BookDocument) ToMap() map[string]any {
	return map[string]any{
		"title":         d.Title,
		"author":        d.Author,
		"description":   d.Description,
		"category":      d.Category,
		"category_slug": d.CategorySlug,
		"condition":     d.Condition,
		"owner_id":      d.OwnerID,
		"free_to_read":  d.FreeToRead,
		"created_at":    float64(d.CreatedAt),
	}
}
