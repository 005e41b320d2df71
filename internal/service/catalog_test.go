package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbridge/bookbridge-server/internal/domain"
	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
	"github.com/bookbridge/bookbridge-server/internal/validation"
)

func bookTitles(books []*domain.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestCatalogService_DonateNormalizes(t *testing.T) {
	env := newTestEnv(t)
	ada := env.signUp(t, "ada@example.com", "Ada")

	book, err := env.catalog.Donate(context.Background(), ada.UserID, DonateBookRequest{
		Title:       "  <b>Dune</b>  ",
		Description: "line one\n\n  line   two ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "line one\nline two", book.Description)
	assert.Equal(t, domain.BookAvailable, book.Status)
	assert.Equal(t, ada.UserID, book.OwnerID)

	_, err = env.catalog.Donate(context.Background(), ada.UserID, DonateBookRequest{Title: "   "})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCatalogService_Browse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.signUp(t, "ada@example.com", "Ada")

	_, err := env.catalog.Donate(ctx, ada.UserID, DonateBookRequest{Title: "Dune", Author: "Frank Herbert", IsFreeToRead: true})
	require.NoError(t, err)
	_, err = env.catalog.Donate(ctx, ada.UserID, DonateBookRequest{Title: "Emma", Author: "Jane Austen"})
	require.NoError(t, err)

	res, err := env.catalog.Browse(ctx, BrowseRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.ElementsMatch(t, []string{"Emma", "Dune"}, bookTitles(res.Books))

	res, err = env.catalog.Browse(ctx, BrowseRequest{FreeOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune"}, bookTitles(res.Books))

	res, err = env.catalog.Browse(ctx, BrowseRequest{Query: "austen"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Emma"}, bookTitles(res.Books))
}

func TestCatalogService_AcceptedBooksLeaveCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, _, req := env.acceptedRequest(t)

	res, err := env.catalog.Browse(ctx, BrowseRequest{Query: "Dune"})
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	book, err := env.catalog.Get(ctx, req.BookID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookRequested, book.Status)
}

func TestCatalogService_Rebuild(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.signUp(t, "ada@example.com", "Ada")
	env.donate(t, ada, "Dune")
	env.donate(t, ada, "Emma")

	require.NoError(t, env.index.Reset())
	count, err := env.index.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)

	n, err := env.catalog.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err = env.index.DocumentCount()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestCatalogService_WithoutIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	catalog := NewCatalogService(env.store, nil, validation.New(), nil)
	ada := env.signUp(t, "ada@example.com", "Ada")

	_, err := catalog.Donate(ctx, ada.UserID, DonateBookRequest{Title: "Dune", IsFreeToRead: true})
	require.NoError(t, err)
	_, err = catalog.Donate(ctx, ada.UserID, DonateBookRequest{Title: "Emma"})
	require.NoError(t, err)

	res, err := catalog.Browse(ctx, BrowseRequest{FreeOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune"}, bookTitles(res.Books))

	_, err = catalog.Browse(ctx, BrowseRequest{Query: "dune"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	n, err := catalog.Rebuild(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCatalogService_GetMissing(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.catalog.Get(context.Background(), "bk-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
