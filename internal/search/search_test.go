package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbridge/bookbridge-server/internal/domain"
)

func newTestIndex(t *testing.T) *SearchIndex {
	t.Helper()
	idx, err := NewSearchIndex(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func book(id, title, author, category string, free bool, created time.Time) *domain.Book {
	return &domain.Book{
		Entity:       domain.Entity{ID: id, CreatedAt: created},
		OwnerID:      "usr-owner",
		Title:        title,
		Author:       author,
		Category:     category,
		Status:       domain.BookAvailable,
		IsFreeToRead: free,
	}
}

func seed(t *testing.T, idx *SearchIndex) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []*BookDocument{
		BookToDocument(book("bk-1", "The Hobbit", "J.R.R. Tolkien", "Fantasy", true, base)),
		BookToDocument(book("bk-2", "Dune", "Frank Herbert", "Science Fiction", false, base.Add(time.Hour))),
		BookToDocument(book("bk-3", "The Silmarillion", "J.R.R. Tolkien", "Fantasy", false, base.Add(2*time.Hour))),
		BookToDocument(book("bk-4", "Children of Dune", "Frank Herbert", "Science Fiction", true, base.Add(3*time.Hour))),
	}
	require.NoError(t, idx.IndexBooks(docs))
}

func hitIDs(r *Result) []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}
	return ids
}

func TestSearch_EmptyQueryNewestFirst(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	res, err := idx.Search(context.Background(), Params{})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), res.Total)
	assert.Equal(t, []string{"bk-4", "bk-3", "bk-2", "bk-1"}, hitIDs(res))
	assert.Equal(t, "Children of Dune", res.Hits[0].Title)
	assert.True(t, res.Hits[0].FreeToRead)
}

func TestSearch_FreeOnly(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	res, err := idx.Search(context.Background(), Params{FreeOnly: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bk-1", "bk-4"}, hitIDs(res))
}

func TestSearch_Text(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	res, err := idx.Search(context.Background(), Params{Query: "tolkien"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bk-1", "bk-3"}, hitIDs(res))

	res, err = idx.Search(context.Background(), Params{Query: "dune", FreeOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"bk-4"}, hitIDs(res))

	res, err = idx.Search(context.Background(), Params{Query: "hob"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bk-1"}, hitIDs(res))
}

func TestSearch_Category(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	res, err := idx.Search(context.Background(), Params{Category: "science fiction"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bk-2", "bk-4"}, hitIDs(res))

	res, err = idx.Search(context.Background(), Params{Category: "Sci-Fi"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bk-2", "bk-4"}, hitIDs(res))

	res, err = idx.Search(context.Background(), Params{Category: "fiction"})
	require.NoError(t, err)
	assert.Empty(t, hitIDs(res))
}

func TestSearch_Pagination(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	res, err := idx.Search(context.Background(), Params{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), res.Total)
	assert.Equal(t, []string{"bk-2", "bk-1"}, hitIDs(res))
}

func TestDeleteAndReset(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	require.NoError(t, idx.DeleteBook("bk-1"))
	require.NoError(t, idx.DeleteBook("bk-missing"))
	n, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	require.NoError(t, idx.Reset())
	n, err = idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestNewSearchIndex_OnDisk(t *testing.T) {
	dir := t.TempDir()

	idx, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, idx.IndexBook(BookToDocument(book("bk-1", "Emma", "Jane Austen", "Classic", true, time.Now()))))
	require.NoError(t, idx.Close())

	reopened, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}
