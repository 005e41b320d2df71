package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/bookbridge/bookbridge-server/internal/category"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Params selects books from the catalog.
type Params struct {
	Query    string
	FreeOnly bool
	Category string
	Limit    int
	Offset   int
}

// Result is one page of matches.
type Result struct {
	Query string `json:"query"`
	Total uint64 `json:"total"`
	Hits  []Hit  `json:"hits"`
}

// Hit is one matching book.
type Hit struct {
	ID         string  `json:"id"`
	Score      float64 `json:"score"`
	Title      string  `json:"title"`
	Author     string  `json:"author,omitempty"`
	Category   string  `json:"category,omitempty"`
	Condition  string  `json:"condition,omitempty"`
	OwnerID    string  `json:"owner_id"`
	FreeToRead bool    `json:"free_to_read"`
}

// Search runs params against the index. Without a text query, books are
// ordered newest first; with one, by relevance.
func (s *SearchIndex) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := params.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)
	offset := max(params.Offset, 0)

	text := strings.TrimSpace(params.Query)
	req := bleve.NewSearchRequestOptions(buildQuery(text, params), limit, offset, false)
	if text == "" {
		req.SortBy([]string{"-created_at", "_id"})
	} else {
		req.SortBy([]string{"-_score", "-created_at"})
	}
	req.Fields = []string{"title", "author", "category", "condition", "owner_id", "free_to_read"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	out := &Result{Query: text, Total: res.Total, Hits: make([]Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		hit.Title, _ = h.Fields["title"].(string)
		hit.Author, _ = h.Fields["author"].(string)
		hit.Category, _ = h.Fields["category"].(string)
		hit.Condition, _ = h.Fields["condition"].(string)
		hit.OwnerID, _ = h.Fields["owner_id"].(string)
		hit.FreeToRead, _ = h.Fields["free_to_read"].(bool)
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

func buildQuery(text string, params Params) query.Query {
	var must []query.Query

	if text == "" {
		must = append(must, bleve.NewMatchAllQuery())
	} else {
		must = append(must, textQuery(text))
	}

	if params.FreeOnly {
		free := bleve.NewBoolFieldQuery(true)
		free.SetField("free_to_read")
		must = append(must, free)
	}

	if c := category.Canonical(params.Category); c != "" {
		cat := bleve.NewTermQuery(c)
		cat.SetField("category_slug")
		must = append(must, cat)
	}

	if len(must) == 1 {
		return must[0]
	}
	return bleve.NewConjunctionQuery(must...)
}

// textQuery matches the words in title, author, category and description,
// weighting title and author highest. The last word also matches as a
// prefix of a title term so results appear while typing.
func textQuery(text string) query.Query {
	field := func(name string, boost float64) query.Query {
		q := bleve.NewMatchQuery(text)
		q.SetField(name)
		q.SetBoost(boost)
		return q
	}

	should := []query.Query{
		field("title", 3),
		field("author", 2),
		field("category", 1),
		field("description", 0.5),
	}

	words := strings.Fields(strings.ToLower(text))
	if last := words[len(words)-1]; len(last) >= 2 {
		p := bleve.NewPrefixQuery(last)
		p.SetField("title")
		p.SetBoost(1.5)
		should = append(should, p)
	}

	return bleve.NewDisjunctionQuery(should...)
}
