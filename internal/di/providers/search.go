package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/bookbridge/bookbridge-server/internal/config"
	"github.com/bookbridge/bookbridge-server/internal/logger"
	"github.com/bookbridge/bookbridge-server/internal/search"
	"github.com/bookbridge/bookbridge-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
// SearchIndex is nil when search is disabled.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.SearchIndex == nil {
		return nil
	}
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Search index disabled by configuration")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Data.Dir,
		Logger:   log.Component("search"),
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// TriggerCatalogReindex rebuilds the index from the backend in the
// background. The index only holds available books, so a rebuild on every
// start drops anything promised or given away while the server was down.
func TriggerCatalogReindex(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	if indexHandle.SearchIndex == nil {
		return
	}
	catalog := do.MustInvoke[*service.CatalogService](i)
	log := do.MustInvoke[*logger.Logger](i)

	go func() {
		n, err := catalog.Rebuild(context.Background())
		if err != nil {
			log.Error("Catalog reindex failed", "error", err)
			return
		}
		log.Info("Catalog reindex completed", "documents", n)
	}()
}
