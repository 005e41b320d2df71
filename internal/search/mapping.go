package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping maps BookDocument fields. Title and author are stored
// for result rendering; description is searchable only.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	doc := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = en.AnalyzerName
	title.Store = true
	title.IncludeTermVectors = true
	doc.AddFieldMappingsAt("title", title)

	author := bleve.NewTextFieldMapping()
	author.Analyzer = simple.Name
	author.Store = true
	doc.AddFieldMappingsAt("author", author)

	description := bleve.NewTextFieldMapping()
	description.Analyzer = en.AnalyzerName
	description.Store = false
	doc.AddFieldMappingsAt("description", description)

	category := bleve.NewTextFieldMapping()
	category.Analyzer = simple.Name
	category.Store = true
	doc.AddFieldMappingsAt("category", category)

	categorySlug := bleve.NewTextFieldMapping()
	categorySlug.Analyzer = keyword.Name
	categorySlug.Store = false
	doc.AddFieldMappingsAt("category_slug", categorySlug)

	condition := bleve.NewTextFieldMapping()
	condition.Analyzer = keyword.Name
	condition.Store = true
	doc.AddFieldMappingsAt("condition", condition)

	owner := bleve.NewTextFieldMapping()
	owner.Analyzer = keyword.Name
	owner.Store = true
	doc.AddFieldMappingsAt("owner_id", owner)

	free := bleve.NewBooleanFieldMapping()
	free.Store = true
	doc.AddFieldMappingsAt("free_to_read", free)

	created := bleve.NewNumericFieldMapping()
	created.Store = true
	doc.AddFieldMappingsAt("created_at", created)

	indexMapping.AddDocumentMapping("_default", doc)
	return indexMapping
}
