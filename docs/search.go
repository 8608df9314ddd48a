package docs

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// DefaultSearchLimit is used when Search is called with a limit < 1.
const DefaultSearchLimit = 10

// SearchHit is a ranked full-text search result.
type SearchHit struct {
	Entry *IndexEntry `json:"entry"`
	Score float64     `json:"score"`
}

// Searcher is an in-memory full-text index over the methods of an [Index].
// It complements [Index.Resolve] when the user doesn't know a method's name.
type Searcher struct {
	index   bleve.Index
	entries map[string]*IndexEntry
}

// NewSearcher indexes every method reachable from idx.
func NewSearcher(ctx context.Context, idx *Index) (*Searcher, error) {
	bi, err := bleve.NewMemOnly(searchMapping())
	if err != nil {
		return nil, fmt.Errorf("creating search index: %w", err)
	}
	s := &Searcher{index: bi, entries: map[string]*IndexEntry{}}

	batch := bi.NewBatch()
	for _, e := range idx.Entries() {
		if err := ctx.Err(); err != nil {
			_ = bi.Close()
			return nil, err
		}
		id := strings.ToLower(e.FormattedName)
		if _, exists := s.entries[id]; exists {
			continue
		}
		s.entries[id] = e
		if err := batch.Index(id, searchDocument(e)); err != nil {
			_ = bi.Close()
			return nil, fmt.Errorf("indexing %s: %w", e.FormattedName, err)
		}
	}
	if batch.Size() > 0 {
		if err := bi.Batch(batch); err != nil {
			_ = bi.Close()
			return nil, fmt.Errorf("indexing methods: %w", err)
		}
	}
	return s, nil
}

func searchMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = "standard"
	textField.Store = false

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = "keyword"
	keywordField.Store = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("name", textField)
	doc.AddFieldMappingsAt("path", textField)
	doc.AddFieldMappingsAt("description", textField)
	doc.AddFieldMappingsAt("notes", textField)
	doc.AddFieldMappingsAt("peripheral", keywordField)
	doc.AddFieldMappingsAt("object", keywordField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

func searchDocument(e *IndexEntry) map[string]interface{} {
	doc := map[string]interface{}{
		"name":       e.Name,
		"path":       strings.Join([]string{e.Peripheral, e.Object, e.Name}, " "),
		"peripheral": strings.ToLower(e.Peripheral),
		"object":     strings.ToLower(e.Object),
	}
	m := e.Method
	if m == nil {
		return doc
	}

	descriptions := []string{m.ShortDescription, m.LongDescription, m.Extra}
	notes := append([]string{}, m.Notes...)
	if mu, ok := m.Signature.(MultiUsage); ok {
		for _, u := range mu.Usages {
			descriptions = append(descriptions, u.Name, u.ShortDescription, u.LongDescription, u.Extra)
			notes = append(notes, u.Notes...)
		}
	}
	doc["description"] = strings.Join(descriptions, "\n")
	doc["notes"] = strings.Join(notes, "\n")
	return doc
}

// Search returns up to limit methods matching text, best first.
func (s *Searcher) Search(ctx context.Context, text string, limit int) ([]SearchHit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if limit < 1 {
		limit = DefaultSearchLimit
	}

	nameMatch := bleve.NewMatchQuery(text)
	nameMatch.SetField("name")
	nameMatch.SetBoost(4)

	namePrefix := bleve.NewPrefixQuery(strings.ToLower(text))
	namePrefix.SetField("name")
	namePrefix.SetBoost(2)

	pathMatch := bleve.NewMatchQuery(strings.NewReplacer(".", " ", ":", " ", "/", " ").Replace(text))
	pathMatch.SetField("path")
	pathMatch.SetBoost(2)

	descriptionMatch := bleve.NewMatchQuery(text)
	descriptionMatch.SetField("description")

	notesMatch := bleve.NewMatchQuery(text)
	notesMatch.SetField("notes")
	notesMatch.SetBoost(0.5)

	q := bleve.NewDisjunctionQuery(
		[]query.Query{nameMatch, namePrefix, pathMatch, descriptionMatch, notesMatch}...,
	)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("searching for %q: %w", text, err)
	}

	hits := make([]SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		e, ok := s.entries[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, SearchHit{Entry: e, Score: h.Score})
	}
	return hits, nil
}

// Len returns the number of indexed methods.
func (s *Searcher) Len() int {
	return len(s.entries)
}

// Close releases the search index.
func (s *Searcher) Close() error {
	return s.index.Close()
}
