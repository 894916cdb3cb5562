// Package suggest offers near-miss synonyms for CSV headers the column mapper
// could not resolve. It never changes a mapping outcome.
package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/GetThruTools/ThruText-API/internal/fieldmap"
	"github.com/GetThruTools/ThruText-API/internal/normalize"
)

// Fuzziness is the maximum edit distance between a header and a synonym.
const Fuzziness = 2

// DefaultLimit caps the suggestions returned per header.
const DefaultLimit = 3

// Suggestion is one synonym that resembles a header.
type Suggestion struct {
	Synonym string             `json:"synonym"`
	Code    fieldmap.FieldCode `json:"code"`
	Score   float64            `json:"score"`
}

// ColumnSuggestions groups the suggestions for one unmatched column.
type ColumnSuggestions struct {
	Column      int          `json:"column"`
	Header      string       `json:"header"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Index is an in-memory fuzzy index over a synonym table.
//
// All methods are safe for concurrent use.
type Index struct {
	index  bleve.Index
	table  *fieldmap.SynonymTable
	logger *slog.Logger
	mu     sync.RWMutex
}

// New indexes every synonym in table.
func New(table *fieldmap.SynonymTable, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create suggestion index: %w", err)
	}

	entries := table.Entries()
	batch := idx.NewBatch()
	for alias, code := range entries {
		doc := map[string]any{"synonym": alias, "words": alias, "code": string(code)}
		if err := batch.Index(alias, doc); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("index synonym %q: %w", alias, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("index synonyms: %w", err)
	}

	logger.Debug("built suggestion index", "synonyms", len(entries))
	return &Index{index: idx, table: table, logger: logger}, nil
}

func buildMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	// Whole synonym as one term, for edit-distance matching.
	synonymField := bleve.NewTextFieldMapping()
	synonymField.Analyzer = keyword.Name
	synonymField.Store = true
	docMapping.AddFieldMappingsAt("synonym", synonymField)

	// Individual words, so "mobile phone" finds "phone".
	wordsField := bleve.NewTextFieldMapping()
	wordsField.Analyzer = simple.Name
	wordsField.Store = false
	docMapping.AddFieldMappingsAt("words", wordsField)

	codeField := bleve.NewTextFieldMapping()
	codeField.Analyzer = keyword.Name
	codeField.Store = true
	docMapping.AddFieldMappingsAt("code", codeField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Close releases the index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.index.Close()
}

// Suggest returns up to limit synonyms resembling header, best first.
func (x *Index) Suggest(ctx context.Context, header string, limit int) ([]Suggestion, error) {
	term := strings.TrimSpace(normalize.Key(header))
	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildQuery(term), limit, 0, false)
	req.Fields = []string{"synonym", "code"}

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search synonyms: %w", err)
	}

	out := make([]Suggestion, 0, len(res.Hits))
	for _, hit := range res.Hits {
		s := Suggestion{Synonym: hit.ID, Score: hit.Score}
		if code, ok := hit.Fields["code"].(string); ok {
			s.Code = fieldmap.FieldCode(code)
		}
		out = append(out, s)
	}
	return out, nil
}

func buildQuery(term string) query.Query {
	fuzzy := bleve.NewFuzzyQuery(term)
	fuzzy.SetField("synonym")
	fuzzy.SetFuzziness(Fuzziness)
	fuzzy.SetBoost(2.0)

	words := bleve.NewMatchQuery(term)
	words.SetField("words")
	words.Analyzer = simple.Name

	return bleve.NewDisjunctionQuery(fuzzy, words)
}

// Columns returns suggestions for every header the synonym table does not
// resolve. Headers with no near miss are omitted.
func (x *Index) Columns(ctx context.Context, header []string, limit int) ([]ColumnSuggestions, error) {
	var out []ColumnSuggestions
	for _, col := range fieldmap.UnmatchedColumns(header, x.table) {
		suggestions, err := x.Suggest(ctx, header[col], limit)
		if err != nil {
			return nil, err
		}
		if len(suggestions) == 0 {
			continue
		}
		out = append(out, ColumnSuggestions{Column: col, Header: header[col], Suggestions: suggestions})
	}
	return out, nil
}
