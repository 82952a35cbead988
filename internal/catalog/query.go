// Package catalog holds the pure query logic behind catalog listings: status
// gating, facet filters, substring search, relevance ranking and pagination.
// Nothing here touches storage.
package catalog

import (
	"sort"
	"strings"

	"github.com/noah-isme/examhub-api/internal/models"
)

// Facets answers whether a class or subject is part of the current taxonomy.
type Facets struct {
	classes  map[string]struct{}
	subjects map[string]struct{}
}

// NewFacets indexes every class and subject of the given levels.
func NewFacets(levels []models.EducationLevel) *Facets {
	f := &Facets{classes: make(map[string]struct{}), subjects: make(map[string]struct{})}
	for _, level := range levels {
		for _, c := range level.Classes {
			f.classes[c] = struct{}{}
		}
		for _, s := range level.Subjects {
			f.subjects[s] = struct{}{}
		}
	}
	return f
}

// HasClass reports whether the class exists in any level.
func (f *Facets) HasClass(classe string) bool {
	_, ok := f.classes[classe]
	return ok
}

// HasSubject reports whether the subject exists in any level.
func (f *Facets) HasSubject(matiere string) bool {
	_, ok := f.subjects[matiere]
	return ok
}

type options struct {
	allStatuses bool
	facets      *Facets
}

// Option tunes Filter.
type Option func(*options)

// IncludeAllStatuses lifts the approved-only gate for moderation views.
func IncludeAllStatuses() Option {
	return func(o *options) { o.allStatuses = true }
}

// WithFacets makes classe/matiere filters that name a value missing from the
// taxonomy match nothing.
func WithFacets(f *Facets) Option {
	return func(o *options) { o.facets = f }
}

// Filter applies the status gate, exact classe/matiere filters and the
// substring search, then orders the survivors by the requested sort key.
// The input slice is left untouched.
func Filter(docs []models.Document, state models.FilterState, opts ...Option) []models.Document {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	state = state.Normalize()

	out := make([]models.Document, 0, len(docs))
	if cfg.facets != nil {
		if state.Classe != "" && !cfg.facets.HasClass(state.Classe) {
			return out
		}
		if state.Matiere != "" && !cfg.facets.HasSubject(state.Matiere) {
			return out
		}
	}

	term := strings.ToLower(state.Search)
	for _, d := range docs {
		if !cfg.allStatuses && !d.Visible() {
			continue
		}
		if state.Classe != "" && d.Classe != state.Classe {
			continue
		}
		if state.Matiere != "" && d.Matiere != state.Matiere {
			continue
		}
		if term != "" && !containsAny(term, d.Title, d.Description, d.Matiere, d.Classe) {
			continue
		}
		out = append(out, d)
	}
	Sort(out, state.Sort)
	return out
}

// Sort orders documents in place. Equal keys keep their relative order.
func Sort(docs []models.Document, key models.SortKey) {
	switch models.ParseSortKey(string(key)) {
	case models.SortPopular:
		sort.SliceStable(docs, func(i, j int) bool { return docs[i].Downloads > docs[j].Downloads })
	case models.SortFavorites:
		sort.SliceStable(docs, func(i, j int) bool { return docs[i].Favorites > docs[j].Favorites })
	default:
		sort.SliceStable(docs, func(i, j int) bool { return docs[i].UploadDate.After(docs[j].UploadDate) })
	}
}

const (
	scoreTitle = 2
	scoreOther = 1
)

// Result is a ranked search hit.
type Result struct {
	Document models.Document `json:"document"`
	Score    int             `json:"score"`
}

// Search ranks approved documents against a free-text term. A title match
// scores 2, a match on description, subject, class or uploader name scores 1,
// anything else is dropped. Hits within a score keep their input order.
// An empty term returns every approved document, most recent first.
func Search(docs []models.Document, term string) []Result {
	term = strings.ToLower(strings.TrimSpace(term))
	results := make([]Result, 0, len(docs))

	if term == "" {
		visible := Filter(docs, models.FilterState{Sort: models.SortRecent})
		for _, d := range visible {
			results = append(results, Result{Document: d})
		}
		return results
	}

	for _, d := range docs {
		if !d.Visible() {
			continue
		}
		score := Score(d, term)
		if score == 0 {
			continue
		}
		results = append(results, Result{Document: d, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

// Score returns the relevance bucket of a document for a lower-cased term.
func Score(d models.Document, term string) int {
	if strings.Contains(strings.ToLower(d.Title), term) {
		return scoreTitle
	}
	if containsAny(term, d.Description, d.Matiere, d.Classe, d.Uploader.Name) {
		return scoreOther
	}
	return 0
}

// Documents unwraps search results keeping their rank order.
func Documents(results []Result) []models.Document {
	out := make([]models.Document, len(results))
	for i, r := range results {
		out[i] = r.Document
	}
	return out
}

func containsAny(term string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
