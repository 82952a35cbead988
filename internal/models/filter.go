package models

import (
	"fmt"
	"strings"
)

// SortKey selects the ordering of catalog listings.
type SortKey string

const (
	SortRecent    SortKey = "recent"
	SortPopular   SortKey = "popular"
	SortFavorites SortKey = "favorites"
)

// ParseSortKey maps user input onto a known key, defaulting to recent.
func ParseSortKey(raw string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(raw))) {
	case SortPopular:
		return SortPopular
	case SortFavorites:
		return SortFavorites
	default:
		return SortRecent
	}
}

// FilterState is the transient catalog filter supplied on every query.
type FilterState struct {
	Classe  string  `json:"classe,omitempty"`
	Matiere string  `json:"matiere,omitempty"`
	Sort    SortKey `json:"sort,omitempty"`
	Search  string  `json:"search,omitempty"`
}

// Normalize trims inputs and resolves the sort key.
func (f FilterState) Normalize() FilterState {
	return FilterState{
		Classe:  strings.TrimSpace(f.Classe),
		Matiere: strings.TrimSpace(f.Matiere),
		Sort:    ParseSortKey(string(f.Sort)),
		Search:  strings.TrimSpace(f.Search),
	}
}

// Signature identifies the filter for cache keys and page resets.
func (f FilterState) Signature() string {
	n := f.Normalize()
	return fmt.Sprintf("c=%s|m=%s|s=%s|q=%s", n.Classe, n.Matiere, n.Sort, strings.ToLower(n.Search))
}
