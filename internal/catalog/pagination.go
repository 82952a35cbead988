package catalog

import (
	"fmt"

	"github.com/noah-isme/examhub-api/internal/models"
)

// DefaultMaxVisible is the width of the page-number window.
const DefaultMaxVisible = 5

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Items       []T `json:"items"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
	StartIndex  int `json:"startIndex"`
	EndIndex    int `json:"endIndex"`
}

// Paginate cuts items into pages of pageSize and returns the requested one.
// There is always at least one page; the page number is clamped into range.
func Paginate[T any](items []T, pageSize, page int) Page[T] {
	if pageSize < 1 {
		pageSize = 1
	}
	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return Page[T]{
		Items:       append(make([]T, 0, end-start), items[start:end]...),
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		StartIndex:  start,
		EndIndex:    end,
	}
}

// PageWindow lists the page links to show around the current page, collapsing
// gaps into an ellipsis:
//
//	1 2 3 4 … N         near the start
//	1 … N-3 N-2 N-1 N   near the end
//	1 … c-1 c c+1 … N   elsewhere
func PageWindow(current, total, maxVisible int) []models.PageToken {
	if maxVisible <= 0 {
		maxVisible = DefaultMaxVisible
	}
	if total < 1 {
		total = 1
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}

	if total <= maxVisible {
		tokens := make([]models.PageToken, 0, total)
		for i := 1; i <= total; i++ {
			tokens = append(tokens, models.PageNumber(i))
		}
		return tokens
	}

	switch {
	case current <= 3:
		return []models.PageToken{
			models.PageNumber(1), models.PageNumber(2), models.PageNumber(3), models.PageNumber(4),
			models.Ellipsis(), models.PageNumber(total),
		}
	case current >= total-2:
		return []models.PageToken{
			models.PageNumber(1), models.Ellipsis(),
			models.PageNumber(total - 3), models.PageNumber(total - 2), models.PageNumber(total - 1), models.PageNumber(total),
		}
	default:
		return []models.PageToken{
			models.PageNumber(1), models.Ellipsis(),
			models.PageNumber(current - 1), models.PageNumber(current), models.PageNumber(current + 1),
			models.Ellipsis(), models.PageNumber(total),
		}
	}
}

// ViewSignature identifies a derived result list. It changes whenever the
// filter or the number of matching documents changes.
func ViewSignature(state models.FilterState, matched int) string {
	return fmt.Sprintf("%s|n=%d", state.Signature(), matched)
}

// ResolvePage returns the page to serve. A caller that reports the signature
// of the view it was paging through keeps its page only while that view is
// unchanged; otherwise it starts over at page 1.
func ResolvePage(previous, current string, requested int) int {
	if previous != "" && previous != current {
		return 1
	}
	if requested < 1 {
		return 1
	}
	return requested
}

// PaginationMeta converts a page into the response pagination block.
func PaginationMeta[T any](page Page[T], pageSize, maxVisible int) *models.Pagination {
	return &models.Pagination{
		Page:       page.CurrentPage,
		PageSize:   pageSize,
		TotalCount: page.TotalItems,
		TotalPages: page.TotalPages,
		Window:     PageWindow(page.CurrentPage, page.TotalPages, maxVisible),
	}
}
