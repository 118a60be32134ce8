package catalog

import (
	"strconv"
	"strings"
)

// PerPage is the fixed listing page size.
const PerPage = 12

type Sort string

const (
	SortNewest    Sort = ""
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
	SortPopular   Sort = "popular"
	SortNameAsc   Sort = "name_asc"
)

// Query selects a page of active products.
type Query struct {
	Categories []Category
	Search     string
	Sort       Sort
	Page       int
	PerPage    int
}

func (q Query) normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = PerPage
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func (q Query) offset() int {
	return (q.Page - 1) * q.PerPage
}

// ParseCategories extracts known filter categories from a comma separated
// value, dropping unknown entries and duplicates while keeping order.
func ParseCategories(values ...string) []Category {
	seen := make(map[Category]bool)
	var out []Category
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			c := Category(strings.TrimSpace(part))
			if seen[c] || !isFilterCategory(c) {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func isFilterCategory(c Category) bool {
	for _, known := range FilterCategories {
		if c == known {
			return true
		}
	}
	return false
}

func ParseSort(v string) Sort {
	switch s := Sort(strings.TrimSpace(v)); s {
	case SortPriceAsc, SortPriceDesc, SortPopular, SortNameAsc:
		return s
	default:
		return SortNewest
	}
}

// ParsePage reads the leading integer of v, so "12abc" is page 12. Anything
// without one, or below 1, is page 1.
func ParsePage(v string) int {
	v = strings.TrimSpace(v)
	end := 0
	if end < len(v) && (v[end] == '+' || v[end] == '-') {
		end++
	}
	digits := end
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == digits {
		return 1
	}
	n, err := strconv.Atoi(v[:end])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func ParseSearch(v string) string {
	return strings.TrimSpace(v)
}

type PageMeta struct {
	CurrentPage int  `json:"currentPage"`
	PerPage     int  `json:"perPage"`
	TotalItems  int  `json:"totalItems"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewPageMeta clamps page into [1, totalPages]; an empty result still has one page.
func NewPageMeta(page, totalItems, perPage int) PageMeta {
	if perPage < 1 {
		perPage = PerPage
	}
	totalPages := (totalItems + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	current := page
	if current > totalPages {
		current = totalPages
	}
	if current < 1 {
		current = 1
	}
	return PageMeta{
		CurrentPage: current,
		PerPage:     perPage,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasNextPage: current < totalPages,
		HasPrevPage: current > 1,
	}
}
