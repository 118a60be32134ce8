package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategories(t *testing.T) {
	got := ParseCategories("books, electronics,unknown,books", "home")
	assert.Equal(t, []Category{CategoryBooks, CategoryElectronics, CategoryHome}, got)

	assert.Empty(t, ParseCategories(""))
	assert.Empty(t, ParseCategories("toys"))
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, SortPriceAsc, ParseSort(" price_asc "))
	assert.Equal(t, SortPopular, ParseSort("popular"))
	assert.Equal(t, SortNewest, ParseSort("cheapest"))
	assert.Equal(t, SortNewest, ParseSort(""))
}

func TestParsePage(t *testing.T) {
	tests := map[string]int{
		"3":     3,
		" 7 ":   7,
		"+4":    4,
		"12abc": 12,
		"2.9":   2,
		"0":     1,
		"-2":    1,
		"-":     1,
		"abc":   1,
		"a12":   1,
		"":      1,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParsePage(in), "ParsePage(%q)", in)
	}
	assert.Equal(t, 1, ParsePage("99999999999999999999"), "out of range")
}

func TestNewPageMeta(t *testing.T) {
	tests := map[string]struct {
		page, total int
		want        PageMeta
	}{
		"empty result keeps one page": {
			page: 4, total: 0,
			want: PageMeta{CurrentPage: 1, PerPage: 12, TotalItems: 0, TotalPages: 1},
		},
		"middle page": {
			page: 2, total: 30,
			want: PageMeta{CurrentPage: 2, PerPage: 12, TotalItems: 30, TotalPages: 3, HasNextPage: true, HasPrevPage: true},
		},
		"page past the end is clamped": {
			page: 9, total: 24,
			want: PageMeta{CurrentPage: 2, PerPage: 12, TotalItems: 24, TotalPages: 2, HasPrevPage: true},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPageMeta(tt.page, tt.total, PerPage))
		})
	}
}
