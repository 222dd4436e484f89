package common

import (
	"net/http"
	"strconv"
)

const (
	defaultPerPage = 20
	// maxPerPage bounds a single page so no list endpoint can be asked for
	// an unbounded result set.
	maxPerPage = 100
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// ParsePagination extracts page and limit parameters from the query string.
// The per-page value is clamped to maxPerPage.
func ParsePagination(r *http.Request, fallbackPerPage int) (page, perPage int) {
	page = 1
	perPage = fallbackPerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		perPage = l
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return
}
