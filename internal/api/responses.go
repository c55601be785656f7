package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultPerPage = 50
	maxPerPage     = 100
)

// Page is one page of a listing
type Page[T any] struct {
	Data       []T               `json:"data"`
	Pagination PageInfo          `json:"pagination"`
	Filters    map[string]string `json:"filters,omitempty"`
}

// PageInfo locates a page within the full result set
type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// pageRequest is the page asked for by ?page= and ?per_page=. Missing or
// malformed values fall back to the first page of defaultPerPage, and
// per_page is capped at maxPerPage.
type pageRequest struct {
	page    int
	perPage int
}

func parsePageRequest(c echo.Context) pageRequest {
	req := pageRequest{page: 1, perPage: defaultPerPage}

	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		req.page = p
	}
	if pp, err := strconv.Atoi(c.QueryParam("per_page")); err == nil && pp > 0 {
		req.perPage = min(pp, maxPerPage)
	}

	return req
}

func (r pageRequest) offset() int {
	return (r.page - 1) * r.perPage
}

// respondPage writes items as page r of total results
func respondPage[T any](c echo.Context, r pageRequest, items []T, total int, filters map[string]string) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, &Page[T]{
		Data: items,
		Pagination: PageInfo{
			Page:       r.page,
			PerPage:    r.perPage,
			Total:      total,
			TotalPages: (total + r.perPage - 1) / r.perPage,
		},
		Filters: filters,
	})
}

// SuccessOK writes data with 200 OK
func SuccessOK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}
