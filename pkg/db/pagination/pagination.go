package pagination

import "math"

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Pagination is the page-number request shape shared by list endpoints.
type Pagination struct {
	Page    int `form:"page"`
	PerPage int `form:"per_page"`
}

type PageInfo struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

// Normalize clamps page to >= 1 and per_page to [1, max], defaulting when unset.
func (p Pagination) Normalize(def, max int) Pagination {
	if def <= 0 {
		def = DefaultPerPage
	}
	if max <= 0 {
		max = MaxPerPage
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = def
	}
	if p.PerPage > max {
		p.PerPage = max
	}
	return p
}

func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

func (p Pagination) Limit() int {
	return p.PerPage
}

func BuildPageInfo(p Pagination, total int64) PageInfo {
	pages := 0
	if p.PerPage > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.PerPage)))
	}
	return PageInfo{
		Page:    p.Page,
		PerPage: p.PerPage,
		Total:   total,
		Pages:   pages,
		HasNext: p.Page < pages,
		HasPrev: p.Page > 1,
	}
}

// Page is a generic list response.
type Page[T any] struct {
	Items    []T      `json:"items"`
	PageInfo PageInfo `json:"pagination"`
}
