package api

import (
	"net/url"
	"strconv"
)

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T
	Page       int
	Limit      int
	TotalPages int
	Total      int64
}

// LastPage reports whether no further pages exist.
func (p *Page[T]) LastPage() bool { return p.Page >= p.TotalPages }

type listEnvelope[T any] struct {
	Data           []T   `json:"data"`
	Page           int   `json:"page"`
	Limit          int   `json:"limit"`
	TotalPages     int   `json:"totalPages"`
	TotalBooks     int64 `json:"totalBooks"`
	TotalBorrowReq int64 `json:"totalBorrowReq"`
	TotalUsers     int64 `json:"totalUsers"`
}

func (e listEnvelope[T]) page() *Page[T] {
	items := e.Data
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:      items,
		Page:       e.Page,
		Limit:      e.Limit,
		TotalPages: e.TotalPages,
		Total:      e.TotalBooks + e.TotalBorrowReq + e.TotalUsers,
	}
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

func setInt(q url.Values, k string, v int) {
	if v > 0 {
		q.Set(k, strconv.Itoa(v))
	}
}

func setStr(q url.Values, k, v string) {
	if v != "" {
		q.Set(k, v)
	}
}
