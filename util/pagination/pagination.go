package pagination

import "math"

type Options struct {
	DefaultLimit int
	MaxLimit     int
}

var (
	Books   = Options{DefaultLimit: 10, MaxLimit: 1000}
	Borrows = Options{DefaultLimit: 10, MaxLimit: 1000}
	Users   = Options{DefaultLimit: 5, MaxLimit: 1000}
)

type Params struct {
	Page  int
	Limit int
}

// Normalize clamps page to >= 1 and limit to [1, MaxLimit].
func (o Options) Normalize(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = o.DefaultLimit
	}
	if limit > o.MaxLimit {
		limit = o.MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

func (p Params) Offset() int { return (p.Page - 1) * p.Limit }

func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}
