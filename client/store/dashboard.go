package store

import (
	"sort"
	"time"

	"librarydesk/model"
)

type Range string

const (
	Range24Hours Range = "24hr"
	Range7Days   Range = "7days"
	Range30Days  Range = "30days"
	Range90Days  Range = "90days"
	Range1Year   Range = "1year"
	RangeAll     Range = "all"
)

// Since returns the cutoff for r; the zero time means no cutoff.
func Since(r Range, now time.Time) time.Time {
	switch r {
	case Range24Hours:
		return now.AddDate(0, 0, -1)
	case Range7Days:
		return now.AddDate(0, 0, -7)
	case Range30Days:
		return now.AddDate(0, 0, -30)
	case Range90Days:
		return now.AddDate(0, 0, -90)
	case Range1Year:
		return now.AddDate(-1, 0, 0)
	}
	return time.Time{}
}

type Summary struct {
	TotalBooks int
	TotalUsers int
	Admins     int
	// Borrowed counts approved and returned requests.
	Borrowed   int
	Revenue    float64
	ByCategory map[model.Category]int
	ByStatus   map[model.BorrowStatus]int
	// Recent holds up to five newest requests.
	Recent     []model.BorrowRequest
}

const recentRequests = 5

// Summarize aggregates the admin dashboard over records created at or after since.
func Summarize(books []model.Book, users []model.User, requests []model.BorrowRequest, since time.Time) Summary {
	s := Summary{
		ByCategory: map[model.Category]int{},
		ByStatus: map[model.BorrowStatus]int{
			model.BorrowPending:  0,
			model.BorrowApproved: 0,
			model.BorrowReturned: 0,
			model.BorrowRejected: 0,
		},
	}
	for _, b := range books {
		if b.CreatedAt.Before(since) {
			continue
		}
		s.TotalBooks++
		s.ByCategory[b.Category]++
	}
	for _, u := range users {
		if u.CreatedAt.Before(since) {
			continue
		}
		s.TotalUsers++
		if u.Role == model.RoleAdmin {
			s.Admins++
		}
	}

	var kept []model.BorrowRequest
	for _, r := range requests {
		if r.CreatedAt.Before(since) {
			continue
		}
		kept = append(kept, r)
		if _, tracked := s.ByStatus[r.Status]; tracked {
			s.ByStatus[r.Status]++
		}
		switch r.Status {
		case model.BorrowApproved:
			s.Borrowed++
		case model.BorrowReturned:
			s.Borrowed++
			s.Revenue += r.TotalAmount
		}
	}
	s.Revenue = model.Round2(s.Revenue)

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].CreatedAt.After(kept[j].CreatedAt) })
	if len(kept) > recentRequests {
		kept = kept[:recentRequests]
	}
	s.Recent = kept
	return s
}
