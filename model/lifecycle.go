package model

import (
	"errors"
	"math"
	"time"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyClosed     = errors.New("borrow request already closed")
	ErrReturnWindow      = errors.New("expected return date must be 1 to 30 days from today")
)

const (
	TaxRate         = 0.10
	MinBorrowDays   = 1
	MaxBorrowDays   = 30
	MinReviewRating = 1
	MaxReviewRating = 5
)

var transitions = map[BorrowStatus][]BorrowStatus{
	BorrowPending:  {BorrowApproved, BorrowRejected, BorrowCancelled},
	BorrowApproved: {BorrowReturned},
	BorrowOverdue:  {BorrowReturned},
}

// CanTransition checks a status change against the borrow lifecycle graph.
// Moving out of a terminal state yields ErrAlreadyClosed so callers can tell
// a late duplicate update apart from a malformed one.
func CanTransition(from, to BorrowStatus) error {
	if from.IsTerminal() {
		return ErrAlreadyClosed
	}
	for _, s := range transitions[from] {
		if s == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// IsOverdue is derived on demand and never stored.
func IsOverdue(r BorrowRequest, now time.Time) bool {
	return r.Status == BorrowApproved && now.After(r.ExpectedReturnDate)
}

// DisplayStatus is the status to show for r at time now.
func DisplayStatus(r BorrowRequest, now time.Time) BorrowStatus {
	if IsOverdue(r, now) {
		return BorrowOverdue
	}
	return r.Status
}

// TotalAmount is the borrowing fee plus tax, in cents precision.
func TotalAmount(price float64) float64 {
	return Round2(price * (1 + TaxRate))
}

// ValidateReturnWindow requires expected to fall 1..30 calendar days (UTC)
// after now.
func ValidateReturnWindow(now, expected time.Time) error {
	days := daysBetween(now, expected)
	if days < MinBorrowDays || days > MaxBorrowDays {
		return ErrReturnWindow
	}
	return nil
}

func ValidRating(r int) bool { return r >= MinReviewRating && r <= MaxReviewRating }

// MeanRating averages ratings to one decimal; an empty list rates 0.
func MeanRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return Round1(float64(sum) / float64(len(ratings)))
}

func Round1(v float64) float64 { return math.Round(v*10) / 10 }
func Round2(v float64) float64 { return math.Round(v*100) / 100 }

func daysBetween(a, b time.Time) int {
	da := time.Date(a.UTC().Year(), a.UTC().Month(), a.UTC().Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.UTC().Year(), b.UTC().Month(), b.UTC().Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
