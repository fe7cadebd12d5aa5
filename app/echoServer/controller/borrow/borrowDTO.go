package borrow

import (
	"errors"
	"time"
)

type CreateReq struct {
	// RFC 3339 timestamp or a plain YYYY-MM-DD date.
	ExpectedReturnDate string `json:"expectedReturnDate" validate:"required"`
}

type StatusReq struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected returned overdue cancelled"`
}

var errBadDate = errors.New("expectedReturnDate must be RFC 3339 or YYYY-MM-DD")

// parseDue reads a plain date as the end of that day in UTC.
func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errBadDate
	}
	return d.Add(24*time.Hour - time.Second), nil
}
