package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCanTransition_Graph(t *testing.T) {
	allowed := map[[2]BorrowStatus]bool{
		{BorrowPending, BorrowApproved}:  true,
		{BorrowPending, BorrowRejected}:  true,
		{BorrowPending, BorrowCancelled}: true,
		{BorrowApproved, BorrowReturned}: true,
		{BorrowOverdue, BorrowReturned}:  true,
	}
	all := []BorrowStatus{BorrowPending, BorrowApproved, BorrowRejected, BorrowReturned, BorrowOverdue, BorrowCancelled}
	for _, from := range all {
		for _, to := range all {
			err := CanTransition(from, to)
			if allowed[[2]BorrowStatus{from, to}] {
				require.NoError(t, err, "%s -> %s", from, to)
			} else {
				require.Error(t, err, "%s -> %s", from, to)
			}
		}
	}
}

func TestCanTransition_ClosedVsInvalid(t *testing.T) {
	require.ErrorIs(t, CanTransition(BorrowPending, BorrowReturned), ErrInvalidTransition)
	require.ErrorIs(t, CanTransition(BorrowApproved, BorrowCancelled), ErrInvalidTransition)
	require.ErrorIs(t, CanTransition(BorrowApproved, BorrowOverdue), ErrInvalidTransition)
	require.ErrorIs(t, CanTransition(BorrowRejected, BorrowApproved), ErrAlreadyClosed)
	require.ErrorIs(t, CanTransition(BorrowReturned, BorrowReturned), ErrAlreadyClosed)
}

func TestIsOverdue(t *testing.T) {
	due := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r := BorrowRequest{Status: BorrowApproved, ExpectedReturnDate: due}

	require.False(t, IsOverdue(r, due))
	require.True(t, IsOverdue(r, due.Add(time.Minute)))
	require.Equal(t, BorrowOverdue, DisplayStatus(r, due.Add(time.Hour)))

	r.Status = BorrowPending
	require.False(t, IsOverdue(r, due.Add(48*time.Hour)))
	require.Equal(t, BorrowPending, DisplayStatus(r, due.Add(time.Hour)))
}

func TestTotalAmount(t *testing.T) {
	require.Equal(t, 22.0, TotalAmount(20))
	require.Equal(t, 10.99, TotalAmount(9.99))
	require.Equal(t, 0.11, TotalAmount(0.1))
}

func TestValidateReturnWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 23, 30, 0, 0, time.UTC)

	require.ErrorIs(t, ValidateReturnWindow(now, now), ErrReturnWindow)
	require.NoError(t, ValidateReturnWindow(now, now.Add(time.Hour)))
	require.NoError(t, ValidateReturnWindow(now, now.AddDate(0, 0, 7)))
	require.NoError(t, ValidateReturnWindow(now, now.AddDate(0, 0, 30)))
	require.ErrorIs(t, ValidateReturnWindow(now, now.AddDate(0, 0, 31)), ErrReturnWindow)
	require.ErrorIs(t, ValidateReturnWindow(now, now.AddDate(0, 0, -1)), ErrReturnWindow)
}

func TestMeanRating(t *testing.T) {
	require.Equal(t, 4.0, MeanRating([]int{4, 5, 3}))
	require.Equal(t, 4.3, MeanRating([]int{4, 4, 5}))
	require.Equal(t, 0.0, MeanRating(nil))
}

func TestValidateISBN(t *testing.T) {
	require.True(t, ValidateISBN("0-306-40615-2"))
	require.True(t, ValidateISBN("080442957X"))
	require.True(t, ValidateISBN("978-3-16-148410-0"))
	require.False(t, ValidateISBN("12345"))
	require.False(t, ValidateISBN("97831614841AB"))
	require.False(t, ValidateISBN("X804429570"))
}

func TestValidCategory(t *testing.T) {
	require.Len(t, Categories, 14)
	require.True(t, ValidCategory("Self-Help"))
	require.False(t, ValidCategory("Poetry"))
}
