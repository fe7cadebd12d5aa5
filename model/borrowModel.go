// model/borrow.go
package model

import "time"

type BorrowStatus string

const (
	BorrowPending   BorrowStatus = "pending"
	BorrowApproved  BorrowStatus = "approved"
	BorrowRejected  BorrowStatus = "rejected"
	BorrowReturned  BorrowStatus = "returned"
	BorrowOverdue   BorrowStatus = "overdue"
	BorrowCancelled BorrowStatus = "cancelled"
)

func (s BorrowStatus) Valid() bool {
	switch s {
	case BorrowPending, BorrowApproved, BorrowRejected, BorrowReturned, BorrowOverdue, BorrowCancelled:
		return true
	}
	return false
}

// IsActive reports whether the request still holds, or may still take, a copy.
func (s BorrowStatus) IsActive() bool {
	return s == BorrowPending || s == BorrowApproved
}

func (s BorrowStatus) IsTerminal() bool {
	return s == BorrowRejected || s == BorrowReturned || s == BorrowCancelled
}

type BorrowRequest struct {
	ID                 string       `json:"id"`
	User               UserRef      `json:"user"`
	Book               BookRef      `json:"book"`
	Status             BorrowStatus `json:"status"`
	CreatedAt          time.Time    `json:"createdAt"`
	ExpectedReturnDate time.Time    `json:"expectedReturnDate"`
	ActualReturnDate   *time.Time   `json:"actualReturnDate,omitempty"`
	TotalAmount        float64      `json:"totalAmount"`
	FineAmount         float64      `json:"fineAmount"`
}

// BorrowQuery is the admin listing filter.
type BorrowQuery struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Search string `query:"search"`
	Status string `query:"status"`
}
