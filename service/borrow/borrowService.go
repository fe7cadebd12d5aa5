package borrowsvc

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"librarydesk/model"
	borrowrepo "librarydesk/repository/borrow"
	"librarydesk/util/pagination"
)

// errors used by controllers

type ErrCode string

const (
	ErrReturnWindow      ErrCode = "INVALID_RETURN_DATE"
	ErrInvalidStatus     ErrCode = "INVALID_STATUS"
	ErrBookNotFound      ErrCode = "BOOK_NOT_FOUND"
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrNoStock           ErrCode = "NO_STOCK"
	ErrActiveExists      ErrCode = "ACTIVE_REQUEST_EXISTS"
	ErrInvalidTransition ErrCode = "INVALID_TRANSITION"
	ErrAlreadyClosed     ErrCode = "ALREADY_CLOSED"
	ErrNotOwner          ErrCode = "NOT_OWNER"
)

type codedError struct {
	code       ErrCode
	conflictID string
}

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// ConflictError reports code against the existing request id.
func ConflictError(code ErrCode, id string) error { return codedError{code: code, conflictID: id} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// ConflictID returns the id of the request that caused a conflict, if any.
func ConflictID(err error) string {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.conflictID
	}
	return ""
}

// FinePolicy charges PerDay for every started day past the expected return date.
type FinePolicy struct {
	PerDay float64
}

func (p FinePolicy) Fine(expected, returnedAt time.Time) float64 {
	if !returnedAt.After(expected) {
		return 0
	}
	days := int(math.Ceil(returnedAt.Sub(expected).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return model.Round2(float64(days) * p.PerDay)
}

type Page struct {
	Items      []model.BorrowRequest
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

type Service interface {
	// Create files a pending request; inventory is untouched until approval.
	Create(ctx context.Context, userID, bookID string, expected time.Time) (*model.BorrowRequest, error)

	// SetStatus is the administrative transition with its inventory side effects.
	SetStatus(ctx context.Context, id string, status model.BorrowStatus) (*model.BorrowRequest, error)

	// Cancel withdraws the caller's own pending request.
	Cancel(ctx context.Context, userID, id string) (*model.BorrowRequest, error)

	// Return closes the caller's own approved request.
	Return(ctx context.Context, userID, id string) (*model.BorrowRequest, error)

	List(ctx context.Context, q model.BorrowQuery) (*Page, error)
	Mine(ctx context.Context, userID string) ([]model.BorrowRequest, error)
}

type service struct {
	r    borrowrepo.Repo
	fine FinePolicy
	now  func() time.Time
}

func New(r borrowrepo.Repo, fine FinePolicy, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{r: r, fine: fine, now: now}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *service) activeConflict(ctx context.Context, userID, bookID string) error {
	var existing string
	err := s.r.InTx(ctx, func(tx borrowrepo.TxRepo) error {
		var err error
		existing, err = tx.FindActive(ctx, userID, bookID)
		return err
	})
	if err != nil {
		return err
	}
	return ConflictError(ErrActiveExists, existing)
}

func (s *service) Create(ctx context.Context, userID, bookID string, expected time.Time) (*model.BorrowRequest, error) {
	if !validID(bookID) {
		return nil, makeErr(ErrBookNotFound)
	}
	now := s.now().UTC()
	if err := model.ValidateReturnWindow(now, expected); err != nil {
		return nil, makeErr(ErrReturnWindow)
	}

	var out *model.BorrowRequest
	err := s.r.InTx(ctx, func(tx borrowrepo.TxRepo) error {
		book, avail, err := tx.LockBook(ctx, bookID)
		if err != nil {
			if errors.Is(err, borrowrepo.ErrBookNotFound) {
				return makeErr(ErrBookNotFound)
			}
			return err
		}

		// the book row lock serializes concurrent creates for this book
		existing, err := tx.FindActive(ctx, userID, bookID)
		if err != nil {
			return err
		}
		if existing != "" {
			return ConflictError(ErrActiveExists, existing)
		}
		if avail <= 0 {
			return makeErr(ErrNoStock)
		}

		req := &model.BorrowRequest{
			ID:                 uuid.NewString(),
			User:               model.UserRef{ID: userID},
			Book:               *book,
			Status:             model.BorrowPending,
			ExpectedReturnDate: expected.UTC(),
			TotalAmount:        model.TotalAmount(book.Price),
		}
		if err := tx.Insert(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if errors.Is(err, borrowrepo.ErrActiveExists) {
		// the unique index won; the aborted tx cannot be queried again
		return nil, s.activeConflict(ctx, userID, bookID)
	}
	if err != nil {
		return nil, err
	}
	// reload for the borrower's name and email
	return s.r.Get(ctx, out.ID)
}

func (s *service) SetStatus(ctx context.Context, id string, status model.BorrowStatus) (*model.BorrowRequest, error) {
	if !status.Valid() {
		return nil, makeErr(ErrInvalidStatus)
	}
	return s.transition(ctx, id, "", status)
}

func (s *service) Cancel(ctx context.Context, userID, id string) (*model.BorrowRequest, error) {
	return s.transition(ctx, id, userID, model.BorrowCancelled)
}

func (s *service) Return(ctx context.Context, userID, id string) (*model.BorrowRequest, error) {
	return s.transition(ctx, id, userID, model.BorrowReturned)
}

// transition applies one lifecycle step under the request row lock. A non-empty
// owner restricts the step to the request's borrower.
func (s *service) transition(ctx context.Context, id, owner string, to model.BorrowStatus) (*model.BorrowRequest, error) {
	if !validID(id) {
		return nil, makeErr(ErrNotFound)
	}

	var out *model.BorrowRequest
	err := s.r.InTx(ctx, func(tx borrowrepo.TxRepo) error {
		req, err := tx.LockRequest(ctx, id)
		if err != nil {
			if errors.Is(err, borrowrepo.ErrNotFound) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		if owner != "" && req.User.ID != owner {
			return makeErr(ErrNotOwner)
		}

		switch err := model.CanTransition(req.Status, to); {
		case errors.Is(err, model.ErrAlreadyClosed):
			return makeErr(ErrAlreadyClosed)
		case err != nil:
			return makeErr(ErrInvalidTransition)
		}

		switch to {
		case model.BorrowApproved:
			if err := tx.TakeCopy(ctx, req.Book.ID); err != nil {
				if errors.Is(err, borrowrepo.ErrNoCopies) {
					return makeErr(ErrNoStock)
				}
				return err
			}
		case model.BorrowReturned:
			now := s.now().UTC()
			req.ActualReturnDate = &now
			req.FineAmount = s.fine.Fine(req.ExpectedReturnDate, now)
			if err := tx.ReleaseCopy(ctx, req.Book.ID); err != nil {
				return err
			}
		}

		req.Status = to
		if err := tx.UpdateStatus(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) List(ctx context.Context, q model.BorrowQuery) (*Page, error) {
	if q.Status != "" && !model.BorrowStatus(q.Status).Valid() {
		return nil, makeErr(ErrInvalidStatus)
	}
	p := pagination.Borrows.Normalize(q.Page, q.Limit)
	items, total, err := s.r.ListAll(ctx, q, p)
	if err != nil {
		return nil, err
	}
	return &Page{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: pagination.TotalPages(total, p.Limit),
	}, nil
}

func (s *service) Mine(ctx context.Context, userID string) ([]model.BorrowRequest, error) {
	return s.r.ListByUser(ctx, userID)
}
