package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"librarydesk/client/api"
	"librarydesk/model"
)

type BorrowAPI interface {
	RequestBorrow(ctx context.Context, bookID string, expected time.Time) (*model.BorrowRequest, error)
	ListBorrowRequests(ctx context.Context, q model.BorrowQuery) (*api.Page[model.BorrowRequest], error)
	MyBorrowRequests(ctx context.Context) ([]model.BorrowRequest, error)
	SetBorrowStatus(ctx context.Context, id string, status model.BorrowStatus) (*model.BorrowRequest, error)
	CancelBorrow(ctx context.Context, id string) (*model.BorrowRequest, error)
	ReturnBorrow(ctx context.Context, id string) (*model.BorrowRequest, error)
}

const (
	slotBorrowAll  = "borrow-all"
	slotBorrowMine = "borrow-mine"
)

// BorrowStore keeps the caller's own requests and, for admins, a page of all
// requests. Fines and inventory are never computed here.
type BorrowStore struct {
	api BorrowAPI
	seq Sequencer
	log *slog.Logger
	now func() time.Time

	mu      sync.Mutex
	mine    []model.BorrowRequest
	all     []model.BorrowRequest
	page    Pagination
	mineErr error
	allErr  error
}

func NewBorrowStore(a BorrowAPI, log *slog.Logger, now func() time.Time) *BorrowStore {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &BorrowStore{api: a, log: log, now: now}
}

// Request files a borrow request. A known active request for the same book,
// or a return date outside the allowed window, fails without a network call.
func (s *BorrowStore) Request(ctx context.Context, bookID string, expected time.Time) (*model.BorrowRequest, error) {
	if err := model.ValidateReturnWindow(s.now(), expected); err != nil {
		return nil, api.Invalid("INVALID_RETURN_DATE", err.Error())
	}
	s.mu.Lock()
	for _, r := range s.mine {
		if r.Book.ID == bookID && r.Status.IsActive() {
			s.mu.Unlock()
			return nil, api.Conflict("ACTIVE_REQUEST_EXISTS", "you already have an active request for this book", r.ID)
		}
	}
	s.mu.Unlock()

	out, err := s.api.RequestBorrow(ctx, bookID, expected)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mine = append([]model.BorrowRequest{*out}, s.mine...)
	return out, nil
}

func (s *BorrowStore) LoadMine(ctx context.Context) error {
	t := s.seq.Next(slotBorrowMine)
	rows, err := s.api.MyBorrowRequests(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seq.Current(t) {
		return ErrStale
	}
	if err != nil {
		s.mineErr = err
		return err
	}
	s.mineErr = nil
	s.mine = rows
	return nil
}

// LoadAll fetches a page of every request (admin view).
func (s *BorrowStore) LoadAll(ctx context.Context, q model.BorrowQuery) error {
	t := s.seq.Next(slotBorrowAll)
	page, err := s.api.ListBorrowRequests(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seq.Current(t) {
		return ErrStale
	}
	if err != nil {
		s.allErr = err
		return err
	}
	s.allErr = nil
	s.all = page.Items
	s.page = Pagination{Page: page.Page, Limit: page.Limit, TotalPages: page.TotalPages, Total: page.Total}
	return nil
}

// SetStatus is the admin transition. Transitions the known state already
// rules out are refused locally.
func (s *BorrowStore) SetStatus(ctx context.Context, id string, to model.BorrowStatus) (*model.BorrowRequest, error) {
	if !to.Valid() {
		return nil, api.Invalid("INVALID_STATUS", "unknown status "+string(to))
	}
	if r, ok := s.find(id); ok {
		if err := model.CanTransition(r.Status, to); err != nil {
			return nil, transitionErr(err, r.ID)
		}
	}
	out, err := s.api.SetBorrowStatus(ctx, id, to)
	if err != nil {
		return nil, err
	}
	s.apply(*out)
	return out, nil
}

func (s *BorrowStore) Cancel(ctx context.Context, id string) (*model.BorrowRequest, error) {
	if r, ok := s.find(id); ok {
		if err := model.CanTransition(r.Status, model.BorrowCancelled); err != nil {
			return nil, transitionErr(err, r.ID)
		}
	}
	out, err := s.api.CancelBorrow(ctx, id)
	if err != nil {
		return nil, err
	}
	s.apply(*out)
	return out, nil
}

func (s *BorrowStore) Return(ctx context.Context, id string) (*model.BorrowRequest, error) {
	if r, ok := s.find(id); ok {
		if err := model.CanTransition(r.Status, model.BorrowReturned); err != nil {
			return nil, transitionErr(err, r.ID)
		}
	}
	out, err := s.api.ReturnBorrow(ctx, id)
	if err != nil {
		return nil, err
	}
	s.apply(*out)
	return out, nil
}

// Mine returns the caller's requests with overdue derived from the clock.
func (s *BorrowStore) Mine() []model.BorrowRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display(s.mine)
}

func (s *BorrowStore) All() []model.BorrowRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display(s.all)
}

func (s *BorrowStore) Pagination() Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// MineErr reports the last failed LoadMine.
func (s *BorrowStore) MineErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mineErr
}

// AllErr reports the last failed LoadAll.
func (s *BorrowStore) AllErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allErr
}

func (s *BorrowStore) display(rows []model.BorrowRequest) []model.BorrowRequest {
	now := s.now()
	out := make([]model.BorrowRequest, len(rows))
	for i, r := range rows {
		r.Status = model.DisplayStatus(r, now)
		out[i] = r
	}
	return out
}

func (s *BorrowStore) find(id string) (model.BorrowRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range [][]model.BorrowRequest{s.all, s.mine} {
		for _, r := range list {
			if r.ID == id {
				return r, true
			}
		}
	}
	return model.BorrowRequest{}, false
}

// apply writes a server copy into both lists.
func (s *BorrowStore) apply(r model.BorrowRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.all {
		if s.all[i].ID == r.ID {
			s.all[i] = r
		}
	}
	for i := range s.mine {
		if s.mine[i].ID == r.ID {
			s.mine[i] = r
		}
	}
}

func transitionErr(err error, id string) error {
	if errors.Is(err, model.ErrAlreadyClosed) {
		return api.Conflict("ALREADY_CLOSED", "borrow request is already closed", id)
	}
	return api.Conflict("INVALID_TRANSITION", "status change not allowed", id)
}
