package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"librarydesk/client/api"
	"librarydesk/model"
)

var clock = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return clock }

func TestBorrowRequest_KnownActiveRequestConflictsLocally(t *testing.T) {
	m := &borrowMock{
		MineFn: func(ctx context.Context) ([]model.BorrowRequest, error) {
			return []model.BorrowRequest{
				{ID: "r1", Book: model.BookRef{ID: "b1"}, Status: model.BorrowPending},
				{ID: "r0", Book: model.BookRef{ID: "b2"}, Status: model.BorrowReturned},
			}, nil
		},
		RequestFn: func(ctx context.Context, bookID string, expected time.Time) (*model.BorrowRequest, error) {
			return &model.BorrowRequest{ID: "r2", Book: model.BookRef{ID: bookID}, Status: model.BorrowPending}, nil
		},
	}
	s := NewBorrowStore(m, nil, fixedNow)
	ctx := context.Background()
	require.NoError(t, s.LoadMine(ctx))

	_, err := s.Request(ctx, "b1", clock.AddDate(0, 0, 7))
	e, ok := api.AsError(err)
	require.True(t, ok)
	require.Equal(t, api.KindConflict, e.Kind)
	require.Equal(t, "r1", e.ConflictID)

	out, err := s.Request(ctx, "b2", clock.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Equal(t, "r2", out.ID)
	require.Equal(t, "r2", s.Mine()[0].ID)
}

func TestBorrowRequest_ReturnWindow(t *testing.T) {
	m := &borrowMock{
		RequestFn: func(ctx context.Context, bookID string, expected time.Time) (*model.BorrowRequest, error) {
			t.Fatal("out-of-window request should not be sent")
			return nil, nil
		},
	}
	s := NewBorrowStore(m, nil, fixedNow)
	for _, d := range []time.Time{clock, clock.AddDate(0, 0, 31), clock.AddDate(0, 0, -1)} {
		_, err := s.Request(context.Background(), "b1", d)
		require.True(t, api.IsKind(err, api.KindValidation))
	}
}

func TestBorrowSetStatus_ClosedRequestRefusedLocally(t *testing.T) {
	m := &borrowMock{
		ListFn: func(ctx context.Context, q model.BorrowQuery) (*api.Page[model.BorrowRequest], error) {
			return &api.Page[model.BorrowRequest]{Page: 1, TotalPages: 1, Total: 2, Items: []model.BorrowRequest{
				{ID: "r1", Status: model.BorrowReturned},
				{ID: "r2", Status: model.BorrowPending},
			}}, nil
		},
		SetFn: func(ctx context.Context, id string, status model.BorrowStatus) (*model.BorrowRequest, error) {
			return &model.BorrowRequest{ID: id, Status: status, ExpectedReturnDate: clock.AddDate(0, 0, 7)}, nil
		},
	}
	s := NewBorrowStore(m, nil, fixedNow)
	ctx := context.Background()
	require.NoError(t, s.LoadAll(ctx, model.BorrowQuery{}))

	_, err := s.SetStatus(ctx, "r1", model.BorrowApproved)
	e, _ := api.AsError(err)
	require.Equal(t, "ALREADY_CLOSED", e.Code)

	_, err = s.SetStatus(ctx, "r2", model.BorrowReturned)
	e, _ = api.AsError(err)
	require.Equal(t, "INVALID_TRANSITION", e.Code)

	_, err = s.SetStatus(ctx, "r2", model.BorrowOverdue)
	require.True(t, api.IsKind(err, api.KindConflict))

	out, err := s.SetStatus(ctx, "r2", model.BorrowApproved)
	require.NoError(t, err)
	require.Equal(t, model.BorrowApproved, out.Status)
	require.Equal(t, model.BorrowApproved, s.All()[1].Status)
}

func TestBorrowMine_OverdueIsDerived(t *testing.T) {
	m := &borrowMock{
		MineFn: func(ctx context.Context) ([]model.BorrowRequest, error) {
			return []model.BorrowRequest{
				{ID: "late", Status: model.BorrowApproved, ExpectedReturnDate: clock.Add(-time.Hour)},
				{ID: "fine", Status: model.BorrowApproved, ExpectedReturnDate: clock.Add(time.Hour)},
			}, nil
		},
		ReturnFn: func(ctx context.Context, id string) (*model.BorrowRequest, error) {
			done := clock
			return &model.BorrowRequest{ID: id, Status: model.BorrowReturned, ActualReturnDate: &done, FineAmount: 1}, nil
		},
	}
	s := NewBorrowStore(m, nil, fixedNow)
	ctx := context.Background()
	require.NoError(t, s.LoadMine(ctx))

	mine := s.Mine()
	require.Equal(t, model.BorrowOverdue, mine[0].Status)
	require.Equal(t, model.BorrowApproved, mine[1].Status)

	out, err := s.Return(ctx, "late")
	require.NoError(t, err)
	require.Equal(t, 1.0, out.FineAmount)
	require.Equal(t, model.BorrowReturned, s.Mine()[0].Status)
}

func TestBorrowCancel_OnlyPending(t *testing.T) {
	m := &borrowMock{
		MineFn: func(ctx context.Context) ([]model.BorrowRequest, error) {
			return []model.BorrowRequest{{ID: "r1", Status: model.BorrowApproved}}, nil
		},
	}
	s := NewBorrowStore(m, nil, fixedNow)
	require.NoError(t, s.LoadMine(context.Background()))

	_, err := s.Cancel(context.Background(), "r1")
	e, _ := api.AsError(err)
	require.Equal(t, "INVALID_TRANSITION", e.Code)
}

func TestBorrowLoad_ErrorsKeptPerList(t *testing.T) {
	mineFails := true
	m := &borrowMock{
		MineFn: func(ctx context.Context) ([]model.BorrowRequest, error) {
			if mineFails {
				return nil, &api.Error{Kind: api.KindNetwork, Message: "offline"}
			}
			return []model.BorrowRequest{}, nil
		},
		ListFn: func(ctx context.Context, q model.BorrowQuery) (*api.Page[model.BorrowRequest], error) {
			return &api.Page[model.BorrowRequest]{Page: 1, TotalPages: 1}, nil
		},
	}
	s := NewBorrowStore(m, nil, fixedNow)
	ctx := context.Background()

	require.Error(t, s.LoadMine(ctx))
	require.NoError(t, s.LoadAll(ctx, model.BorrowQuery{}))
	require.True(t, api.IsKind(s.MineErr(), api.KindNetwork))
	require.NoError(t, s.AllErr())

	mineFails = false
	require.NoError(t, s.LoadMine(ctx))
	require.NoError(t, s.MineErr())
}
