package borrow

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"librarydesk/app/echoServer/jwtx"
	"librarydesk/model"
	borrowsvc "librarydesk/service/borrow"
	jwtutil "librarydesk/util/jwt"
)

type svcMock struct {
	CreateFn    func(ctx context.Context, userID, bookID string, expected time.Time) (*model.BorrowRequest, error)
	SetStatusFn func(ctx context.Context, id string, status model.BorrowStatus) (*model.BorrowRequest, error)
	CancelFn    func(ctx context.Context, userID, id string) (*model.BorrowRequest, error)
	ReturnFn    func(ctx context.Context, userID, id string) (*model.BorrowRequest, error)
	ListFn      func(ctx context.Context, q model.BorrowQuery) (*borrowsvc.Page, error)
	MineFn      func(ctx context.Context, userID string) ([]model.BorrowRequest, error)
}

func (m *svcMock) Create(ctx context.Context, userID, bookID string, expected time.Time) (*model.BorrowRequest, error) {
	return m.CreateFn(ctx, userID, bookID, expected)
}
func (m *svcMock) SetStatus(ctx context.Context, id string, status model.BorrowStatus) (*model.BorrowRequest, error) {
	return m.SetStatusFn(ctx, id, status)
}
func (m *svcMock) Cancel(ctx context.Context, userID, id string) (*model.BorrowRequest, error) {
	return m.CancelFn(ctx, userID, id)
}
func (m *svcMock) Return(ctx context.Context, userID, id string) (*model.BorrowRequest, error) {
	return m.ReturnFn(ctx, userID, id)
}
func (m *svcMock) List(ctx context.Context, q model.BorrowQuery) (*borrowsvc.Page, error) {
	return m.ListFn(ctx, q)
}
func (m *svcMock) Mine(ctx context.Context, userID string) ([]model.BorrowRequest, error) {
	return m.MineFn(ctx, userID)
}

func newCtx(method, target, body, uid string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if uid != "" {
		claims := &jwtutil.Claims{}
		claims.Subject = uid
		jwtx.Set(c, claims)
	}
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func newController(m *svcMock) *Controller {
	return &Controller{Svc: m, V: validator.New(), Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestCreate_ConflictCarriesExistingID(t *testing.T) {
	h := newController(&svcMock{
		CreateFn: func(ctx context.Context, userID, bookID string, expected time.Time) (*model.BorrowRequest, error) {
			require.Equal(t, "u1", userID)
			require.Equal(t, "b1", bookID)
			require.Equal(t, 23, expected.Hour())
			return nil, borrowsvc.ConflictError(borrowsvc.ErrActiveExists, "r-existing")
		},
	})
	c, rec := newCtx(http.MethodPost, "/api/borrow-requests/b1", `{"expectedReturnDate":"2026-05-01"}`, "u1")
	c.SetParamNames("bookId")
	c.SetParamValues("b1")

	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "ACTIVE_REQUEST_EXISTS", body["code"])
	require.Equal(t, "r-existing", body["conflictId"])
}

func TestCreate_RejectsMissingDate(t *testing.T) {
	h := newController(&svcMock{})
	c, rec := newCtx(http.MethodPost, "/api/borrow-requests/b1", `{}`, "u1")

	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION", decode(t, rec)["code"])
}

func TestSetStatus_MapsServiceCodes(t *testing.T) {
	cases := []struct {
		code   borrowsvc.ErrCode
		status int
	}{
		{borrowsvc.ErrNoStock, http.StatusConflict},
		{borrowsvc.ErrInvalidTransition, http.StatusConflict},
		{borrowsvc.ErrAlreadyClosed, http.StatusConflict},
		{borrowsvc.ErrNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			h := newController(&svcMock{
				SetStatusFn: func(ctx context.Context, id string, status model.BorrowStatus) (*model.BorrowRequest, error) {
					return nil, borrowsvc.ConflictError(tc.code, "")
				},
			})
			c, rec := newCtx(http.MethodPut, "/api/borrow-requests/r1", `{"status":"approved"}`, "admin")
			c.SetParamNames("id")
			c.SetParamValues("r1")

			require.NoError(t, h.SetStatus(c))
			require.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			require.Equal(t, string(tc.code), body["code"])
			require.NotContains(t, body, "conflictId")
		})
	}
}

func TestSetStatus_UnknownStatusIsBadRequest(t *testing.T) {
	h := newController(&svcMock{})
	c, rec := newCtx(http.MethodPut, "/api/borrow-requests/r1", `{"status":"lost"}`, "admin")

	require.NoError(t, h.SetStatus(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReturn_Success(t *testing.T) {
	when := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	h := newController(&svcMock{
		ReturnFn: func(ctx context.Context, userID, id string) (*model.BorrowRequest, error) {
			return &model.BorrowRequest{ID: id, Status: model.BorrowReturned, ActualReturnDate: &when, FineAmount: 2}, nil
		},
	})
	c, rec := newCtx(http.MethodPut, "/api/borrow-requests/r1/return", ``, "u1")
	c.SetParamNames("id")
	c.SetParamValues("r1")

	require.NoError(t, h.Return(c))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	require.Equal(t, "returned", data["status"])
	require.Equal(t, 2.0, data["fineAmount"])
}

func TestParseDue(t *testing.T) {
	d, err := parseDue("2026-05-01")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 5, 1, 23, 59, 59, 0, time.UTC), d)

	d, err = parseDue("2026-05-01T10:00:00+02:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC), d)

	_, err = parseDue("next friday")
	require.Error(t, err)
}
