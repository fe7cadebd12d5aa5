package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"librarydesk/model"
)

// RequestBorrow files a pending request for bookID due back at expected.
func (c *Client) RequestBorrow(ctx context.Context, bookID string, expected time.Time) (*model.BorrowRequest, error) {
	if expected.IsZero() {
		return nil, Invalid("VALIDATION", "expectedReturnDate is required")
	}
	r, err := jsonRequest(http.MethodPost, "/borrow-requests/"+url.PathEscape(bookID),
		map[string]string{"expectedReturnDate": expected.UTC().Format(time.RFC3339)})
	if err != nil {
		return nil, err
	}
	return c.borrowResult(ctx, r)
}

func (c *Client) ListBorrowRequests(ctx context.Context, q model.BorrowQuery) (*Page[model.BorrowRequest], error) {
	if q.Status != "" && !model.BorrowStatus(q.Status).Valid() {
		return nil, Invalid("INVALID_STATUS", "unknown status "+q.Status)
	}
	v := url.Values{}
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	setStr(v, "search", q.Search)
	setStr(v, "status", q.Status)

	var out listEnvelope[model.BorrowRequest]
	if err := c.do(ctx, request{method: http.MethodGet, path: "/borrow-requests", query: v}, &out); err != nil {
		return nil, err
	}
	return out.page(), nil
}

func (c *Client) MyBorrowRequests(ctx context.Context) ([]model.BorrowRequest, error) {
	var out dataEnvelope[[]model.BorrowRequest]
	if err := c.do(ctx, request{method: http.MethodGet, path: "/borrow-requests/my-requests"}, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []model.BorrowRequest{}, nil
	}
	return out.Data, nil
}

func (c *Client) SetBorrowStatus(ctx context.Context, id string, status model.BorrowStatus) (*model.BorrowRequest, error) {
	if !status.Valid() {
		return nil, Invalid("INVALID_STATUS", "unknown status "+string(status))
	}
	r, err := jsonRequest(http.MethodPut, "/borrow-requests/"+url.PathEscape(id), map[string]string{"status": string(status)})
	if err != nil {
		return nil, err
	}
	return c.borrowResult(ctx, r)
}

func (c *Client) CancelBorrow(ctx context.Context, id string) (*model.BorrowRequest, error) {
	return c.borrowResult(ctx, request{method: http.MethodPut, path: "/borrow-requests/" + url.PathEscape(id) + "/cancel"})
}

func (c *Client) ReturnBorrow(ctx context.Context, id string) (*model.BorrowRequest, error) {
	return c.borrowResult(ctx, request{method: http.MethodPut, path: "/borrow-requests/" + url.PathEscape(id) + "/return"})
}

func (c *Client) borrowResult(ctx context.Context, r request) (*model.BorrowRequest, error) {
	var out dataEnvelope[model.BorrowRequest]
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}
