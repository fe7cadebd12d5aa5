package api

import (
	"context"
	"net/http"
	"net/url"

	"librarydesk/model"
)

func (c *Client) ListUsers(ctx context.Context, q model.UserQuery) (*Page[model.User], error) {
	if q.Role != "" && !model.Role(q.Role).Valid() {
		return nil, Invalid("INVALID_ROLE", "unknown role "+q.Role)
	}
	v := url.Values{}
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	setStr(v, "search", q.Search)
	setStr(v, "role", q.Role)

	var out listEnvelope[model.User]
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users", query: v}, &out); err != nil {
		return nil, err
	}
	return out.page(), nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*model.User, error) {
	return c.userResult(ctx, request{method: http.MethodGet, path: "/users/" + url.PathEscape(id)})
}

func (c *Client) UpdateUserRole(ctx context.Context, id string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, Invalid("INVALID_ROLE", "role must be user or admin")
	}
	r, err := jsonRequest(http.MethodPut, "/users/"+url.PathEscape(id), map[string]string{"role": string(role)})
	if err != nil {
		return nil, err
	}
	return c.userResult(ctx, r)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/users/" + url.PathEscape(id)}, nil)
}

// AddFavorite and RemoveFavorite are idempotent and return the caller's full record.
func (c *Client) AddFavorite(ctx context.Context, bookID string) (*model.User, error) {
	return c.userResult(ctx, request{method: http.MethodPost, path: "/users/favorites/" + url.PathEscape(bookID)})
}

func (c *Client) RemoveFavorite(ctx context.Context, bookID string) (*model.User, error) {
	return c.userResult(ctx, request{method: http.MethodDelete, path: "/users/favorites/" + url.PathEscape(bookID)})
}

func (c *Client) userResult(ctx context.Context, r request) (*model.User, error) {
	var out dataEnvelope[model.User]
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}
