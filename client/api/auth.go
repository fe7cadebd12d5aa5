package api

import (
	"context"
	"net/http"
	"net/url"

	"librarydesk/model"
)

// Session is what login-like calls return. The token is also kept on the client.
type Session struct {
	Token string
	User  model.User
}

type sessionEnvelope struct {
	Success bool       `json:"success"`
	Token   string     `json:"token"`
	Data    model.User `json:"data"`
}

func (c *Client) Register(ctx context.Context, in model.RegisterReq) (*Session, error) {
	if err := c.validate(in); err != nil {
		return nil, err
	}
	return c.session(ctx, http.MethodPost, "/auth/register", in)
}

func (c *Client) Login(ctx context.Context, in model.LoginReq) (*Session, error) {
	if err := c.validate(in); err != nil {
		return nil, err
	}
	return c.session(ctx, http.MethodPost, "/auth/login", in)
}

// Logout drops the local token even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, request{method: http.MethodGet, path: "/auth/logout"}, nil)
	c.SetToken("")
	return err
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	return c.userResult(ctx, request{method: http.MethodGet, path: "/auth/me"})
}

func (c *Client) UpdateDetails(ctx context.Context, in model.UpdateDetailsReq) (*model.User, error) {
	if err := c.validate(in); err != nil {
		return nil, err
	}
	r, err := jsonRequest(http.MethodPut, "/auth/updatedetails", in)
	if err != nil {
		return nil, err
	}
	return c.userResult(ctx, r)
}

func (c *Client) UpdatePassword(ctx context.Context, in model.UpdatePasswordReq) (*Session, error) {
	if err := c.validate(in); err != nil {
		return nil, err
	}
	return c.session(ctx, http.MethodPut, "/auth/updatepassword", in)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	in := struct {
		Email string `json:"email" validate:"required,email"`
	}{email}
	if err := c.validate(in); err != nil {
		return err
	}
	r, err := jsonRequest(http.MethodPost, "/auth/forgotpassword", in)
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) (*Session, error) {
	in := model.ResetPasswordReq{Password: password}
	if token == "" {
		return nil, Invalid("TOKEN_INVALID", "reset token is required")
	}
	if err := c.validate(in); err != nil {
		return nil, err
	}
	return c.session(ctx, http.MethodPut, "/auth/resetpassword/"+url.PathEscape(token), in)
}

func (c *Client) session(ctx context.Context, method, path string, in any) (*Session, error) {
	r, err := jsonRequest(method, path, in)
	if err != nil {
		return nil, err
	}
	var out sessionEnvelope
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &Session{Token: out.Token, User: out.Data}, nil
}
