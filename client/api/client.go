// Package api is a typed client for the library desk REST API.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"librarydesk/util/httpx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Client struct {
	base string
	hc   *http.Client
	v    *validator.Validate
	log  *slog.Logger

	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

// WithToken starts the client with an existing session token.
func WithToken(t string) Option { return func(c *Client) { c.token = t } }

// New returns a client for baseURL, e.g. "http://localhost:8080/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   httpx.Client(),
		v:    validator.New(),
		log:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(t string) {
	c.mu.Lock()
	c.token = t
	c.mu.Unlock()
}

// OnUnauthorized registers fn to run after any 401 response. The token is
// already cleared when fn runs.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, in any) (request, error) {
	r := request{method: method, path: path}
	if in == nil {
		return r, nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return r, fmt.Errorf("encode %s %s: %w", method, path, err)
	}
	r.body = bytes.NewReader(b)
	r.contentType = "application/json"
	return r, nil
}

// do sends r and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	u := c.base + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Warn("api request failed", "method", r.method, "path", r.path, "err", err)
		return &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: err.Error(), Err: err}
	}

	if resp.StatusCode >= 300 {
		e := fromResponse(resp.StatusCode, raw)
		if resp.StatusCode == http.StatusUnauthorized {
			c.unauthorized()
		}
		c.log.Debug("api error", "method", r.method, "path", r.path, "status", resp.StatusCode, "code", e.Code)
		return e
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindUnknown, Status: resp.StatusCode, Message: "malformed response: " + err.Error(), Err: err}
	}
	return nil
}

func (c *Client) unauthorized() {
	c.mu.Lock()
	c.token = ""
	fn := c.onUnauthorized
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// validate runs the struct tags of in and reports the first failing field.
func (c *Client) validate(in any) error {
	err := c.v.Struct(in)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return Invalid("VALIDATION", fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return Invalid("VALIDATION", err.Error())
}
