package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"librarydesk/model"
)

// Upload is an optional cover image attached to a book form.
type Upload struct {
	Filename string
	Body     io.Reader
}

type ReviewResult struct {
	Review  model.Review
	Ratings float64
}

func (c *Client) ListBooks(ctx context.Context, q model.BookQuery) (*Page[model.Book], error) {
	if q.Category != "" && !model.ValidCategory(q.Category) {
		return nil, Invalid("INVALID_CATEGORY", "unknown category "+q.Category)
	}
	if q.Sort != "" && !model.ValidSort(q.Sort) {
		return nil, Invalid("INVALID_SORT", "unknown sort "+q.Sort)
	}
	v := url.Values{}
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	setStr(v, "search", q.Search)
	setStr(v, "category", q.Category)
	setStr(v, "sort", q.Sort)
	if q.MinRating > 0 {
		v.Set("minRating", strconv.FormatFloat(q.MinRating, 'f', -1, 64))
	}

	var out listEnvelope[model.Book]
	if err := c.do(ctx, request{method: http.MethodGet, path: "/books", query: v}, &out); err != nil {
		return nil, err
	}
	return out.page(), nil
}

func (c *Client) GetBook(ctx context.Context, id string) (*model.Book, error) {
	var out dataEnvelope[model.Book]
	if err := c.do(ctx, request{method: http.MethodGet, path: "/books/" + url.PathEscape(id)}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) CreateBook(ctx context.Context, in model.BookInput, img *Upload) (*model.Book, error) {
	return c.sendBook(ctx, http.MethodPost, "/books", in, img)
}

func (c *Client) UpdateBook(ctx context.Context, id string, in model.BookInput, img *Upload) (*model.Book, error) {
	return c.sendBook(ctx, http.MethodPut, "/books/"+url.PathEscape(id), in, img)
}

func (c *Client) DeleteBook(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/books/" + url.PathEscape(id)}, nil)
}

func (c *Client) AddReview(ctx context.Context, bookID string, rating int, comment string) (*ReviewResult, error) {
	if !model.ValidRating(rating) {
		return nil, Invalid("INVALID_RATING", "rating must be between 1 and 5")
	}
	r, err := jsonRequest(http.MethodPost, "/books/"+url.PathEscape(bookID)+"/reviews",
		map[string]any{"rating": rating, "comment": comment})
	if err != nil {
		return nil, err
	}
	var out struct {
		Data    model.Review `json:"data"`
		Ratings float64      `json:"ratings"`
	}
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &ReviewResult{Review: out.Data, Ratings: out.Ratings}, nil
}

func (c *Client) validateBook(in model.BookInput) error {
	if err := c.validate(in); err != nil {
		return err
	}
	if !model.ValidCategory(in.Category) {
		return Invalid("INVALID_CATEGORY", "unknown category "+in.Category)
	}
	if !model.ValidateISBN(in.ISBN) {
		return Invalid("INVALID_ISBN", "isbn must have 10 or 13 digits")
	}
	return nil
}

func (c *Client) sendBook(ctx context.Context, method, path string, in model.BookInput, img *Upload) (*model.Book, error) {
	if err := c.validateBook(in); err != nil {
		return nil, err
	}
	body, ctype, err := bookForm(in, img)
	if err != nil {
		return nil, err
	}
	var out dataEnvelope[model.Book]
	if err := c.do(ctx, request{method: method, path: path, body: body, contentType: ctype}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func bookForm(in model.BookInput, img *Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"title", in.Title},
		{"author", in.Author},
		{"description", in.Description},
		{"category", in.Category},
		{"publicationYear", strconv.Itoa(in.PublicationYear)},
		{"isbn", in.ISBN},
		{"price", strconv.FormatFloat(in.Price, 'f', 2, 64)},
		{"totalCopies", strconv.Itoa(in.TotalCopies)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if img != nil && img.Body != nil {
		name := img.Filename
		if name == "" {
			name = "cover.jpg"
		}
		part, err := w.CreateFormFile("image", name)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, img.Body); err != nil {
			return nil, "", fmt.Errorf("read cover image: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
