package book

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"librarydesk/app/echoServer/jwtx"
	"librarydesk/model"
	booksvc "librarydesk/service/book"
)

type Controller struct {
	Svc booksvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func (h *Controller) fail(c echo.Context, err error, op string) error {
	code := booksvc.Code(err)
	status := http.StatusInternalServerError
	switch code {
	case booksvc.ErrInvalidCategory, booksvc.ErrInvalidISBN, booksvc.ErrInvalidSort,
		booksvc.ErrInvalidCopies, booksvc.ErrInvalidRating, booksvc.ErrInvalidImage:
		status = http.StatusBadRequest
	case booksvc.ErrNotFound:
		status = http.StatusNotFound
	case booksvc.ErrHasActive:
		status = http.StatusConflict
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(status, echo.Map{"message": "internal error"})
	}
	return c.JSON(status, echo.Map{"message": messages[code], "code": code})
}

var messages = map[booksvc.ErrCode]string{
	booksvc.ErrInvalidCategory: "unknown category",
	booksvc.ErrInvalidISBN:     "isbn must have 10 or 13 digits",
	booksvc.ErrInvalidSort:     "unknown sort key",
	booksvc.ErrInvalidCopies:   "total copies cannot drop below the copies currently borrowed",
	booksvc.ErrInvalidRating:   "rating must be between 1 and 5",
	booksvc.ErrInvalidImage:    "image could not be processed",
	booksvc.ErrNotFound:        "book not found",
	booksvc.ErrHasActive:       "book has pending or approved borrow requests",
}

func badRequest(c echo.Context, err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := echo.Map{}
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "code": "VALIDATION", "errors": fields})
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid payload", "code": "VALIDATION"})
}

// image returns the optional cover upload; the caller closes it.
func image(c echo.Context) (io.ReadCloser, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	return fh.Open()
}

// GET /api/books
func (h *Controller) List(c echo.Context) error {
	var q model.BookQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return badRequest(c, err)
	}
	page, err := h.Svc.List(c.Request().Context(), q, jwtx.UserID(c))
	if err != nil {
		return h.fail(c, err, "book list error")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":       page.Items,
		"page":       page.Page,
		"limit":      page.Limit,
		"totalPages": page.TotalPages,
		"totalBooks": page.Total,
	})
}

// GET /api/books/:id
func (h *Controller) Detail(c echo.Context) error {
	b, err := h.Svc.Get(c.Request().Context(), c.Param("id"), jwtx.UserID(c))
	if err != nil {
		return h.fail(c, err, "book detail error")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": b})
}

// POST /api/books  (admin, multipart)
func (h *Controller) Create(c echo.Context) error {
	var in model.BookInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, err)
	}
	if err := h.V.Struct(in); err != nil {
		return badRequest(c, err)
	}
	img, err := image(c)
	if err != nil {
		return badRequest(c, err)
	}
	var r io.Reader
	if img != nil {
		defer img.Close()
		r = img
	}
	b, err := h.Svc.Create(c.Request().Context(), in, r)
	if err != nil {
		return h.fail(c, err, "book create error")
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": b})
}

// PUT /api/books/:id  (admin, multipart)
func (h *Controller) Update(c echo.Context) error {
	var in model.BookInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, err)
	}
	if err := h.V.Struct(in); err != nil {
		return badRequest(c, err)
	}
	img, err := image(c)
	if err != nil {
		return badRequest(c, err)
	}
	var r io.Reader
	if img != nil {
		defer img.Close()
		r = img
	}
	b, err := h.Svc.Update(c.Request().Context(), c.Param("id"), in, r)
	if err != nil {
		return h.fail(c, err, "book update error")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": b})
}

// DELETE /api/books/:id  (admin)
func (h *Controller) Delete(c echo.Context) error {
	if err := h.Svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, err, "book delete error")
	}
	return c.NoContent(http.StatusNoContent)
}

// POST /api/books/:id/reviews
func (h *Controller) AddReview(c echo.Context) error {
	var req ReviewReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	if err := h.V.Struct(req); err != nil {
		return badRequest(c, err)
	}
	rv, ratings, err := h.Svc.AddReview(c.Request().Context(), c.Param("id"), jwtx.UserID(c), req.Rating, req.Comment)
	if err != nil {
		return h.fail(c, err, "add review error")
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": rv, "ratings": ratings})
}
