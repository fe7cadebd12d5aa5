package borrow

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"librarydesk/app/echoServer/jwtx"
	"librarydesk/model"
	borrowsvc "librarydesk/service/borrow"
)

type Controller struct {
	Svc borrowsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

var messages = map[borrowsvc.ErrCode]string{
	borrowsvc.ErrReturnWindow:      "expected return date must be between tomorrow and 30 days from today",
	borrowsvc.ErrInvalidStatus:     "unknown status",
	borrowsvc.ErrBookNotFound:      "book not found",
	borrowsvc.ErrNotFound:          "borrow request not found",
	borrowsvc.ErrNoStock:           "no copies available",
	borrowsvc.ErrActiveExists:      "you already have an active request for this book",
	borrowsvc.ErrInvalidTransition: "status change not allowed",
	borrowsvc.ErrAlreadyClosed:     "borrow request is already closed",
	borrowsvc.ErrNotOwner:          "not your borrow request",
}

func (h *Controller) fail(c echo.Context, err error, op string) error {
	code := borrowsvc.Code(err)
	var status int
	switch code {
	case borrowsvc.ErrReturnWindow, borrowsvc.ErrInvalidStatus:
		status = http.StatusBadRequest
	case borrowsvc.ErrBookNotFound, borrowsvc.ErrNotFound:
		status = http.StatusNotFound
	case borrowsvc.ErrNotOwner:
		status = http.StatusForbidden
	case borrowsvc.ErrNoStock, borrowsvc.ErrActiveExists, borrowsvc.ErrInvalidTransition, borrowsvc.ErrAlreadyClosed:
		status = http.StatusConflict
	default:
		h.Log.Error(op, "err", err, "req_id", c.Response().Header().Get(echo.HeaderXRequestID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	body := echo.Map{"message": messages[code], "code": code}
	if id := borrowsvc.ConflictID(err); id != "" {
		body["conflictId"] = id
	}
	return c.JSON(status, body)
}

func invalid(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"message": msg, "code": "VALIDATION"})
}

// Create a borrow request
// @Summary      Request to borrow a book
// @Tags         borrow-requests
// @Accept       json
// @Produce      json
// @Param        bookId   path  string     true  "Book ID"
// @Param        payload  body  CreateReq  true  "Expected return date"
// @Success      201  {object}  map[string]any
// @Failure      400  {object}  map[string]any
// @Failure      404  {object}  map[string]any
// @Failure      409  {object}  map[string]any "active request exists or no copies"
// @Security     BearerAuth
// @Router       /api/borrow-requests/{bookId} [post]
func (h *Controller) Create(c echo.Context) error {
	var req CreateReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid JSON")
	}
	if err := h.V.Struct(req); err != nil {
		return invalid(c, "expectedReturnDate is required")
	}
	due, err := parseDue(req.ExpectedReturnDate)
	if err != nil {
		return invalid(c, err.Error())
	}

	out, err := h.Svc.Create(c.Request().Context(), jwtx.UserID(c), c.Param("bookId"), due)
	if err != nil {
		return h.fail(c, err, "borrow create")
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": out})
}

// GET /api/borrow-requests  (admin)
func (h *Controller) List(c echo.Context) error {
	var q model.BorrowQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return invalid(c, "invalid query")
	}
	page, err := h.Svc.List(c.Request().Context(), q)
	if err != nil {
		return h.fail(c, err, "borrow list")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":           page.Items,
		"page":           page.Page,
		"limit":          page.Limit,
		"totalPages":     page.TotalPages,
		"totalBorrowReq": page.Total,
	})
}

// GET /api/borrow-requests/my-requests
func (h *Controller) Mine(c echo.Context) error {
	rows, err := h.Svc.Mine(c.Request().Context(), jwtx.UserID(c))
	if err != nil {
		return h.fail(c, err, "borrow mine")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows, "count": len(rows)})
}

// Update status
// @Summary      Change a borrow request's status (admin)
// @Tags         borrow-requests
// @Accept       json
// @Produce      json
// @Param        id       path  string     true  "Borrow request ID"
// @Param        payload  body  StatusReq  true  "New status"
// @Success      200  {object}  map[string]any
// @Failure      409  {object}  map[string]any "invalid transition or already closed"
// @Security     BearerAuth
// @Router       /api/borrow-requests/{id} [put]
func (h *Controller) SetStatus(c echo.Context) error {
	var req StatusReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid JSON")
	}
	if err := h.V.Struct(req); err != nil {
		return invalid(c, "status must be one of pending, approved, rejected, returned, cancelled")
	}
	out, err := h.Svc.SetStatus(c.Request().Context(), c.Param("id"), model.BorrowStatus(req.Status))
	if err != nil {
		return h.fail(c, err, "borrow set status")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// PUT /api/borrow-requests/:id/cancel
func (h *Controller) Cancel(c echo.Context) error {
	out, err := h.Svc.Cancel(c.Request().Context(), jwtx.UserID(c), c.Param("id"))
	if err != nil {
		return h.fail(c, err, "borrow cancel")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// PUT /api/borrow-requests/:id/return
func (h *Controller) Return(c echo.Context) error {
	out, err := h.Svc.Return(c.Request().Context(), jwtx.UserID(c), c.Param("id"))
	if err != nil {
		return h.fail(c, err, "borrow return")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}
