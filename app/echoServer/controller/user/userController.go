package user

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"librarydesk/app/echoServer/jwtx"
	"librarydesk/model"
	usersvc "librarydesk/service/user"
)

type Controller struct {
	Svc usersvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

type RoleReq struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

func (h *Controller) fail(c echo.Context, err error, op string) error {
	switch usersvc.Code(err) {
	case usersvc.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found", "code": usersvc.ErrNotFound})
	case usersvc.ErrBookNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found", "code": usersvc.ErrBookNotFound})
	case usersvc.ErrInvalidRole:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "role must be user or admin", "code": usersvc.ErrInvalidRole})
	case usersvc.ErrSelfAction:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "you cannot demote or delete your own account", "code": usersvc.ErrSelfAction})
	case usersvc.ErrHasActive:
		return c.JSON(http.StatusConflict, echo.Map{"message": "user has pending or approved borrow requests", "code": usersvc.ErrHasActive})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

// GET /api/users  (admin)
func (h *Controller) List(c echo.Context) error {
	var q model.UserQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid query", "code": "VALIDATION"})
	}
	page, err := h.Svc.List(c.Request().Context(), q)
	if err != nil {
		return h.fail(c, err, "user list")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":       page.Items,
		"page":       page.Page,
		"limit":      page.Limit,
		"totalPages": page.TotalPages,
		"totalUsers": page.Total,
	})
}

// GET /api/users/:id  (admin)
func (h *Controller) Detail(c echo.Context) error {
	u, err := h.Svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err, "user detail")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": u})
}

// PUT /api/users/:id  (admin)
func (h *Controller) UpdateRole(c echo.Context) error {
	var req RoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON", "code": "VALIDATION"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "role must be user or admin", "code": usersvc.ErrInvalidRole})
	}
	u, err := h.Svc.UpdateRole(c.Request().Context(), jwtx.UserID(c), c.Param("id"), model.Role(req.Role))
	if err != nil {
		return h.fail(c, err, "user role")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": u})
}

// DELETE /api/users/:id  (admin)
func (h *Controller) Delete(c echo.Context) error {
	if err := h.Svc.Delete(c.Request().Context(), jwtx.UserID(c), c.Param("id")); err != nil {
		return h.fail(c, err, "user delete")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": echo.Map{}})
}

// POST /api/users/favorites/:bookId
func (h *Controller) AddFavorite(c echo.Context) error {
	u, err := h.Svc.AddFavorite(c.Request().Context(), jwtx.UserID(c), c.Param("bookId"))
	if err != nil {
		return h.fail(c, err, "add favorite")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": u})
}

// DELETE /api/users/favorites/:bookId
func (h *Controller) RemoveFavorite(c echo.Context) error {
	u, err := h.Svc.RemoveFavorite(c.Request().Context(), jwtx.UserID(c), c.Param("bookId"))
	if err != nil {
		return h.fail(c, err, "remove favorite")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": u})
}
