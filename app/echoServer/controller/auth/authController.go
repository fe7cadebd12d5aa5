// app/echoServer/controller/auth/authController.go
package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"librarydesk/app/echoServer/jwtx"
	"librarydesk/model"
	authsvc "librarydesk/service/auth"
)

type Controller struct {
	Svc      authsvc.Service
	V        *validator.Validate
	Log      *slog.Logger
	TokenTTL time.Duration
	Secure   bool
}

type ForgotReq struct {
	Email string `json:"email" validate:"required,email"`
}

func (ct *Controller) fail(c echo.Context, err error, op string) error {
	code := authsvc.Code(err)
	var status int
	switch code {
	case authsvc.ErrBadInput:
		status = http.StatusBadRequest
	case authsvc.ErrTokenInvalid:
		status = http.StatusBadRequest
	case authsvc.ErrInvalidCreds, authsvc.ErrWrongPassword:
		status = http.StatusUnauthorized
	case authsvc.ErrNotFound:
		status = http.StatusNotFound
	case authsvc.ErrEmailTaken:
		status = http.StatusConflict
	default:
		rid := c.Response().Header().Get(echo.HeaderXRequestID)
		ct.Log.Error(op+" failed",
			"err", err,
			"req_id", rid,
			"path", c.Path(),
			"method", c.Request().Method,
		)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": op + " failed"})
	}
	return c.JSON(status, echo.Map{"message": err.Error(), "code": code})
}

// bind decodes and validates req, writing the 400 response itself on failure.
func (ct *Controller) bind(c echo.Context, req any) bool {
	if err := c.Bind(req); err != nil {
		ct.Log.Warn("bind failed", "path", c.Path(), "err", err)
		_ = c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body", "code": "VALIDATION"})
		return false
	}
	if err := ct.V.Struct(req); err != nil {
		ct.Log.Warn("validation failed", "path", c.Path(), "err", err)
		_ = c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "code": "VALIDATION"})
		return false
	}
	return true
}

func (ct *Controller) setToken(c echo.Context, token string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   ct.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
	})
}

func (ct *Controller) session(c echo.Context, status int, u *model.User, token string) error {
	ct.setToken(c, token, ct.TokenTTL)
	return c.JSON(status, echo.Map{"success": true, "token": token, "data": u})
}

// Register a new user
// @Summary      Register user
// @Description  Register a new user; the session token is returned and set as a cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  model.RegisterReq  true  "Register payload"
// @Success      201  {object}  map[string]any
// @Failure      400  {object}  map[string]any
// @Failure      409  {object}  map[string]any "email already registered"
// @Failure      500  {object}  map[string]any "internal server error"
// @Router       /api/auth/register [post]
func (ct *Controller) Register(c echo.Context) error {
	var req model.RegisterReq
	if !ct.bind(c, &req) {
		return nil
	}
	u, token, err := ct.Svc.Register(c.Request().Context(), req)
	if err != nil {
		return ct.fail(c, err, "register")
	}
	return ct.session(c, http.StatusCreated, u, token)
}

// Login
// @Summary      Login
// @Description  Login with email + password, returns JWT
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  model.LoginReq  true  "Login payload"
// @Success      200  {object}  map[string]any
// @Failure      400  {object}  map[string]any
// @Failure      401  {object}  map[string]any
// @Failure      500  {object}  map[string]any
// @Router       /api/auth/login [post]
func (ct *Controller) Login(c echo.Context) error {
	var req model.LoginReq
	if !ct.bind(c, &req) {
		return nil
	}
	u, token, err := ct.Svc.Login(c.Request().Context(), req)
	if err != nil {
		return ct.fail(c, err, "login")
	}
	return ct.session(c, http.StatusOK, u, token)
}

// GET /api/auth/logout
func (ct *Controller) Logout(c echo.Context) error {
	ct.setToken(c, "none", 10*time.Second)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{}})
}

// GET /api/auth/me
func (ct *Controller) Me(c echo.Context) error {
	u, err := ct.Svc.Me(c.Request().Context(), jwtx.UserID(c))
	if err != nil {
		return ct.fail(c, err, "me")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": u})
}

// PUT /api/auth/updatedetails
func (ct *Controller) UpdateDetails(c echo.Context) error {
	var req model.UpdateDetailsReq
	if !ct.bind(c, &req) {
		return nil
	}
	u, err := ct.Svc.UpdateDetails(c.Request().Context(), jwtx.UserID(c), req)
	if err != nil {
		return ct.fail(c, err, "update details")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": u})
}

// PUT /api/auth/updatepassword
func (ct *Controller) UpdatePassword(c echo.Context) error {
	var req model.UpdatePasswordReq
	if !ct.bind(c, &req) {
		return nil
	}
	u, token, err := ct.Svc.UpdatePassword(c.Request().Context(), jwtx.UserID(c), req)
	if err != nil {
		return ct.fail(c, err, "update password")
	}
	return ct.session(c, http.StatusOK, u, token)
}

// POST /api/auth/forgotpassword
func (ct *Controller) ForgotPassword(c echo.Context) error {
	var req ForgotReq
	if !ct.bind(c, &req) {
		return nil
	}
	if err := ct.Svc.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return ct.fail(c, err, "forgot password")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": "if the address is registered, a reset link was sent"})
}

// PUT /api/auth/resetpassword/:token
func (ct *Controller) ResetPassword(c echo.Context) error {
	var req model.ResetPasswordReq
	if !ct.bind(c, &req) {
		return nil
	}
	u, token, err := ct.Svc.ResetPassword(c.Request().Context(), c.Param("token"), req.Password)
	if err != nil {
		return ct.fail(c, err, "reset password")
	}
	return ct.session(c, http.StatusOK, u, token)
}
