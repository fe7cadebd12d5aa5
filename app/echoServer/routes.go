package echoServer

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"librarydesk/app/echoServer/controller/auth"
	"librarydesk/app/echoServer/controller/book"
	"librarydesk/app/echoServer/controller/borrow"
	"librarydesk/app/echoServer/controller/user"
	"librarydesk/app/echoServer/jwtx"
	jwtutil "librarydesk/util/jwt"
)

type C struct {
	Auth   *auth.Controller
	Book   *book.Controller
	Borrow *borrow.Controller
	User   *user.Controller
	// WS serves the notification socket; optional.
	WS        echo.HandlerFunc
	JWTSecret string
}

// RequireAuth accepts the session token from the Authorization header or the token cookie.
func RequireAuth(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return new(jwtutil.Claims) },
		TokenLookup:   "header:Authorization:Bearer ,cookie:" + TokenCookie,
		SuccessHandler: func(c echo.Context) {
			if err := jwtx.FromToken(c); err != nil {
				c.Set("user", nil)
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "not authorized", "code": "UNAUTHORIZED"})
		},
	})
}

// onlyIdentified turns a token without a usable subject into a 401.
func onlyIdentified(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if jwtx.UserID(c) == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "not authorized", "code": "UNAUTHORIZED"})
		}
		return next(c)
	}
}

func Register(e *echo.Echo, c C) {
	api := e.Group("/api")

	// Public
	api.POST("/auth/register", c.Auth.Register)
	api.POST("/auth/login", c.Auth.Login)
	api.GET("/auth/logout", c.Auth.Logout)
	api.POST("/auth/forgotpassword", c.Auth.ForgotPassword)
	api.PUT("/auth/resetpassword/:token", c.Auth.ResetPassword)

	// Catalog reads are public; a valid token adds the viewer's favorite flags.
	opt := api.Group("", OptionalAuth(c.JWTSecret))
	opt.GET("/books", c.Book.List)
	opt.GET("/books/:id", c.Book.Detail)

	// Auth
	authed := api.Group("", RequireAuth(c.JWTSecret), onlyIdentified)
	authed.GET("/auth/me", c.Auth.Me)
	authed.PUT("/auth/updatedetails", c.Auth.UpdateDetails)
	authed.PUT("/auth/updatepassword", c.Auth.UpdatePassword)

	authed.POST("/books/:id/reviews", c.Book.AddReview)

	authed.POST("/users/favorites/:bookId", c.User.AddFavorite)
	authed.DELETE("/users/favorites/:bookId", c.User.RemoveFavorite)

	authed.POST("/borrow-requests/:bookId", c.Borrow.Create)
	authed.GET("/borrow-requests/my-requests", c.Borrow.Mine)
	authed.PUT("/borrow-requests/:id/cancel", c.Borrow.Cancel)
	authed.PUT("/borrow-requests/:id/return", c.Borrow.Return)

	if c.WS != nil {
		authed.GET("/ws", c.WS)
	}

	// Admin endpoints
	admin := authed.Group("", RequireAdmin)
	admin.POST("/books", c.Book.Create)
	admin.PUT("/books/:id", c.Book.Update)
	admin.DELETE("/books/:id", c.Book.Delete)

	admin.GET("/borrow-requests", c.Borrow.List)
	admin.PUT("/borrow-requests/:id", c.Borrow.SetStatus)

	admin.GET("/users", c.User.List)
	admin.GET("/users/:id", c.User.Detail)
	admin.PUT("/users/:id", c.User.UpdateRole)
	admin.DELETE("/users/:id", c.User.Delete)
}
