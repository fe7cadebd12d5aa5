package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	jwtutil "librarydesk/util/jwt"
)

const (
	keyToken  = "user"
	keyUserID = "user_id"
	keyRole   = "role"
)

// FromToken copies subject and role out of the token echo-jwt stored in the context.
func FromToken(c echo.Context) error {
	tok, ok := c.Get(keyToken).(*jwt.Token)
	if !ok || tok == nil {
		return errors.New("no jwt token in context")
	}
	claims, ok := tok.Claims.(*jwtutil.Claims)
	if !ok || claims.Subject == "" {
		return errors.New("invalid jwt claims")
	}
	Set(c, claims)
	return nil
}

func Set(c echo.Context, claims *jwtutil.Claims) {
	c.Set(keyUserID, claims.Subject)
	c.Set(keyRole, claims.Role)
}

// UserID returns the authenticated user's id, or "" for an anonymous request.
func UserID(c echo.Context) string {
	id, _ := c.Get(keyUserID).(string)
	return id
}

func Role(c echo.Context) string {
	role, _ := c.Get(keyRole).(string)
	return role
}

func IsAdmin(c echo.Context) bool { return Role(c) == "admin" }
