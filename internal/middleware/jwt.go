package middleware // reusable HTTP middleware for authentication, caching and rate limiting

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/venuehunt/venuehunt/internal/utils"
)

// Context keys set by JWTAuth and OptionalJWT.  user_id holds a uint64 and
// role a model.Role.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// bearer returns the raw token from an Authorization header, or "".
func bearer(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// JWTAuth rejects requests without a valid Bearer access token and stores
// the token's user ID and role in the context for handlers.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			id, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ContextUserID, id.UserID)
			c.Set(ContextRole, id.Role)
			return next(c)
		}
	}
}

// OptionalJWT is JWTAuth for public routes: a valid token populates the
// context, a missing or bad one leaves the request anonymous.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := bearer(c); raw != "" {
				if id, err := utils.ParseAccessToken(secret, raw); err == nil {
					c.Set(ContextUserID, id.UserID)
					c.Set(ContextRole, id.Role)
				}
			}
			return next(c)
		}
	}
}
