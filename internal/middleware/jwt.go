package middleware // reusable echo middleware: session auth, rate limiting, response cache

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/utils"
)

// TokenVerifier checks a raw session token.  utils.SessionIssuer satisfies it.
type TokenVerifier interface {
	Verify(raw string) (*utils.SessionClaims, error)
}

// UserValidator resolves the subject of a verified token.  It returns
// (nil, nil) when the user no longer exists.
type UserValidator interface {
	ValidateUser(ctx context.Context, userID uint64) (*model.User, error)
}

// JWTAuth validates the Bearer session token and injects the user's id
// (uint64, key "user_id") and email (key "email") into the context.  A token
// whose user has since disappeared is rejected like any invalid token.
func JWTAuth(tokens TokenVerifier, users UserValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			claims, err := tokens.Verify(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			uid, err := claims.UserID()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			u, err := users.ValidateUser(c.Request().Context(), uid)
			if err != nil {
				c.Logger().Errorf("auth: validate user %d: %v", uid, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
			}
			if u == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set("user_id", u.ID)
			c.Set("email", u.Email)
			return next(c)
		}
	}
}
