package middleware // reusable HTTP middleware for the API

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gemini-chat-api/internal/auth"
	"github.com/iliyamo/gemini-chat-api/internal/model"
)

// accountKey is the context key the authenticated account is stored
// under.
const accountKey = "account"

// Authenticate returns an Echo middleware that validates a Bearer
// access token through the authentication gate and injects the resolved
// account into the request context.  The gate re-verifies expiry on
// every request and rejects missing or inactive accounts, so a token
// that was valid a moment ago can still be turned away here.
func Authenticate(gate *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			account, err := gate.Authorize(c.Request().Context(), raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			c.Set(accountKey, account)
			return next(c)
		}
	}
}

// CurrentAccount returns the account stored by Authenticate.  The
// second return is false on routes that skipped the middleware.
func CurrentAccount(c echo.Context) (model.User, bool) {
	u, ok := c.Get(accountKey).(model.User)
	return u, ok
}
