package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/jmehdipour/eventlog/internal/metrics"
	echo "github.com/labstack/echo/v4"
)

// AdminGuard lets a request through only when password is configured and the
// caller sent it in X-Admin-Pass or the "pass" query parameter.
func AdminGuard(password string) echo.MiddlewareFunc {
	want := []byte(password)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			pass := c.Request().Header.Get("X-Admin-Pass")
			if pass == "" {
				pass = c.QueryParam("pass")
			}

			if len(want) == 0 || subtle.ConstantTimeCompare([]byte(pass), want) != 1 {
				metrics.AuthFailuresTotal.WithLabelValues("admin", "bad_secret").Inc()
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			return next(c)
		}
	}
}
