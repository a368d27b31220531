package middleware

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/jmehdipour/eventlog/internal/metrics"
	"github.com/jmehdipour/eventlog/internal/model"
	"github.com/jmehdipour/eventlog/internal/service/accounts"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const ctxCopyID = "copy_id"

var bearerPrefix = regexp.MustCompile(`(?i)^Bearer\s+`)

// Authenticator checks a customer credential pair.
type Authenticator interface {
	Authenticate(ctx context.Context, copyID, token string) (*model.Customer, error)
}

// CopyIDFromCtx extracts the authenticated copy_id set by CustomerGuard.
func CopyIDFromCtx(c echo.Context) (string, bool) {
	id, ok := c.Get(ctxCopyID).(string)
	return id, ok && id != ""
}

// CustomerGuard authenticates requests carrying "Authorization: Bearer <token>"
// plus the customer's copy_id in X-Copy-Id or the "copy_id" query parameter.
// Blocked customers are rejected like unknown ones.
func CustomerGuard(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			token := bearerPrefix.ReplaceAllString(req.Header.Get("Authorization"), "")
			copyID := req.Header.Get("X-Copy-Id")
			if copyID == "" {
				copyID = c.QueryParam("copy_id")
			}

			if token == "" || copyID == "" {
				metrics.AuthFailuresTotal.WithLabelValues("customer", "missing").Inc()
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing token or copy_id"})
			}

			cu, err := auth.Authenticate(req.Context(), copyID, token)
			if errors.Is(err, accounts.ErrInvalidCredentials) {
				metrics.AuthFailuresTotal.WithLabelValues("customer", "invalid").Inc()
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or blocked"})
			}
			if err != nil {
				log.Errorf("customer auth failed: %v", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}

			c.Set(ctxCopyID, cu.CopyID)
			return next(c)
		}
	}
}
