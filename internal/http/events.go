package http

import (
	"errors"
	"net/http"

	"github.com/jmehdipour/eventlog/internal/http/middleware"
	"github.com/jmehdipour/eventlog/internal/service/events"
	"github.com/jmehdipour/eventlog/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

func pushEventHandler(svc *events.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		copyID, ok := middleware.CopyIDFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or blocked"})
		}

		body, err := readBody(c)
		if err != nil {
			return err
		}

		if err := svc.Push(c.Request().Context(), copyID, body); err != nil {
			if errors.Is(err, events.ErrInvalidBody) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
			log.Errorf("push event failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	}
}

func listEventsHandler(svc *events.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		copyID, ok := middleware.CopyIDFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or blocked"})
		}

		since := util.ParseNumber(c.QueryParam("since"))
		items, err := svc.Replay(c.Request().Context(), copyID, since)
		if err != nil {
			log.Errorf("replay events failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, items)
	}
}
