package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListNotifications returns the bell feed, newest first.
func (c *Controller) ListNotifications(ctx echo.Context) error {
	if c.deps.Notifier == nil {
		return ctx.JSON(http.StatusOK, map[string]any{"notifications": []any{}, "count": 0})
	}

	feed := c.deps.Notifier.List(parseLimit(ctx, defaultListLimit))
	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": feed,
		"count":         len(feed),
	})
}
