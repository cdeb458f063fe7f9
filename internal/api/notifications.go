package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leadflow/internal/notify"
)

type notificationHandler struct {
	dispatcher *notify.Dispatcher
}

// markResponded records that a team member picked up a notification. The
// response time is measured server-side against the original send time and
// the pending reminder is suppressed.
func (h *notificationHandler) markResponded(c echo.Context) error {
	id := c.Param("id")

	rec, err := h.dispatcher.MarkResponded(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, notify.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "notification not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to record response",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":                    rec.ID,
		"responded":             rec.Responded,
		"response_time_seconds": rec.ResponseTime.Seconds(),
	})
}
