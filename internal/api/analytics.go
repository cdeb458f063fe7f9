package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leadflow/internal/analytics"
)

type analyticsHandler struct {
	recorder    *analytics.Recorder
	experiments *analytics.Engine
}

func (h *analyticsHandler) summary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.recorder.Snapshot())
}

func (h *analyticsHandler) timeline(c echo.Context) error {
	id := c.Param("id")
	events := h.recorder.Timeline(id)
	if len(events) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "no timeline for session",
		})
	}
	return c.JSON(http.StatusOK, events)
}

func (h *analyticsHandler) experimentsList(c echo.Context) error {
	if h.experiments == nil {
		return c.JSON(http.StatusOK, []analytics.Experiment{})
	}
	return c.JSON(http.StatusOK, h.experiments.Snapshot())
}
