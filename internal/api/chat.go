package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/leadflow/internal/pipeline"
)

const maxMessageLength = 4000

type chatHandler struct {
	pipeline *pipeline.Pipeline
}

// ChatRequest is the inbound chat message. An empty session_id starts a new
// conversation; an empty message on a new session returns the greeting.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (h *chatHandler) postMessage(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if len(req.Message) > maxMessageLength {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
			"error": "message too long",
		})
	}
	if req.SessionID != "" && strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "message is required for an existing session",
		})
	}

	resp, err := h.pipeline.ProcessMessage(c.Request().Context(), req.SessionID, req.Message)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to process message",
		})
	}

	return c.JSON(http.StatusOK, resp)
}
