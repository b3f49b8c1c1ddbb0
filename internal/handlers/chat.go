package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/backend"
	"github.com/nfrund/parley/internal/middleware"
)

// ChatHandler serves the chat-completion endpoint. It is stateless across
// calls; every request is one bounded round trip to the backend.
type ChatHandler struct {
	backend backend.Completion
	timeout time.Duration
}

// NewChatHandler creates the handler with its backend and per-call timeout.
func NewChatHandler(b backend.Completion, timeout time.Duration) *ChatHandler {
	return &ChatHandler{backend: b, timeout: timeout}
}

// ChatPost handles POST /api/chat.
func (h *ChatHandler) ChatPost(c echo.Context) error {
	var req ChatCompletionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "messages must contain at least one entry with text and role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	res, err := h.backend.Complete(ctx, toBackendRequest(req))
	if err != nil {
		if errors.Is(err, backend.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "completion backend unavailable"})
		}
		middleware.FromContext(c.Request().Context()).Error("Completion backend failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	return c.JSON(http.StatusOK, ChatCompletionResponse{Role: res.Role, Content: res.Content})
}

func toBackendRequest(req ChatCompletionRequest) backend.CompletionRequest {
	messages := make([]backend.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = backend.Message{Text: m.Text, Role: m.Role}
	}
	return backend.CompletionRequest{
		Messages:  messages,
		Model:     req.Model,
		WebSearch: req.WebSearch,
	}
}
