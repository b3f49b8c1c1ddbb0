package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/backend"
	"github.com/nfrund/parley/internal/middleware"
)

// TranscribeHandler serves the audio transcription endpoint. Payloads are
// validated against a size cap and a MIME allow-list before the backend is
// ever invoked.
type TranscribeHandler struct {
	backend  backend.Transcription
	maxBytes int64
	allowed  map[string]struct{}
	timeout  time.Duration
}

// NewTranscribeHandler creates the handler. allowedTypes is the list of
// acceptable declared MIME types.
func NewTranscribeHandler(b backend.Transcription, maxBytes int64, allowedTypes []string, timeout time.Duration) *TranscribeHandler {
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &TranscribeHandler{backend: b, maxBytes: maxBytes, allowed: allowed, timeout: timeout}
}

// TranscribePost handles POST /api/transcribe. The multipart part must be
// named "audio".
func (h *TranscribeHandler) TranscribePost(c echo.Context) error {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, TranscriptionResponse{Success: false, Error: ReasonInvalidRequest})
	}

	// Size is checked before the body is read so an oversized upload never
	// reaches the backend.
	if fileHeader.Size > h.maxBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, TranscriptionResponse{Success: false, Error: ReasonTooLarge})
	}

	declared := fileHeader.Header.Get(echo.HeaderContentType)
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return c.JSON(http.StatusUnsupportedMediaType, TranscriptionResponse{Success: false, Error: ReasonUnsupportedFormat})
	}
	if _, ok := h.allowed[strings.ToLower(mediaType)]; !ok {
		return c.JSON(http.StatusUnsupportedMediaType, TranscriptionResponse{Success: false, Error: ReasonUnsupportedFormat})
	}

	file, err := fileHeader.Open()
	if err != nil {
		middleware.FromContext(c.Request().Context()).Error("Failed to open audio part", "error", err)
		return c.JSON(http.StatusInternalServerError, TranscriptionResponse{Success: false, Error: ReasonInternal})
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		middleware.FromContext(c.Request().Context()).Error("Failed to read audio part", "error", err)
		return c.JSON(http.StatusInternalServerError, TranscriptionResponse{Success: false, Error: ReasonInternal})
	}
	if int64(len(audio)) > h.maxBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, TranscriptionResponse{Success: false, Error: ReasonTooLarge})
	}

	// The declared type can lie; sniff the bytes and reject anything that is
	// demonstrably not audio. Octet-stream is allowed because short or exotic
	// clips may not be identifiable.
	if sniffed := mimetype.Detect(audio); !plausiblyAudio(sniffed.String()) {
		return c.JSON(http.StatusUnsupportedMediaType, TranscriptionResponse{Success: false, Error: ReasonUnsupportedFormat})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	text, err := h.backend.Transcribe(ctx, audio, mediaType)
	if err != nil {
		if errors.Is(err, backend.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			return c.JSON(http.StatusServiceUnavailable, TranscriptionResponse{Success: false, Error: ReasonBackendUnavailable})
		}
		middleware.FromContext(c.Request().Context()).Error("Transcription backend failed", "error", err)
		return c.JSON(http.StatusInternalServerError, TranscriptionResponse{Success: false, Error: ReasonInternal})
	}

	return c.JSON(http.StatusOK, TranscriptionResponse{Transcription: text, Success: true})
}

func plausiblyAudio(detected string) bool {
	return strings.HasPrefix(detected, "audio/") ||
		strings.HasPrefix(detected, "video/") ||
		detected == "application/octet-stream"
}
