package handlers

// ErrorResponse is the standard format for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChatCompletionResponse is the single assistant turn returned by
// POST /api/chat.
type ChatCompletionResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TranscriptionResponse is the result envelope for POST /api/transcribe.
// Error carries a machine-readable reason when Success is false.
type TranscriptionResponse struct {
	Transcription string `json:"transcription,omitempty"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
}

// HealthResponse reports process liveness and the current server time in
// milliseconds.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// Machine-readable transcription failure reasons.
const (
	ReasonInvalidRequest     = "invalid-request"
	ReasonUnsupportedFormat  = "unsupported-format"
	ReasonTooLarge           = "too-large"
	ReasonBackendUnavailable = "backend-unavailable"
	ReasonInternal           = "internal"
)
