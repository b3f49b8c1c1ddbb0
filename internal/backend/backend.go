// Package backend abstracts the external inference services behind narrow
// interfaces so the request handlers stay backend-agnostic and testable.
package backend

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the backend could not serve the call right now.
// Handlers map it to a temporarily-unavailable response; retrying is the
// caller's concern.
var ErrUnavailable = errors.New("backend unavailable")

// Message is one turn of a conversation sent to the completion backend.
type Message struct {
	Text string
	Role string
}

// CompletionRequest carries an ordered conversation plus generation options.
type CompletionRequest struct {
	Messages  []Message
	Model     string
	WebSearch bool
}

// CompletionResult is the single assistant turn produced for a request.
type CompletionResult struct {
	Role    string
	Content string
}

// Completion produces one assistant reply for a conversation.
type Completion interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// Transcription converts an audio payload into text. The payload has already
// been validated against size and format limits by the caller.
type Transcription interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}
