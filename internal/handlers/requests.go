package handlers

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the go-playground/validator library to implement
// Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// ChatMessage is one turn of the conversation sent to the completion
// endpoint.
type ChatMessage struct {
	Text string `json:"text" validate:"required"`
	Role string `json:"role" validate:"required"`
}

// ChatCompletionRequest is the DTO for POST /api/chat.
type ChatCompletionRequest struct {
	Messages  []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Model     string        `json:"model"`
	WebSearch bool          `json:"webSearch"`
}
