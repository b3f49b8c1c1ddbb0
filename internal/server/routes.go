package server

import (
	"github.com/nfrund/parley/internal/middleware"
)

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	rateLimiter := middleware.RateLimiter()

	s.E.GET("/ws", s.bridge.Handler())

	s.E.POST("/api/chat", s.chatHandler.ChatPost, rateLimiter)
	s.E.POST("/api/transcribe", s.transcribeHandler.TranscribePost, rateLimiter)

	s.E.GET("/health", s.healthHandler.HealthGet)
}
