package server

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/nfrund/parley/internal/backend"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/handlers"
	"github.com/nfrund/parley/internal/hub"
	"github.com/nfrund/parley/internal/logging"
	appmiddleware "github.com/nfrund/parley/internal/middleware"
	"github.com/nfrund/parley/internal/pubsub"
	"github.com/nfrund/parley/internal/registry"
	"github.com/nfrund/parley/internal/websocket"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E   *echo.Echo
	Cfg *config.Config

	PubSub   *pubsub.WatermillBridge
	Registry *registry.Registry
	Hub      *hub.Hub

	bridge            *websocket.Bridge
	chatHandler       *handlers.ChatHandler
	transcribeHandler *handlers.TranscribeHandler
	healthHandler     *handlers.HealthHandler

	cancel context.CancelFunc
}

// New creates a new Server instance from the given configuration. The hub's
// fan-out consumer is started here; Close releases it.
func New(cfg *config.Config) (*Server, error) {
	logging.New(cfg.LogFormat)

	ps := pubsub.NewWatermillBridge()
	reg := registry.New()
	h := hub.New(ps, ps, reg)

	ctx, cancel := context.WithCancel(context.Background())
	if err := h.Open(ctx, websocket.DefaultTopic); err != nil {
		cancel()
		return nil, err
	}

	bridge := websocket.NewBridge(reg, h, websocket.Options{
		SendQueueSize: cfg.SendQueueSize,
		IdleTimeout:   cfg.IdleTimeout,
		WriteTimeout:  cfg.WriteTimeout,
		CloseGrace:    cfg.CloseGrace,
		MaxFrameBytes: cfg.MaxFrameBytes,
	})

	faults := backend.Faults{
		Latency:     cfg.BackendLatency,
		FailureRate: cfg.BackendFailureRate,
	}
	completion := backend.NewMockCompletion(faults)
	transcription := backend.NewMockTranscription(faults)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()
	setupErrorHandling(e)

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(appmiddleware.Logger)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
		MaxAge:       600,
	}))

	return &Server{
		E:                 e,
		Cfg:               cfg,
		PubSub:            ps,
		Registry:          reg,
		Hub:               h,
		bridge:            bridge,
		chatHandler:       handlers.NewChatHandler(completion, cfg.BackendTimeout),
		transcribeHandler: handlers.NewTranscribeHandler(transcription, cfg.MaxAudioBytes, cfg.AllowedAudioTypes, cfg.BackendTimeout),
		healthHandler:     handlers.NewHealthHandler(),
		cancel:            cancel,
	}, nil
}

// setupErrorHandling installs a custom HTTP error handler that logs unhandled
// errors with a stack trace before delegating to echo's default handler.
func setupErrorHandling(e *echo.Echo) {
	defaultHandler := e.HTTPErrorHandler
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if _, ok := err.(*echo.HTTPError); !ok {
			slog.Error("Internal Server Error (Unhandled)",
				"error", err,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"stack_trace", string(debug.Stack()),
			)
		}
		defaultHandler(err, c)
	}
}

// Close stops the hub consumers and the underlying pub/sub router. It does
// not shut down the echo server; Start owns that.
func (s *Server) Close() error {
	s.cancel()
	return s.PubSub.Close()
}
