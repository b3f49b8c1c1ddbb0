// Package websocket owns the upgrade path and the per-connection session
// actors for the chat transport.
package websocket

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/parley/internal/hub"
	"github.com/nfrund/parley/internal/registry"
)

// DefaultTopic is the single broadcast group all chat participants join.
const DefaultTopic = "main-chat"

// Options bound the resources of each session. Zero values fall back to the
// defaults below.
type Options struct {
	SendQueueSize int
	IdleTimeout   time.Duration
	WriteTimeout  time.Duration
	CloseGrace    time.Duration
	MaxFrameBytes int64
}

func (o Options) withDefaults() Options {
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 256
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 5 * time.Minute
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.CloseGrace <= 0 {
		o.CloseGrace = 5 * time.Second
	}
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = 4096
	}
	return o
}

// Bridge upgrades HTTP requests into chat sessions wired to the hub and
// registry. It holds no per-connection state itself; each session owns its
// own connection exclusively.
type Bridge struct {
	registry *registry.Registry
	hub      *hub.Hub
	opts     Options
}

// NewBridge creates a bridge over the given registry and hub.
func NewBridge(reg *registry.Registry, h *hub.Hub, opts Options) *Bridge {
	return &Bridge{registry: reg, hub: h, opts: opts.withDefaults()}
}

// Handler returns the echo handler for the WebSocket upgrade endpoint.
func (b *Bridge) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		displayName := displayNameFromRequest(c)

		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			// Any origin may connect; identity is only a display name.
			InsecureSkipVerify: true,
		})
		if err != nil {
			slog.Error("Failed to upgrade connection to WebSocket", "error", err)
			return c.String(http.StatusBadRequest, "failed to upgrade to WebSocket")
		}
		conn.SetReadLimit(b.opts.MaxFrameBytes)

		session := newSession(conn, displayName, b)
		session.start()
		return nil
	}
}

// displayNameFromRequest reads the display name from the username query
// parameter or the X-Username header, generating a default when absent.
func displayNameFromRequest(c echo.Context) string {
	if name := c.QueryParam("username"); name != "" {
		return name
	}
	if name := c.Request().Header.Get("X-Username"); name != "" {
		return name
	}
	return fmt.Sprintf("User%d", rand.Intn(1000))
}
