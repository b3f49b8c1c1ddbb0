package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/nfrund/parley/internal/event"
	"github.com/nfrund/parley/internal/registry"
)

// State tracks a session's lifecycle. Transitions only move forward;
// StateClosed is final.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is the server-side actor owning one live connection. It runs two
// goroutines: the read loop decodes inbound frames and forwards chat to the
// hub; the write loop is the single writer on the wire, draining the
// connection's bounded outbound queue.
type Session struct {
	conn       *websocket.Conn
	connection *registry.Connection
	bridge     *Bridge
	state      atomic.Int32
	closeOnce  sync.Once
	logger     *slog.Logger
}

func newSession(conn *websocket.Conn, displayName string, b *Bridge) *Session {
	return &Session{
		conn:       conn,
		connection: registry.NewConnection(displayName, b.opts.SendQueueSize),
		bridge:     b,
		logger:     slog.Default().With("component", "session", "display_name", displayName),
	}
}

// start registers the connection, announces it, and launches both loops.
// Subscription happens before the join broadcast, so the new connection
// receives its own join frame.
func (s *Session) start() {
	id := s.bridge.registry.Register(s.connection)
	s.bridge.registry.Subscribe(id, DefaultTopic)
	s.state.Store(int32(StateOpen))
	s.logger = s.logger.With("connection_id", id)
	s.logger.Info("Session opened", "total_connections", s.bridge.registry.Count())

	// Private welcome to the new connection only, then the join and roster
	// broadcasts through the hub.
	welcome := event.Chat("system", fmt.Sprintf("Welcome to the chat, %s!", s.connection.DisplayName))
	s.bridge.hub.SendDirect(s.connection, welcome)

	ctx := context.Background()
	if err := s.bridge.hub.Publish(ctx, DefaultTopic, s.connection.ID, event.Join(s.connection.DisplayName)); err != nil {
		s.logger.Error("Failed to publish join event", "error", err)
	}
	s.publishUserList(ctx)

	go s.writeLoop()
	go s.readLoop()
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// readLoop reads one frame at a time until the connection errors, the peer
// closes, or the idle window elapses with no traffic.
func (s *Session) readLoop() {
	defer s.teardown()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), s.bridge.opts.IdleTimeout)
		_, data, err := s.conn.Read(ctx)
		cancel()
		if err != nil {
			switch {
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
				websocket.CloseStatus(err) == websocket.StatusGoingAway:
				s.logger.Info("WebSocket closed by client")
			case errors.Is(err, context.DeadlineExceeded):
				s.logger.Info("Closing idle connection")
			case !errors.Is(err, io.EOF):
				s.logger.Error("WebSocket read error", "error", err)
			}
			return
		}

		s.handleFrame(data)
	}
}

// handleFrame decodes one inbound frame. Decode errors are never fatal: the
// sender gets a private system frame and the loop continues. Only "chat"
// frames reach the hub; other types are accepted and ignored.
func (s *Session) handleFrame(data []byte) {
	var in event.Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		s.logger.Warn("Malformed inbound frame", "error", err)
		s.bridge.hub.SendDirect(s.connection, event.SystemError("invalid frame: expected a JSON object"))
		return
	}

	if in.Type != string(event.TypeChat) {
		s.logger.Debug("Ignoring non-chat frame", "type", in.Type)
		return
	}

	// Sender identity is re-stamped from the registry record; whatever the
	// client put in the frame is discarded.
	ev := event.Chat(s.connection.DisplayName, in.Content)
	if err := s.bridge.hub.Publish(context.Background(), DefaultTopic, s.connection.ID, ev); err != nil {
		s.logger.Error("Failed to publish chat event", "error", err)
	}
}

// writeLoop is the single writer on the wire. It drains the outbound queue
// in FIFO order and closes the socket once the queue is closed and drained.
func (s *Session) writeLoop() {
	defer func() {
		s.teardown()
		s.state.Store(int32(StateClosed))
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
	}()

	for payload := range s.connection.Outbound() {
		ctx, cancel := context.WithTimeout(context.Background(), s.bridge.opts.WriteTimeout)
		err := s.conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			s.logger.Error("WebSocket write error", "error", err)
			return
		}
	}
}

// teardown moves the session to Closing exactly once: the connection leaves
// the registry, the departure is announced if this was the first close
// signal, and the outbound queue is closed so the write loop drains and
// exits. A grace timer force-closes the socket if draining stalls.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosing))

		removed := s.bridge.registry.Unregister(s.connection.ID)
		if removed {
			ctx := context.Background()
			if err := s.bridge.hub.Publish(ctx, DefaultTopic, s.connection.ID, event.Leave(s.connection.DisplayName)); err != nil {
				s.logger.Error("Failed to publish leave event", "error", err)
			}
			s.publishUserList(ctx)
		}

		s.connection.CloseSend()
		time.AfterFunc(s.bridge.opts.CloseGrace, func() {
			s.conn.Close(websocket.StatusGoingAway, "close grace elapsed")
		})

		s.logger.Info("Session closing", "total_connections", s.bridge.registry.Count())
	})
}

func (s *Session) publishUserList(ctx context.Context) {
	ev, err := event.UserList(s.bridge.registry.DisplayNames(DefaultTopic))
	if err != nil {
		s.logger.Error("Failed to build user list event", "error", err)
		return
	}
	if err := s.bridge.hub.Publish(ctx, DefaultTopic, s.connection.ID, ev); err != nil {
		s.logger.Error("Failed to publish user list event", "error", err)
	}
}
