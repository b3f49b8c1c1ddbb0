package server_test

import (
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/event"
	"github.com/nfrund/parley/internal/server"
)

// newTestConfig returns a config with short timeouts suitable for tests.
// Fault injection stays off so backend calls are deterministic.
func newTestConfig() *config.Config {
	return &config.Config{
		Addr:              ":0",
		LogFormat:         "text",
		SendQueueSize:     64,
		IdleTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Second,
		CloseGrace:        2 * time.Second,
		MaxFrameBytes:     4096,
		MaxAudioBytes:     10 << 20,
		AllowedAudioTypes: []string{"audio/wav", "audio/mpeg", "audio/ogg"},
		BackendTimeout:    5 * time.Second,
	}
}

// setupIntegrationTest encapsulates the boilerplate for setting up a full
// server instance for integration testing. It returns the server instance,
// the test server itself, and a cleanup function to be deferred.
func setupIntegrationTest(t *testing.T) (*server.Server, *httptest.Server, func()) {
	t.Helper()

	s, err := server.New(newTestConfig())
	require.NoError(t, err)
	s.RegisterRoutes()

	testServer := httptest.NewServer(s.E)

	cleanup := func() {
		testServer.Close()
		if err := s.Close(); err != nil {
			t.Logf("failed to close server: %v", err)
		}
	}
	return s, testServer, cleanup
}

// dialChat opens a WebSocket connection to the test server's /ws endpoint
// with the given display name.
func dialChat(t *testing.T, testServer *httptest.Server, username string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(testServer.URL, "http") + "/ws?username=" + url.QueryEscape(username)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "failed to connect to websocket as %s", username)
	return conn
}

// readEvent reads and decodes the next frame from the connection, failing
// the test if nothing arrives within two seconds.
func readEvent(t *testing.T, conn *websocket.Conn) event.Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err, "failed to read frame")

	var ev event.Event
	require.NoError(t, json.Unmarshal(data, &ev), "frame is not a valid event: %s", data)
	return ev
}

// waitForEvent reads frames until one of the given type arrives, discarding
// everything else along the way.
func waitForEvent(t *testing.T, conn *websocket.Conn, typ event.Type) event.Event {
	t.Helper()

	for i := 0; i < 10; i++ {
		ev := readEvent(t, conn)
		if ev.Type == typ {
			return ev
		}
	}
	t.Fatalf("never received an event of type %q", typ)
	return event.Event{}
}

// consumePreamble reads the frames every new connection receives on join:
// the private welcome, its own join broadcast, and the roster update.
func consumePreamble(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	waitForEvent(t, conn, event.TypeUserList)
}

// closeChat sends a normal close frame and closes the connection.
func closeChat(conn *websocket.Conn) {
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
}
