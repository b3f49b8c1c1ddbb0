// Package event defines the frames exchanged over the chat transport.
//
// Outbound frames are Events; inbound frames from clients are Inbound values.
// Timestamps are server-assigned wall-clock milliseconds, stamped by the hub
// at fan-out time so every recipient of a broadcast shares one ordering
// reference.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type discriminates the kinds of outbound frame.
type Type string

const (
	TypeJoin     Type = "join"
	TypeLeave    Type = "leave"
	TypeChat     Type = "chat"
	TypeUserList Type = "user_list"

	// TypeSystem is only ever sent privately to a single connection, e.g. to
	// report a malformed inbound frame. It is never broadcast.
	TypeSystem Type = "system"
)

// Event is a single outbound frame. Username is always the server's record
// for the originating connection, never a client-supplied value.
type Event struct {
	Type      Type   `json:"type"`
	Content   string `json:"content,omitempty"`
	Username  string `json:"username,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Inbound is a frame received from a client. Unrecognized fields are ignored
// by json.Unmarshal; unrecognized Type values are accepted but only "chat"
// triggers a broadcast.
type Inbound struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Chat builds a chat event attributed to the given display name.
func Chat(username, content string) Event {
	return Event{Type: TypeChat, Username: username, Content: content}
}

// Join announces that a connection entered the topic.
func Join(username string) Event {
	return Event{
		Type:     TypeJoin,
		Username: username,
		Content:  fmt.Sprintf("%s joined the chat", username),
	}
}

// Leave announces that a connection left the topic.
func Leave(username string) Event {
	return Event{
		Type:     TypeLeave,
		Username: username,
		Content:  fmt.Sprintf("%s left the chat", username),
	}
}

// UserList carries the current set of display names. The list rides in
// Content as a JSON-encoded array so the frame keeps the common shape.
func UserList(usernames []string) (Event, error) {
	data, err := json.Marshal(usernames)
	if err != nil {
		return Event{}, fmt.Errorf("encode user list: %w", err)
	}
	return Event{Type: TypeUserList, Content: string(data)}, nil
}

// SystemError builds a private error frame for the originating connection.
func SystemError(reason string) Event {
	return Event{Type: TypeSystem, Content: reason}
}

// Stamp assigns the broadcast timestamp and returns the event.
func (e Event) Stamp(now time.Time) Event {
	e.Timestamp = now.UnixMilli()
	return e
}
