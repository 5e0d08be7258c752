/*
Package chat contains the core logic for real-time direct-message delivery.

This file defines the wire protocol spoken over the websocket: JSON frames with
an event name and a payload. Frames are fire-and-forget; no acknowledgement
frame exists in the protocol.
*/
package chat

import (
	"encoding/json"
	"fmt"

	"mingle/internal/app/store"
)

// EventName identifies the kind of a websocket frame.
type EventName string

// Client-to-relay events.
const (
	// EventJoinRoom subscribes the connection to a conversation room.
	EventJoinRoom EventName = "joinRoom"

	// EventLeaveRoom unsubscribes the connection from a conversation room.
	EventLeaveRoom EventName = "leaveRoom"

	// EventSendMessage asks the relay to fan out a freshly persisted message.
	EventSendMessage EventName = "sendMessage"

	// EventUpdateMessage asks the relay to fan out an edited message.
	EventUpdateMessage EventName = "updateMessage"

	// EventDeleteMessage asks the relay to fan out a message deletion.
	EventDeleteMessage EventName = "deleteMessage"
)

// Relay-to-client events.
const (
	// EventNewMessage delivers a new message to every member of a room.
	EventNewMessage EventName = "newMessage"

	// EventUpdatedMessage delivers an edited message to every member of a room.
	EventUpdatedMessage EventName = "updatedMessage"

	// EventDeletedMessage delivers a deleted message's ID to every member of a room.
	EventDeletedMessage EventName = "deletedMessage"

	// EventError notifies the connection about a rejected request (e.g. join denied).
	EventError EventName = "error"
)

// Frame is the envelope for every websocket message in both directions.
type Frame struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload carries the room identifier for joinRoom and leaveRoom frames.
type JoinPayload struct {
	RoomID string `json:"roomId"`
}

// MessagePayload carries a room identifier and a full message for
// sendMessage and updateMessage frames. The relay trusts that the REST layer
// has already validated and persisted the message.
type MessagePayload struct {
	RoomID  string        `json:"roomId"`
	Message store.Message `json:"message"`
}

// DeletePayload carries a room identifier and a message ID for deleteMessage frames.
type DeletePayload struct {
	RoomID    string `json:"roomId"`
	MessageID int64  `json:"messageId"`
}

// ErrorPayload carries a rejected request's business code and description.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// EncodeFrame marshals an event and its payload into the on-wire byte form.
func EncodeFrame(event EventName, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}

	frame, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal %s frame: %w", event, err)
	}

	return frame, nil
}
