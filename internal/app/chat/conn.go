/*
Package chat contains the core logic for real-time direct-message delivery.

This file defines the Conn struct, representing an authenticated WebSocket
connection. It manages the connection's lifecycle, the message read/write
loops (ReadPump and WritePump), and dispatch of inbound frames to the Registry.
*/
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mingle/internal/pkg/errs"
	"mingle/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// capacity of the per-connection outbound queue.
	sendQueueSize = 256
)

// Conn represents an authenticated WebSocket connection. One Conn maps to
// exactly one client instance; a person with several open tabs or devices
// holds several Conns, each joined to rooms independently.
type Conn struct {
	// registry tracks this connection's room memberships.
	registry *Registry

	// underlying WebSocket connection object.
	ws *websocket.Conn

	// personID is the authenticated person behind the connection.
	personID int64

	// username of the authenticated person, carried for log context.
	username string

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// closeOnce guards the send channel against double close.
	closeOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewConn constructs a Conn for an upgraded, authenticated websocket.
func NewConn(registry *Registry, ws *websocket.Conn, personID int64, username string) *Conn {
	connLogger := logx.Logger().With().
		Int64("person_id", personID).
		Str("username", username).
		Logger()

	return &Conn{
		registry: registry,
		ws:       ws,
		personID: personID,
		username: username,
		send:     make(chan []byte, sendQueueSize),
		logger:   connLogger,
	}
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), frame parsing, and performs cleanup upon
// connection closure.
func (c *Conn) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.ws.SetReadLimit(maxMessageSize)

	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.processInboundFrame(frameBytes)
	}
}

// cleanupOnDisconnect removes the connection from every joined room and
// closes the underlying transport when the read pump terminates.
func (c *Conn) cleanupOnDisconnect() {
	c.logger.Info().Msg("Connection cleanup starting.")

	c.registry.Disconnect(c)

	c.closeSendQueue()

	if err := c.ws.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Connection close error")
	}
}

// processInboundFrame handles a raw frame received from the client.
// Malformed frames are logged and ignored; they never terminate the connection.
func (c *Conn) processInboundFrame(frameBytes []byte) {
	var frame Frame
	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		c.logger.Warn().Err(err).Bytes("frame_bytes", frameBytes).Msg("Client sent invalid JSON frame")
		return
	}

	switch frame.Event {
	case EventJoinRoom:
		c.handleJoin(frame.Data)

	case EventLeaveRoom:
		c.handleLeave(frame.Data)

	case EventSendMessage:
		var payload MessagePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			c.logger.Warn().Err(err).Msg("Client sent invalid sendMessage payload")
			return
		}
		c.registry.RelayNew(c, payload)

	case EventUpdateMessage:
		var payload MessagePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			c.logger.Warn().Err(err).Msg("Client sent invalid updateMessage payload")
			return
		}
		c.registry.RelayUpdated(c, payload)

	case EventDeleteMessage:
		var payload DeletePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			c.logger.Warn().Err(err).Msg("Client sent invalid deleteMessage payload")
			return
		}
		c.registry.RelayDeleted(c, payload)

	default:
		c.logger.Warn().Str("event", string(frame.Event)).Msg("Client sent unsupported event")
	}
}

// handleJoin processes a joinRoom frame. A refused join (malformed room or
// non-participant) is reported back with an error frame.
func (c *Conn) handleJoin(data json.RawMessage) {
	var payload JoinPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid joinRoom payload")
		return
	}

	if customErr := c.registry.Join(c, payload.RoomID); customErr != nil {
		c.SendError(customErr)
	}
}

// handleLeave processes a leaveRoom frame.
func (c *Conn) handleLeave(data json.RawMessage) {
	var payload JoinPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid leaveRoom payload")
		return
	}

	c.registry.Leave(c, payload.RoomID)
}

// WritePump handles writing frames from the send queue to the WebSocket
// connection and maintains the heartbeat.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.ws.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame handles frames pulled from the send channel, writing them to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Conn) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.ws.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Conn) writePingMessage() bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// queueFrame attempts to enqueue an encoded frame for delivery.
// Frames for slow consumers are dropped rather than blocking the broadcast.
func (c *Conn) queueFrame(frame []byte) error {
	select {
	case c.send <- frame:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Connection send queue full, dropping frame")
		return fmt.Errorf("connection send queue full")
	}
}

// SendError constructs and sends an error frame to the client.
func (c *Conn) SendError(err error) {
	var code int
	var message string

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
	} else {
		code = errs.ErrUnknown
		message = fmt.Sprintf("Internal server error: %v", err)
	}

	frame, encodeErr := EncodeFrame(EventError, ErrorPayload{Code: code, Message: message})
	if encodeErr != nil {
		c.logger.Error().Err(encodeErr).Msg("Failed to build error frame")
		return
	}

	if err := c.queueFrame(frame); err != nil {
		c.logger.Error().Err(err).Msg("Failed to queue error frame")
	}
}

// closeSendQueue closes the send channel exactly once, signalling the write
// pump to emit a close frame and exit.
func (c *Conn) closeSendQueue() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
