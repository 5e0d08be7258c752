/*
Package client provides the Go client for the Mingle server.

This file defines the Socket, a thin wrapper over the websocket relay
connection. Inbound frames are decoded and dispatched to the registered
handlers; outbound emits are serialized behind a write mutex because
gorilla websocket connections support only one concurrent writer.
*/
package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"mingle/internal/app/chat"
	"mingle/internal/app/store"
)

const (
	socketWriteWait = 10 * time.Second
	socketPongWait  = 60 * time.Second
)

// SocketHandlers holds the callbacks invoked by the read loop. Nil callbacks
// are skipped. Callbacks run on the read loop goroutine; they must not block.
type SocketHandlers struct {
	OnNewMessage     func(store.Message)
	OnUpdatedMessage func(store.Message)
	OnDeletedMessage func(messageID int64)
	OnError          func(code int, message string)
	OnDisconnect     func(err error)
}

// Socket is a client connection to the real-time relay.
type Socket struct {
	ws       *websocket.Conn
	handlers SocketHandlers

	// writeMu serializes outbound frames.
	writeMu sync.Mutex

	closeOnce sync.Once

	// closed marks an explicit Close so the read loop's teardown is not
	// reported as a disconnect.
	closed atomic.Bool
}

// DialSocket connects to the relay at the given server base URL ("http://host:port")
// using the provided access token, then starts the read loop.
func DialSocket(baseURL, token string, handlers SocketHandlers) (*Socket, error) {
	wsBase := "ws" + strings.TrimPrefix(baseURL, "http")

	endpoint := wsBase + "/ws?token=" + url.QueryEscape(token)
	ws, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	s := &Socket{ws: ws, handlers: handlers}

	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(socketPongWait))
	})
	ws.SetPingHandler(func(appData string) error {
		if err := ws.SetReadDeadline(time.Now().Add(socketPongWait)); err != nil {
			return err
		}
		return s.writeControl(websocket.PongMessage, []byte(appData))
	})

	go s.readLoop()

	return s, nil
}

// Join subscribes the socket to the given conversation room.
func (s *Socket) Join(roomID string) error {
	return s.emit(chat.EventJoinRoom, chat.JoinPayload{RoomID: roomID})
}

// Leave unsubscribes the socket from the given conversation room.
func (s *Socket) Leave(roomID string) error {
	return s.emit(chat.EventLeaveRoom, chat.JoinPayload{RoomID: roomID})
}

// EmitNew asks the relay to fan out a freshly persisted message.
func (s *Socket) EmitNew(payload chat.MessagePayload) error {
	return s.emit(chat.EventSendMessage, payload)
}

// EmitUpdated asks the relay to fan out an edited message.
func (s *Socket) EmitUpdated(payload chat.MessagePayload) error {
	return s.emit(chat.EventUpdateMessage, payload)
}

// EmitDeleted asks the relay to fan out a message deletion.
func (s *Socket) EmitDeleted(payload chat.DeletePayload) error {
	return s.emit(chat.EventDeleteMessage, payload)
}

// Close shuts down the connection. The read loop terminates without firing
// OnDisconnect; that callback is reserved for disconnects the caller did not
// ask for.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		deadline := time.Now().Add(socketWriteWait)
		_ = s.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = s.ws.Close()
	})
	return err
}

func (s *Socket) emit(event chat.EventName, payload any) error {
	frame, err := chat.EncodeFrame(event, payload)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ws.SetWriteDeadline(time.Now().Add(socketWriteWait)); err != nil {
		return err
	}
	return s.ws.WriteMessage(websocket.TextMessage, frame)
}

func (s *Socket) writeControl(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ws.WriteControl(messageType, data, time.Now().Add(socketWriteWait))
}

func (s *Socket) readLoop() {
	for {
		_, frameBytes, err := s.ws.ReadMessage()
		if err != nil {
			if !s.closed.Load() && s.handlers.OnDisconnect != nil {
				s.handlers.OnDisconnect(err)
			}
			return
		}

		s.dispatch(frameBytes)
	}
}

// dispatch decodes one inbound frame and invokes the matching handler.
// Unknown events and malformed payloads are ignored; the relay may grow new
// event kinds without breaking older clients.
func (s *Socket) dispatch(frameBytes []byte) {
	var frame chat.Frame
	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		return
	}

	switch frame.Event {
	case chat.EventNewMessage:
		var message store.Message
		if err := json.Unmarshal(frame.Data, &message); err != nil {
			return
		}
		if s.handlers.OnNewMessage != nil {
			s.handlers.OnNewMessage(message)
		}

	case chat.EventUpdatedMessage:
		var message store.Message
		if err := json.Unmarshal(frame.Data, &message); err != nil {
			return
		}
		if s.handlers.OnUpdatedMessage != nil {
			s.handlers.OnUpdatedMessage(message)
		}

	case chat.EventDeletedMessage:
		var messageID int64
		if err := json.Unmarshal(frame.Data, &messageID); err != nil {
			return
		}
		if s.handlers.OnDeletedMessage != nil {
			s.handlers.OnDeletedMessage(messageID)
		}

	case chat.EventError:
		var payload chat.ErrorPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return
		}
		if s.handlers.OnError != nil {
			s.handlers.OnError(payload.Code, payload.Message)
		}
	}
}
