/*
Package client provides the Go client for the Mingle server.

This file defines the Session, the controller for one open conversation. It
owns the local message list, performs each user action as a REST call
followed by a relay emit, and reconciles inbound relay events against local
state so that the list converges regardless of event timing.
*/
package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"mingle/internal/app/chat"
	"mingle/internal/app/store"
)

// MessageAPI is the REST surface the Session needs. *API satisfies it.
type MessageAPI interface {
	Messenger(ctx context.Context, counterpartID int64) ([]store.Message, error)
	CreateMessage(ctx context.Context, receiverID int64, text string) (store.Message, error)
	EditMessage(ctx context.Context, messageID int64, text string) (store.Message, error)
	DeleteMessage(ctx context.Context, messageID int64) error
}

// RoomEmitter is the relay surface the Session needs. *Socket satisfies it.
type RoomEmitter interface {
	Join(roomID string) error
	Leave(roomID string) error
	EmitNew(payload chat.MessagePayload) error
	EmitUpdated(payload chat.MessagePayload) error
	EmitDeleted(payload chat.DeletePayload) error
}

// ErrSessionClosed is returned by actions on a closed session.
var ErrSessionClosed = errors.New("client: session is closed")

// ErrNotOwnMessage is returned when editing or deleting a message the
// session's person did not send.
var ErrNotOwnMessage = errors.New("client: not your message")

// ErrUnknownMessage is returned when the referenced message is not in the
// local list.
var ErrUnknownMessage = errors.New("client: unknown message")

// Session is the client-side controller for one direct conversation.
// All methods are safe for concurrent use; relay callbacks and user actions
// may race freely.
type Session struct {
	api     MessageAPI
	emitter RoomEmitter

	selfID        int64
	counterpartID int64
	roomID        string

	mu sync.Mutex

	// messages is the local view of the conversation, kept ordered by
	// CreatedAt with ID as the tiebreaker.
	messages []store.Message

	// pendingEditID is the message currently being edited, zero when none.
	pendingEditID int64

	closed bool
}

// NewSession constructs a Session between selfID and counterpartID. Call
// Open to load history and join the conversation room.
func NewSession(api MessageAPI, emitter RoomEmitter, selfID, counterpartID int64) *Session {
	return &Session{
		api:           api,
		emitter:       emitter,
		selfID:        selfID,
		counterpartID: counterpartID,
		roomID:        chat.DirectRoomID(selfID, counterpartID),
	}
}

// RoomID returns the identifier of the conversation room.
func (s *Session) RoomID() string {
	return s.roomID
}

// Open loads the conversation history and joins the relay room. The history
// fetch happens before the join, so an event relayed in between can arrive
// for a message already present; reconciliation handles the duplicate.
func (s *Session) Open(ctx context.Context) error {
	history, err := s.api.Messenger(ctx, s.counterpartID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	s.mu.Lock()
	s.messages = append([]store.Message(nil), history...)
	sortMessages(s.messages)
	s.mu.Unlock()

	if err := s.emitter.Join(s.roomID); err != nil {
		return fmt.Errorf("join room: %w", err)
	}

	return nil
}

// Handlers returns SocketHandlers wired to this session's reconciliation
// methods, for passing to DialSocket.
func (s *Session) Handlers() SocketHandlers {
	return SocketHandlers{
		OnNewMessage:     s.HandleNewMessage,
		OnUpdatedMessage: s.HandleUpdatedMessage,
		OnDeletedMessage: s.HandleDeletedMessage,
	}
}

// Send submits the typed text. With no edit pending it creates a new
// message; with an edit pending it replaces that message's text instead and
// clears the pending state. Either way the REST call persists first, the
// local list updates second, and the relay emit goes out last. Text that is
// empty after trimming is a no-op returning a zero message.
func (s *Session) Send(ctx context.Context, text string) (store.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return store.Message{}, nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return store.Message{}, ErrSessionClosed
	}
	editID := s.pendingEditID
	s.mu.Unlock()

	if editID != 0 {
		return s.submitEdit(ctx, editID, text)
	}

	message, err := s.api.CreateMessage(ctx, s.counterpartID, text)
	if err != nil {
		return store.Message{}, err
	}

	// Close may have raced the REST call; a closed session applies nothing
	// and emits nothing.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return message, ErrSessionClosed
	}
	s.upsertLocked(message)
	s.mu.Unlock()

	if err := s.emitter.EmitNew(chat.MessagePayload{RoomID: s.roomID, Message: message}); err != nil {
		return message, fmt.Errorf("emit new message: %w", err)
	}

	return message, nil
}

func (s *Session) submitEdit(ctx context.Context, messageID int64, text string) (store.Message, error) {
	message, err := s.api.EditMessage(ctx, messageID, text)
	if err != nil {
		return store.Message{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return message, ErrSessionClosed
	}
	s.upsertLocked(message)
	if s.pendingEditID == messageID {
		s.pendingEditID = 0
	}
	s.mu.Unlock()

	if err := s.emitter.EmitUpdated(chat.MessagePayload{RoomID: s.roomID, Message: message}); err != nil {
		return message, fmt.Errorf("emit updated message: %w", err)
	}

	return message, nil
}

// StartEdit marks one of the session's own messages as being edited and
// returns its current text for prefilling the input.
func (s *Session) StartEdit(messageID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrSessionClosed
	}

	idx := s.indexOfLocked(messageID)
	if idx < 0 {
		return "", ErrUnknownMessage
	}
	if s.messages[idx].SenderID != s.selfID {
		return "", ErrNotOwnMessage
	}

	s.pendingEditID = messageID
	return s.messages[idx].Text, nil
}

// CancelEdit clears any pending edit.
func (s *Session) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingEditID = 0
}

// PendingEdit returns the ID of the message being edited, zero when none.
func (s *Session) PendingEdit() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingEditID
}

// Delete removes one of the session's own messages: REST first, local list
// second, relay emit last. A pending edit of the deleted message is cleared.
func (s *Session) Delete(ctx context.Context, messageID int64) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}

	idx := s.indexOfLocked(messageID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrUnknownMessage
	}
	if s.messages[idx].SenderID != s.selfID {
		s.mu.Unlock()
		return ErrNotOwnMessage
	}
	s.mu.Unlock()

	if err := s.api.DeleteMessage(ctx, messageID); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.removeLocked(messageID)
	if s.pendingEditID == messageID {
		s.pendingEditID = 0
	}
	s.mu.Unlock()

	if err := s.emitter.EmitDeleted(chat.DeletePayload{RoomID: s.roomID, MessageID: messageID}); err != nil {
		return fmt.Errorf("emit deleted message: %w", err)
	}

	return nil
}

// Messages returns a copy of the current conversation view, ordered by
// creation time with ID as the tiebreaker.
func (s *Session) Messages() []store.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Message(nil), s.messages...)
}

// Close leaves the conversation room and stops the session. Relay events
// arriving after Close are ignored.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.emitter.Leave(s.roomID)
}

// HandleNewMessage reconciles an inbound newMessage event. The session's
// own sends are already in the list from the REST response, so only
// messages addressed to this person are appended; anything else is the echo
// of a local action. Duplicates by ID are ignored.
func (s *Session) HandleNewMessage(message store.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if !s.belongsHereLocked(message) {
		return
	}
	if message.ReceiverID != s.selfID {
		return
	}

	s.upsertLocked(message)
}

// HandleUpdatedMessage reconciles an inbound updatedMessage event. The
// update applies only when it is strictly newer than the local copy, so the
// echo of a local edit and re-delivered events are no-ops, and an older
// broadcast can never overwrite a newer edit.
func (s *Session) HandleUpdatedMessage(message store.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if !s.belongsHereLocked(message) {
		return
	}

	idx := s.indexOfLocked(message.ID)
	if idx < 0 {
		return
	}
	if !message.UpdatedAt.After(s.messages[idx].UpdatedAt) {
		return
	}

	s.messages[idx] = message
	sortMessages(s.messages)
}

// HandleDeletedMessage reconciles an inbound deletedMessage event. Deleting
// an absent message is a no-op, which also covers the echo of a local
// delete. A pending edit of the deleted message is cleared.
func (s *Session) HandleDeletedMessage(messageID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.removeLocked(messageID)
	if s.pendingEditID == messageID {
		s.pendingEditID = 0
	}
}

// belongsHereLocked reports whether the message is part of this session's
// conversation pair.
func (s *Session) belongsHereLocked(message store.Message) bool {
	return (message.SenderID == s.selfID && message.ReceiverID == s.counterpartID) ||
		(message.SenderID == s.counterpartID && message.ReceiverID == s.selfID)
}

func (s *Session) indexOfLocked(messageID int64) int {
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			return i
		}
	}
	return -1
}

// upsertLocked inserts or replaces by ID, then restores ordering.
func (s *Session) upsertLocked(message store.Message) {
	if idx := s.indexOfLocked(message.ID); idx >= 0 {
		s.messages[idx] = message
	} else {
		s.messages = append(s.messages, message)
	}
	sortMessages(s.messages)
}

func (s *Session) removeLocked(messageID int64) {
	idx := s.indexOfLocked(messageID)
	if idx < 0 {
		return
	}
	s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
}

func sortMessages(messages []store.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
}
