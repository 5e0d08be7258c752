/*
Package chat contains the core logic for real-time direct-message delivery.

This file defines the Registry, which maintains socket-to-room membership and
relays message lifecycle events (new, updated, deleted) to every socket joined
to a room. The registry holds no durable state: messages are persisted by the
REST layer before their events are relayed, and rooms drain away as their last
socket leaves.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"mingle/internal/pkg/errs"
	"mingle/internal/pkg/logx"
)

// Registry tracks which connections have joined which rooms and fans out
// message events. Joins, leaves, disconnects, and broadcasts race across
// connection goroutines, so all membership state is guarded by mu.
type Registry struct {
	// rooms maps a room identifier to its current member set.
	rooms map[string]map[*Conn]struct{}

	// joined is the reverse index from a connection to the rooms it has
	// joined, making disconnect cleanup proportional to the rooms that
	// connection joined rather than to all rooms.
	joined map[*Conn]map[string]struct{}

	// mu protects rooms and joined.
	mu sync.RWMutex

	// structured logger with Registry context.
	logger zerolog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]map[*Conn]struct{}),
		joined: make(map[*Conn]map[string]struct{}),
		logger: logx.Logger().With().Str("component", "Registry").Logger(),
	}
}

// Join adds the connection to the membership set for roomID. Joining a room
// the connection is already a member of is a no-op. The connection's
// authenticated person must be one of the two participants encoded in the
// room identifier; otherwise the join is refused.
func (reg *Registry) Join(c *Conn, roomID string) *errs.CustomError {
	if _, _, customErr := ParseRoomID(roomID); customErr != nil {
		return customErr
	}

	if !RoomHasParticipant(roomID, c.personID) {
		reg.logger.Warn().
			Int64("person_id", c.personID).
			Str("room_id", roomID).
			Msg("Join refused: person is not a participant of the room.")
		return errs.NewError(errs.ErrRoomAccessDenied)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	members, ok := reg.rooms[roomID]
	if !ok {
		members = make(map[*Conn]struct{})
		reg.rooms[roomID] = members
	}

	if _, already := members[c]; already {
		return nil
	}

	members[c] = struct{}{}

	if reg.joined[c] == nil {
		reg.joined[c] = make(map[string]struct{})
	}
	reg.joined[c][roomID] = struct{}{}

	reg.logger.Info().
		Int64("person_id", c.personID).
		Str("room_id", roomID).
		Int("members", len(members)).
		Msg("Connection joined room.")

	return nil
}

// Leave removes the connection from the membership set for roomID.
// Leaving a room the connection never joined is a no-op.
func (reg *Registry) Leave(c *Conn, roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.removeLocked(c, roomID)
}

// Disconnect removes the connection from every room it has joined.
// Wired from the connection read pump's teardown so membership never outlives
// the underlying transport session.
func (reg *Registry) Disconnect(c *Conn) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for roomID := range reg.joined[c] {
		reg.removeLocked(c, roomID)
	}
}

// removeLocked deletes the membership entry in both directions and drops the
// room entirely once its last member is gone. Caller must hold mu.
func (reg *Registry) removeLocked(c *Conn, roomID string) {
	members, ok := reg.rooms[roomID]
	if !ok {
		return
	}

	if _, member := members[c]; !member {
		return
	}

	delete(members, c)
	if len(members) == 0 {
		delete(reg.rooms, roomID)
	}

	if joined, ok := reg.joined[c]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(reg.joined, c)
		}
	}

	reg.logger.Info().
		Int64("person_id", c.personID).
		Str("room_id", roomID).
		Msg("Connection left room.")
}

// RelayNew fans out a newMessage event carrying the full message payload to
// every member of roomID, including the sender's own other sessions.
func (reg *Registry) RelayNew(from *Conn, payload MessagePayload) {
	reg.relay(from, payload.RoomID, EventNewMessage, payload.Message)
}

// RelayUpdated fans out an updatedMessage event carrying the full updated payload.
func (reg *Registry) RelayUpdated(from *Conn, payload MessagePayload) {
	reg.relay(from, payload.RoomID, EventUpdatedMessage, payload.Message)
}

// RelayDeleted fans out a deletedMessage event carrying just the deleted message's ID.
func (reg *Registry) RelayDeleted(from *Conn, payload DeletePayload) {
	reg.relay(from, payload.RoomID, EventDeletedMessage, payload.MessageID)
}

// relay performs the shared membership check and fan-out. Events from a
// connection that never joined the target room are dropped without an error
// frame; the drop is logged because it usually indicates a client that forgot
// to join before emitting.
func (reg *Registry) relay(from *Conn, roomID string, event EventName, payload any) {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		reg.logger.Error().Err(err).Str("event", string(event)).Msg("Failed to encode relay frame.")
		return
	}

	reg.mu.RLock()
	defer reg.mu.RUnlock()

	members, ok := reg.rooms[roomID]
	if !ok {
		reg.logger.Warn().
			Int64("person_id", from.personID).
			Str("room_id", roomID).
			Str("event", string(event)).
			Msg("Dropping event for room with no members.")
		return
	}

	if _, member := members[from]; !member {
		reg.logger.Warn().
			Int64("person_id", from.personID).
			Str("room_id", roomID).
			Str("event", string(event)).
			Msg("Dropping event from connection that never joined the room.")
		return
	}

	for member := range members {
		member.queueFrame(frame)
	}
}

// RoomSize returns the number of connections currently joined to roomID.
func (reg *Registry) RoomSize(roomID string) int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	return len(reg.rooms[roomID])
}
