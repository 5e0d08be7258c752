/*
Package chat contains the core logic for real-time direct-message delivery:
room identifier derivation, socket connection lifecycle, and message event fan-out.

This file defines the room identifier scheme. A room is not a persisted entity;
it is a deterministic name for the conversation between two persons, and it
exists only while at least one socket is joined to it.
*/
package chat

import (
	"fmt"
	"strconv"
	"strings"

	"mingle/internal/pkg/errs"
)

// roomPrefix namespaces direct-conversation rooms.
const roomPrefix = "dm"

// DirectRoomID returns the canonical room identifier for the conversation
// between two persons. The pair is sorted before combining, so both
// participants compute the same identifier regardless of which side is the
// sender: DirectRoomID(a, b) == DirectRoomID(b, a).
func DirectRoomID(a, b int64) string {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("%s:%d:%d", roomPrefix, lo, hi)
}

// ParseRoomID splits a room identifier into its two participant IDs.
// It rejects malformed identifiers and unsorted or negative pairs, so that
// every valid room has exactly one spelling.
func ParseRoomID(roomID string) (int64, int64, *errs.CustomError) {
	parts := strings.Split(roomID, ":")
	if len(parts) != 3 || parts[0] != roomPrefix {
		return 0, 0, errs.NewError(errs.ErrRoomInvalid)
	}

	lo, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, errs.NewError(errs.ErrRoomInvalid)
	}

	hi, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, errs.NewError(errs.ErrRoomInvalid)
	}

	if lo <= 0 || hi <= 0 || lo > hi {
		return 0, 0, errs.NewError(errs.ErrRoomInvalid)
	}

	return lo, hi, nil
}

// RoomHasParticipant reports whether the given person is one of the two
// participants encoded in the room identifier. Used by the registry to refuse
// joins into conversations the caller does not belong to.
func RoomHasParticipant(roomID string, personID int64) bool {
	lo, hi, customErr := ParseRoomID(roomID)
	if customErr != nil {
		return false
	}
	return personID == lo || personID == hi
}
