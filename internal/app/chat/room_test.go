package chat

import "testing"

func TestDirectRoomIDSymmetry(t *testing.T) {
	pairs := [][2]int64{
		{5, 9},
		{9, 5},
		{1, 2},
		{42, 42},
		{7, 1000000},
	}

	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		if DirectRoomID(a, b) != DirectRoomID(b, a) {
			t.Errorf("DirectRoomID(%d,%d) = %q, DirectRoomID(%d,%d) = %q; want equal",
				a, b, DirectRoomID(a, b), b, a, DirectRoomID(b, a))
		}
	}
}

func TestDirectRoomIDFormat(t *testing.T) {
	if got := DirectRoomID(9, 5); got != "dm:5:9" {
		t.Fatalf("DirectRoomID(9,5) = %q, want dm:5:9", got)
	}
}

func TestParseRoomIDRoundTrip(t *testing.T) {
	lo, hi, customErr := ParseRoomID(DirectRoomID(9, 5))
	if customErr != nil {
		t.Fatalf("ParseRoomID failed: %v", customErr)
	}
	if lo != 5 || hi != 9 {
		t.Fatalf("ParseRoomID returned (%d, %d), want (5, 9)", lo, hi)
	}
}

func TestParseRoomIDRejectsMalformed(t *testing.T) {
	malformed := []string{
		"",
		"dm",
		"dm:5",
		"dm:5:9:2",
		"group:5:9",
		"dm:a:9",
		"dm:5:b",
		"dm:9:5",  // unsorted pair has no canonical meaning
		"dm:0:9",  // IDs are positive
		"dm:-1:9",
	}

	for _, roomID := range malformed {
		if _, _, customErr := ParseRoomID(roomID); customErr == nil {
			t.Errorf("ParseRoomID(%q) accepted a malformed identifier", roomID)
		}
	}
}

func TestRoomHasParticipant(t *testing.T) {
	roomID := DirectRoomID(5, 9)

	if !RoomHasParticipant(roomID, 5) || !RoomHasParticipant(roomID, 9) {
		t.Fatalf("expected both participants of %q to be recognized", roomID)
	}

	if RoomHasParticipant(roomID, 7) {
		t.Fatalf("person 7 must not be a participant of %q", roomID)
	}

	if RoomHasParticipant("not-a-room", 5) {
		t.Fatal("malformed room must have no participants")
	}
}
