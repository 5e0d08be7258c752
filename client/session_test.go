package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"mingle/internal/app/chat"
	"mingle/internal/app/store"
)

// fakeMessageAPI hands out canned messages with incrementing IDs and
// records nothing but what the session asked for.
type fakeMessageAPI struct {
	selfID  int64
	nextID  int64
	now     time.Time
	history []store.Message

	deleted []int64

	// Hooks run during the matching call, before it returns. They let tests
	// interleave session operations with an in-flight REST request.
	onCreate func()
	onEdit   func()
	onDelete func()
}

func newFakeMessageAPI(selfID int64) *fakeMessageAPI {
	return &fakeMessageAPI{
		selfID: selfID,
		nextID: 101,
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeMessageAPI) Messenger(_ context.Context, _ int64) ([]store.Message, error) {
	return append([]store.Message(nil), f.history...), nil
}

func (f *fakeMessageAPI) CreateMessage(_ context.Context, receiverID int64, text string) (store.Message, error) {
	if f.onCreate != nil {
		f.onCreate()
	}
	f.now = f.now.Add(time.Second)
	m := store.Message{
		ID:         f.nextID,
		SenderID:   f.selfID,
		ReceiverID: receiverID,
		Text:       text,
		CreatedAt:  f.now,
		UpdatedAt:  f.now,
	}
	f.nextID++
	return m, nil
}

func (f *fakeMessageAPI) EditMessage(_ context.Context, messageID int64, text string) (store.Message, error) {
	if f.onEdit != nil {
		f.onEdit()
	}
	f.now = f.now.Add(time.Second)
	return store.Message{
		ID:         messageID,
		SenderID:   f.selfID,
		ReceiverID: 9,
		Text:       text,
		CreatedAt:  f.now.Add(-time.Minute),
		UpdatedAt:  f.now,
	}, nil
}

func (f *fakeMessageAPI) DeleteMessage(_ context.Context, messageID int64) error {
	if f.onDelete != nil {
		f.onDelete()
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

// fakeEmitter records every relay emit.
type fakeEmitter struct {
	joined  []string
	left    []string
	news    []chat.MessagePayload
	updates []chat.MessagePayload
	deletes []chat.DeletePayload
}

func (f *fakeEmitter) Join(roomID string) error  { f.joined = append(f.joined, roomID); return nil }
func (f *fakeEmitter) Leave(roomID string) error { f.left = append(f.left, roomID); return nil }

func (f *fakeEmitter) EmitNew(p chat.MessagePayload) error {
	f.news = append(f.news, p)
	return nil
}

func (f *fakeEmitter) EmitUpdated(p chat.MessagePayload) error {
	f.updates = append(f.updates, p)
	return nil
}

func (f *fakeEmitter) EmitDeleted(p chat.DeletePayload) error {
	f.deletes = append(f.deletes, p)
	return nil
}

// newTestSession builds a session between persons 5 and 9.
func newTestSession(t *testing.T) (*Session, *fakeMessageAPI, *fakeEmitter) {
	t.Helper()

	api := newFakeMessageAPI(5)
	emitter := &fakeEmitter{}
	session := NewSession(api, emitter, 5, 9)
	return session, api, emitter
}

func texts(messages []store.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Text)
	}
	return out
}

func TestOpenLoadsHistoryAndJoinsRoom(t *testing.T) {
	session, api, emitter := newTestSession(t)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	api.history = []store.Message{
		{ID: 2, SenderID: 9, ReceiverID: 5, Text: "second", CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute)},
		{ID: 1, SenderID: 5, ReceiverID: 9, Text: "first", CreatedAt: base, UpdatedAt: base},
	}

	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	if len(emitter.joined) != 1 || emitter.joined[0] != "dm:5:9" {
		t.Fatalf("joined = %v, want [dm:5:9]", emitter.joined)
	}

	got := texts(session.Messages())
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("messages = %v, want history ordered oldest first", got)
	}
}

func TestSendCreatesThenEmits(t *testing.T) {
	session, _, emitter := newTestSession(t)
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	message, err := session.Send(t.Context(), "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if message.ID != 101 {
		t.Fatalf("message id = %d, want 101", message.ID)
	}

	got := session.Messages()
	if len(got) != 1 || got[0].Text != "hello" {
		t.Fatalf("messages = %v, want the sent message", texts(got))
	}

	if len(emitter.news) != 1 {
		t.Fatalf("got %d new emits, want 1", len(emitter.news))
	}
	if emitter.news[0].RoomID != "dm:5:9" || emitter.news[0].Message.ID != 101 {
		t.Fatalf("emit = %+v, want room dm:5:9 message 101", emitter.news[0])
	}
}

func TestEchoOfOwnSendIsIgnored(t *testing.T) {
	session, _, _ := newTestSession(t)
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	sent, err := session.Send(t.Context(), "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// The relay echoes the sender's own event back to them.
	session.HandleNewMessage(sent)

	if got := session.Messages(); len(got) != 1 {
		t.Fatalf("got %d messages after echo, want 1", len(got))
	}
}

func TestInboundMessageFromCounterpartIsAppended(t *testing.T) {
	session, _, _ := newTestSession(t)
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	incoming := store.Message{ID: 201, SenderID: 9, ReceiverID: 5, Text: "hi back", CreatedAt: now, UpdatedAt: now}

	session.HandleNewMessage(incoming)
	// Duplicate delivery changes nothing.
	session.HandleNewMessage(incoming)

	got := session.Messages()
	if len(got) != 1 || got[0].ID != 201 {
		t.Fatalf("messages = %v, want just message 201", got)
	}

	// A message between two other persons never lands in this session.
	stranger := store.Message{ID: 301, SenderID: 7, ReceiverID: 5, Text: "wrong room", CreatedAt: now, UpdatedAt: now}
	session.HandleNewMessage(stranger)
	if got := session.Messages(); len(got) != 1 {
		t.Fatalf("got %d messages after foreign event, want 1", len(got))
	}
}

func TestEditFlow(t *testing.T) {
	session, _, emitter := newTestSession(t)
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	sent, err := session.Send(t.Context(), "typo")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	prefill, err := session.StartEdit(sent.ID)
	if err != nil {
		t.Fatalf("start edit: %v", err)
	}
	if prefill != "typo" {
		t.Fatalf("prefill = %q, want %q", prefill, "typo")
	}
	if session.PendingEdit() != sent.ID {
		t.Fatalf("pending edit = %d, want %d", session.PendingEdit(), sent.ID)
	}

	// With an edit pending, Send submits the edit instead of a new message.
	edited, err := session.Send(t.Context(), "fixed")
	if err != nil {
		t.Fatalf("submit edit: %v", err)
	}
	if edited.ID != sent.ID {
		t.Fatalf("edited id = %d, want %d", edited.ID, sent.ID)
	}
	if session.PendingEdit() != 0 {
		t.Fatal("pending edit not cleared after submit")
	}

	got := session.Messages()
	if len(got) != 1 || got[0].Text != "fixed" {
		t.Fatalf("messages = %v, want single edited message", texts(got))
	}

	if len(emitter.updates) != 1 || emitter.updates[0].Message.ID != sent.ID {
		t.Fatalf("updates = %+v, want one update for message %d", emitter.updates, sent.ID)
	}
}

func TestStartEditValidation(t *testing.T) {
	session, api, _ := newTestSession(t)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	api.history = []store.Message{
		{ID: 1, SenderID: 9, ReceiverID: 5, Text: "theirs", CreatedAt: base, UpdatedAt: base},
	}
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := session.StartEdit(1); !errors.Is(err, ErrNotOwnMessage) {
		t.Fatalf("edit of counterpart message: err = %v, want ErrNotOwnMessage", err)
	}
	if _, err := session.StartEdit(999); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("edit of unknown message: err = %v, want ErrUnknownMessage", err)
	}
}

func TestCancelEdit(t *testing.T) {
	session, _, emitter := newTestSession(t)
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	sent, _ := session.Send(t.Context(), "keep me")
	if _, err := session.StartEdit(sent.ID); err != nil {
		t.Fatalf("start edit: %v", err)
	}
	session.CancelEdit()

	if session.PendingEdit() != 0 {
		t.Fatal("pending edit not cleared by cancel")
	}

	// The next send is a fresh message again.
	if _, err := session.Send(t.Context(), "new one"); err != nil {
		t.Fatalf("send after cancel: %v", err)
	}
	if len(session.Messages()) != 2 {
		t.Fatalf("got %d messages, want 2", len(session.Messages()))
	}
	if len(emitter.updates) != 0 {
		t.Fatalf("got %d update emits after cancel, want 0", len(emitter.updates))
	}
}

func TestStaleUpdateIsIgnored(t *testing.T) {
	session, _, _ := newTestSession(t)
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	original := store.Message{ID: 201, SenderID: 9, ReceiverID: 5, Text: "v1", CreatedAt: now, UpdatedAt: now}
	session.HandleNewMessage(original)

	newer := original
	newer.Text = "v3"
	newer.UpdatedAt = now.Add(2 * time.Second)
	session.HandleUpdatedMessage(newer)

	// An older broadcast arriving late must not win.
	older := original
	older.Text = "v2"
	older.UpdatedAt = now.Add(time.Second)
	session.HandleUpdatedMessage(older)

	// Re-delivery of the current state is a no-op.
	session.HandleUpdatedMessage(newer)

	got := session.Messages()
	if len(got) != 1 || got[0].Text != "v3" {
		t.Fatalf("messages = %v, want v3 to survive the stale update", texts(got))
	}
}

func TestUpdateForUnknownMessageIsIgnored(t *testing.T) {
	session, _, _ := newTestSession(t)
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session.HandleUpdatedMessage(store.Message{ID: 404, SenderID: 9, ReceiverID: 5, Text: "ghost", CreatedAt: now, UpdatedAt: now})

	if got := session.Messages(); len(got) != 0 {
		t.Fatalf("messages = %v, want none", got)
	}
}

func TestDeleteFlow(t *testing.T) {
	session, api, emitter := newTestSession(t)
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	sent, _ := session.Send(t.Context(), "remove me")

	if err := session.Delete(t.Context(), sent.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(api.deleted) != 1 || api.deleted[0] != sent.ID {
		t.Fatalf("api deletions = %v, want [%d]", api.deleted, sent.ID)
	}
	if len(session.Messages()) != 0 {
		t.Fatal("message still present after delete")
	}
	if len(emitter.deletes) != 1 || emitter.deletes[0].MessageID != sent.ID {
		t.Fatalf("delete emits = %+v, want one for message %d", emitter.deletes, sent.ID)
	}

	// The echo of the delete is a no-op.
	session.HandleDeletedMessage(sent.ID)
	if len(session.Messages()) != 0 {
		t.Fatal("echo of delete resurrected the message")
	}
}

func TestDeleteValidation(t *testing.T) {
	session, api, _ := newTestSession(t)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	api.history = []store.Message{
		{ID: 1, SenderID: 9, ReceiverID: 5, Text: "theirs", CreatedAt: base, UpdatedAt: base},
	}
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := session.Delete(t.Context(), 1); !errors.Is(err, ErrNotOwnMessage) {
		t.Fatalf("delete of counterpart message: err = %v, want ErrNotOwnMessage", err)
	}
	if err := session.Delete(t.Context(), 999); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("delete of unknown message: err = %v, want ErrUnknownMessage", err)
	}
}

func TestInboundDeleteRemovesAndClearsPendingEdit(t *testing.T) {
	session, _, _ := newTestSession(t)
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	sent, _ := session.Send(t.Context(), "about to vanish")
	if _, err := session.StartEdit(sent.ID); err != nil {
		t.Fatalf("start edit: %v", err)
	}

	// The counterpart cannot delete this message server-side, but the relay
	// protocol allows the event; the session just reconciles.
	session.HandleDeletedMessage(sent.ID)

	if len(session.Messages()) != 0 {
		t.Fatal("message still present after inbound delete")
	}
	if session.PendingEdit() != 0 {
		t.Fatal("pending edit not cleared by inbound delete")
	}
}

func TestCloseDuringSendIsNotApplied(t *testing.T) {
	session, api, emitter := newTestSession(t)
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	api.onCreate = func() { _ = session.Close() }

	if _, err := session.Send(t.Context(), "racer"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("send racing close: err = %v, want ErrSessionClosed", err)
	}
	if got := session.Messages(); len(got) != 0 {
		t.Fatalf("messages = %v, want none applied after close", texts(got))
	}
	if len(emitter.news) != 0 {
		t.Fatalf("got %d new emits after close, want 0", len(emitter.news))
	}
}

func TestCloseDuringEditIsNotApplied(t *testing.T) {
	session, api, emitter := newTestSession(t)
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	sent, err := session.Send(t.Context(), "typo")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := session.StartEdit(sent.ID); err != nil {
		t.Fatalf("start edit: %v", err)
	}

	api.onEdit = func() { _ = session.Close() }

	if _, err := session.Send(t.Context(), "fixed"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("edit racing close: err = %v, want ErrSessionClosed", err)
	}
	got := session.Messages()
	if len(got) != 1 || got[0].Text != "typo" {
		t.Fatalf("messages = %v, want the original text untouched", texts(got))
	}
	if len(emitter.updates) != 0 {
		t.Fatalf("got %d update emits after close, want 0", len(emitter.updates))
	}
}

func TestCloseDuringDeleteIsNotApplied(t *testing.T) {
	session, api, emitter := newTestSession(t)
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	sent, err := session.Send(t.Context(), "doomed")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	api.onDelete = func() { _ = session.Close() }

	if err := session.Delete(t.Context(), sent.ID); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("delete racing close: err = %v, want ErrSessionClosed", err)
	}
	if len(emitter.deletes) != 0 {
		t.Fatalf("got %d delete emits after close, want 0", len(emitter.deletes))
	}
}

func TestClosedSessionIgnoresEventsAndRefusesActions(t *testing.T) {
	session, _, emitter := newTestSession(t)
	if err := session.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := session.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(emitter.left) != 1 || emitter.left[0] != "dm:5:9" {
		t.Fatalf("left = %v, want [dm:5:9]", emitter.left)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session.HandleNewMessage(store.Message{ID: 201, SenderID: 9, ReceiverID: 5, Text: "late", CreatedAt: now, UpdatedAt: now})
	if len(session.Messages()) != 0 {
		t.Fatal("closed session accepted a late event")
	}

	if _, err := session.Send(t.Context(), "too late"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("send after close: err = %v, want ErrSessionClosed", err)
	}

	// Closing twice is a no-op.
	if err := session.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if len(emitter.left) != 1 {
		t.Fatalf("second close emitted another leave: %v", emitter.left)
	}
}
