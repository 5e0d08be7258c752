package handler

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"mingle/internal/app/store"
	"mingle/internal/pkg/errs"
)

func TestCreateMessage(t *testing.T) {
	env := newTestEnv(t)
	sender, token := env.seedPerson(t, "johndoe1234", "John", "Doe")
	receiver, _ := env.seedPerson(t, "janedoe5678", "Jane", "Doe")

	status, envelope := env.doJSON(t, http.MethodPost, "/api/messages/", token, map[string]any{
		"receiverId": receiver.ID,
		"text":       "  hello there  ",
	})
	if status != http.StatusOK || envelope.Code != 0 {
		t.Fatalf("create status = %d code = %d, want 200/0", status, envelope.Code)
	}

	var message store.Message
	decodeData(t, envelope, &message)
	if message.ID == 0 {
		t.Fatal("created message has no ID")
	}
	if message.SenderID != sender.ID || message.ReceiverID != receiver.ID {
		t.Fatalf("message endpoints = %d->%d, want %d->%d",
			message.SenderID, message.ReceiverID, sender.ID, receiver.ID)
	}
	if message.Text != "hello there" {
		t.Errorf("text = %q, want trimmed %q", message.Text, "hello there")
	}
	if message.CreatedAt.IsZero() || message.UpdatedAt.IsZero() {
		t.Error("created message is missing timestamps")
	}
}

func TestCreateMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedPerson(t, "johndoe1234", "John", "Doe")
	receiver, _ := env.seedPerson(t, "janedoe5678", "Jane", "Doe")

	_, envelope := env.doJSON(t, http.MethodPost, "/api/messages/", token, map[string]any{
		"receiverId": receiver.ID,
		"text":       "   ",
	})
	if envelope.Code != errs.ErrMessageTextEmpty {
		t.Errorf("blank text code = %d, want %d", envelope.Code, errs.ErrMessageTextEmpty)
	}

	_, envelope = env.doJSON(t, http.MethodPost, "/api/messages/", token, map[string]any{
		"receiverId": receiver.ID,
		"text":       strings.Repeat("x", MaxMessageLength+1),
	})
	if envelope.Code != errs.ErrMessageTooLong {
		t.Errorf("oversized text code = %d, want %d", envelope.Code, errs.ErrMessageTooLong)
	}

	_, envelope = env.doJSON(t, http.MethodPost, "/api/messages/", token, map[string]any{
		"receiverId": int64(9999),
		"text":       "hello",
	})
	if envelope.Code != errs.ErrPersonNotFound {
		t.Errorf("missing receiver code = %d, want %d", envelope.Code, errs.ErrPersonNotFound)
	}
}

func TestConversationListsBothDirections(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.seedPerson(t, "alice0001", "Alice", "A")
	bob, bobToken := env.seedPerson(t, "bob0002", "Bob", "B")
	carol, carolToken := env.seedPerson(t, "carol0003", "Carol", "C")

	env.doJSON(t, http.MethodPost, "/api/messages/", aliceToken, map[string]any{
		"receiverId": bob.ID, "text": "hi bob",
	})
	env.doJSON(t, http.MethodPost, "/api/messages/", bobToken, map[string]any{
		"receiverId": alice.ID, "text": "hi alice",
	})
	env.doJSON(t, http.MethodPost, "/api/messages/", carolToken, map[string]any{
		"receiverId": alice.ID, "text": "hi from carol",
	})

	status, envelope := env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/messages/messenger/%d", bob.ID), aliceToken, nil)
	if status != http.StatusOK {
		t.Fatalf("conversation status = %d, want 200", status)
	}

	var conversation []store.Message
	decodeData(t, envelope, &conversation)
	if len(conversation) != 2 {
		t.Fatalf("got %d messages, want 2", len(conversation))
	}
	if conversation[0].Text != "hi bob" || conversation[1].Text != "hi alice" {
		t.Fatalf("conversation order = %q then %q, want oldest first", conversation[0].Text, conversation[1].Text)
	}
	for _, m := range conversation {
		if m.SenderID == carol.ID || m.ReceiverID == carol.ID {
			t.Fatalf("conversation leaked message %d involving carol", m.ID)
		}
	}
}

func TestChatsListsCounterparts(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.seedPerson(t, "alice0001", "Alice", "A")
	bob, _ := env.seedPerson(t, "bob0002", "Bob", "B")
	carol, carolToken := env.seedPerson(t, "carol0003", "Carol", "C")

	env.doJSON(t, http.MethodPost, "/api/messages/", aliceToken, map[string]any{
		"receiverId": bob.ID, "text": "hi bob",
	})
	env.doJSON(t, http.MethodPost, "/api/messages/", carolToken, map[string]any{
		"receiverId": alice.ID, "text": "hi alice",
	})

	status, envelope := env.doJSON(t, http.MethodGet, "/api/messages/chats", aliceToken, nil)
	if status != http.StatusOK {
		t.Fatalf("chats status = %d, want 200", status)
	}

	var chats []store.ChatPerson
	decodeData(t, envelope, &chats)
	if len(chats) != 2 {
		t.Fatalf("got %d chats, want 2", len(chats))
	}

	ids := map[int64]bool{}
	for _, c := range chats {
		ids[c.ID] = true
	}
	if !ids[bob.ID] || !ids[carol.ID] {
		t.Fatalf("chat ids = %v, want bob and carol", ids)
	}
}

func TestEditMessageOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.seedPerson(t, "alice0001", "Alice", "A")
	bob, bobToken := env.seedPerson(t, "bob0002", "Bob", "B")

	_, envelope := env.doJSON(t, http.MethodPost, "/api/messages/", aliceToken, map[string]any{
		"receiverId": bob.ID, "text": "original",
	})
	var message store.Message
	decodeData(t, envelope, &message)

	status, envelope := env.doJSON(t, http.MethodPost, "/api/messages/edit", aliceToken, map[string]any{
		"editMessageId": message.ID,
		"text":          "edited",
	})
	if status != http.StatusOK {
		t.Fatalf("edit status = %d, want 200", status)
	}
	var edited store.Message
	decodeData(t, envelope, &edited)
	if edited.Text != "edited" {
		t.Fatalf("edited text = %q, want %q", edited.Text, "edited")
	}
	if !edited.UpdatedAt.After(message.UpdatedAt) {
		t.Error("edit did not advance UpdatedAt")
	}

	// The receiver cannot edit a message they did not send.
	_, envelope = env.doJSON(t, http.MethodPost, "/api/messages/edit", bobToken, map[string]any{
		"editMessageId": message.ID,
		"text":          "hijacked",
	})
	if envelope.Code != errs.ErrNotMessageOwner {
		t.Fatalf("foreign edit code = %d, want %d", envelope.Code, errs.ErrNotMessageOwner)
	}

	_, envelope = env.doJSON(t, http.MethodPost, "/api/messages/edit", aliceToken, map[string]any{
		"editMessageId": int64(9999),
		"text":          "whatever",
	})
	if envelope.Code != errs.ErrMessageNotFound {
		t.Fatalf("missing message code = %d, want %d", envelope.Code, errs.ErrMessageNotFound)
	}
}

func TestDeleteMessageOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.seedPerson(t, "alice0001", "Alice", "A")
	bob, bobToken := env.seedPerson(t, "bob0002", "Bob", "B")

	_, envelope := env.doJSON(t, http.MethodPost, "/api/messages/", aliceToken, map[string]any{
		"receiverId": bob.ID, "text": "to be deleted",
	})
	var message store.Message
	decodeData(t, envelope, &message)

	_, envelope = env.doJSON(t, http.MethodDelete, "/api/messages/delete", bobToken, map[string]any{
		"id": message.ID,
	})
	if envelope.Code != errs.ErrNotMessageOwner {
		t.Fatalf("foreign delete code = %d, want %d", envelope.Code, errs.ErrNotMessageOwner)
	}

	status, _ := env.doJSON(t, http.MethodDelete, "/api/messages/delete", aliceToken, map[string]any{
		"id": message.ID,
	})
	if status != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", status)
	}

	_, envelope = env.doJSON(t, http.MethodDelete, "/api/messages/delete", aliceToken, map[string]any{
		"id": message.ID,
	})
	if envelope.Code != errs.ErrMessageNotFound {
		t.Fatalf("second delete code = %d, want %d", envelope.Code, errs.ErrMessageNotFound)
	}
}
