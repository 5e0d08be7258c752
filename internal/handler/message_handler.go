/*
Package handler provides HTTP handler functions for direct messages.

Message mutations persist through the store only; real-time delivery happens
over the WebSocket relay, driven by the client after the REST call succeeds.
*/
package handler

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"mingle/internal/app/db"
	"mingle/internal/app/store"
	"mingle/internal/pkg/auth/jwt"
	"mingle/internal/pkg/errs"
	"mingle/internal/pkg/logx"
	"mingle/internal/pkg/req"
	"mingle/internal/pkg/resp"
)

// MaxMessageLength is the maximum message text length in runes.
const MaxMessageLength = 4096

// HandleConversation returns the full message history between the caller and
// the person identified by the receiverId path parameter, oldest first.
func HandleConversation(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		receiverStr := chi.URLParam(r, "receiverId")
		receiverID, err := strconv.ParseInt(receiverStr, 10, 64)
		if err != nil || receiverID <= 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		messages, err := deps.Messages.ListConversation(r.Context(), identity.ID, receiverID)
		if err != nil {
			logx.Error(err, "failed to list conversation", "person_id", identity.ID, "counterpart_id", receiverID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, messages)
	}
}

// HandleChats returns the distinct conversation counterparts of the caller,
// ordered by most recent message.
func HandleChats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		chats, err := deps.Messages.ListChatPersons(r.Context(), identity.ID)
		if err != nil {
			logx.Error(err, "failed to list chats", "person_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, chats)
	}
}

type CreateMessageInput struct {
	ReceiverID int64  `json:"receiverId"`
	Text       string `json:"text"`
}

// HandleCreateMessage persists a new direct message and returns it with its
// server-assigned ID and timestamps.
func HandleCreateMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input CreateMessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.ReceiverID <= 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		text, customErr := validateMessageText(input.Text)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if _, err := deps.Persons.GetPersonByID(r.Context(), input.ReceiverID); err != nil {
			if db.IsNotFound(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrPersonNotFound))
				return
			}

			logx.Error(err, "failed to fetch message receiver", "receiver_id", input.ReceiverID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		message, err := deps.Messages.CreateMessage(r.Context(), identity.ID, input.ReceiverID, text)
		if err != nil {
			logx.Error(err, "failed to create message", "sender_id", identity.ID, "receiver_id", input.ReceiverID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, message)
	}
}

type EditMessageInput struct {
	EditMessageID int64  `json:"editMessageId"`
	Text          string `json:"text"`
}

// HandleEditMessage replaces the text of a message the caller sent. Only the
// sender may edit; edits bump UpdatedAt, which clients use as the merge key.
func HandleEditMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input EditMessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		text, customErr := validateMessageText(input.Text)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		message, customErr := fetchOwnedMessage(r, deps, input.EditMessageID, identity.ID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		updated, err := deps.Messages.UpdateMessageText(r.Context(), message.ID, text)
		if err != nil {
			if db.IsNotFound(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrMessageNotFound))
				return
			}

			logx.Error(err, "failed to update message", "message_id", message.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, updated)
	}
}

type DeleteMessageInput struct {
	ID int64 `json:"id"`
}

// HandleDeleteMessage removes a message the caller sent.
func HandleDeleteMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input DeleteMessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		message, customErr := fetchOwnedMessage(r, deps, input.ID, identity.ID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Messages.DeleteMessage(r.Context(), message.ID); err != nil {
			if db.IsNotFound(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrMessageNotFound))
				return
			}

			logx.Error(err, "failed to delete message", "message_id", message.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"id": message.ID,
		})
	}
}

func validateMessageText(text string) (string, *errs.CustomError) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", errs.NewError(errs.ErrMessageTextEmpty)
	}

	if utf8.RuneCountInString(trimmed) > MaxMessageLength {
		return "", errs.NewError(errs.ErrMessageTooLong)
	}

	return trimmed, nil
}

func fetchOwnedMessage(r *http.Request, deps *AppDeps, messageID, personID int64) (store.Message, *errs.CustomError) {
	if messageID <= 0 {
		return store.Message{}, errs.NewError(errs.ErrInvalidParams)
	}

	message, err := deps.Messages.GetMessage(r.Context(), messageID)
	if err != nil {
		if db.IsNotFound(err) {
			return store.Message{}, errs.NewError(errs.ErrMessageNotFound)
		}

		logx.Error(err, "failed to fetch message", "message_id", messageID)
		return store.Message{}, errs.NewError(errs.ErrUnknown)
	}

	if message.SenderID != personID {
		logx.Warn("ownership check failed on message mutation", "message_id", messageID, "person_id", personID)
		return store.Message{}, errs.NewError(errs.ErrNotMessageOwner)
	}

	return message, nil
}
