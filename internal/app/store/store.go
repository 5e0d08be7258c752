/*
Package store defines the persistence interfaces and domain models for persons,
follow relationships, and direct messages.

Handlers depend on these interfaces rather than on a concrete database so that
tests can substitute in-memory fakes; the production implementation lives in
the postgres subpackage.
*/
package store

import (
	"context"
	"time"
)

// Person is the full persisted representation of an account, including the
// password hash. Never serialize this type to clients; use Public instead.
type Person struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	Description  string
	Hobby        []string
	Image        string
	CreatedAt    time.Time
}

// PublicPerson is the client-facing projection of a Person.
type PublicPerson struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Description string    `json:"description"`
	Hobby       []string  `json:"hobby"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Public converts a Person into its client-facing projection.
func (p Person) Public() PublicPerson {
	hobby := p.Hobby
	if hobby == nil {
		hobby = []string{}
	}

	return PublicPerson{
		ID:          p.ID,
		Username:    p.Username,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Description: p.Description,
		Hobby:       hobby,
		Image:       p.Image,
		CreatedAt:   p.CreatedAt,
	}
}

// Message is a direct message between two persons. The ID is server-assigned
// and unique; UpdatedAt changes on every edit and doubles as the merge key for
// client-side reconciliation of concurrent edits.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ChatPerson is a conversation counterpart summary for the chats list.
type ChatPerson struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Description string   `json:"description"`
	Hobby       []string `json:"hobby"`
	Image       string   `json:"image"`
}

// CreatePersonParams carries the fields required to create an account.
type CreatePersonParams struct {
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	Description  string
	Hobby        []string
	Image        string
}

// UpdatePersonParams carries the mutable profile fields. Pointer fields are
// applied only when non-nil, so a PATCH can touch a subset of the profile.
type UpdatePersonParams struct {
	FirstName   *string
	LastName    *string
	Description *string
	Hobby       []string
	Image       *string
}

// PersonStore is the persistence boundary for accounts and follow relationships.
type PersonStore interface {
	CreatePerson(ctx context.Context, params CreatePersonParams) (Person, error)
	GetPersonByID(ctx context.Context, id int64) (Person, error)
	GetPersonByUsername(ctx context.Context, username string) (Person, error)
	ListPersons(ctx context.Context, take, skip int32) ([]Person, error)
	SearchPersons(ctx context.Context, query string) ([]Person, error)
	UpdatePerson(ctx context.Context, id int64, params UpdatePersonParams) (Person, error)
	DeletePerson(ctx context.Context, id int64) error

	Follow(ctx context.Context, followerID, followedID int64) error
	Unfollow(ctx context.Context, followerID, followedID int64) error
	ListFollowing(ctx context.Context, followerID int64) ([]Person, error)
}

// MessageStore is the persistence boundary for direct messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, senderID, receiverID int64, text string) (Message, error)
	GetMessage(ctx context.Context, id int64) (Message, error)
	ListConversation(ctx context.Context, userID, counterpartID int64) ([]Message, error)
	ListChatPersons(ctx context.Context, userID int64) ([]ChatPerson, error)
	UpdateMessageText(ctx context.Context, id int64, text string) (Message, error)
	DeleteMessage(ctx context.Context, id int64) error
}
