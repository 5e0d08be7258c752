/*
Package postgres implements the store interfaces on top of a pgx connection pool.

All queries are plain parameterized SQL; schema management lives in the db
package's embedded goose migrations.
*/
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mingle/internal/app/store"
)

// Store implements store.PersonStore and store.MessageStore against PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store backed by the given connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const personColumns = `id, username, first_name, last_name, password_hash, description, hobby, image, created_at`

func scanPerson(row pgx.Row) (store.Person, error) {
	var p store.Person
	err := row.Scan(
		&p.ID, &p.Username, &p.FirstName, &p.LastName,
		&p.PasswordHash, &p.Description, &p.Hobby, &p.Image, &p.CreatedAt,
	)
	return p, err
}

// CreatePerson inserts a new account row and returns the stored person.
func (s *Store) CreatePerson(ctx context.Context, params store.CreatePersonParams) (store.Person, error) {
	hobby := params.Hobby
	if hobby == nil {
		hobby = []string{}
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO persons (username, first_name, last_name, password_hash, description, hobby, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+personColumns,
		params.Username, params.FirstName, params.LastName,
		params.PasswordHash, params.Description, hobby, params.Image,
	)

	return scanPerson(row)
}

// GetPersonByID fetches a person by primary key.
func (s *Store) GetPersonByID(ctx context.Context, id int64) (store.Person, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+personColumns+` FROM persons WHERE id = $1`, id)
	return scanPerson(row)
}

// GetPersonByUsername fetches a person by unique username.
func (s *Store) GetPersonByUsername(ctx context.Context, username string) (store.Person, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+personColumns+` FROM persons WHERE username = $1`, username)
	return scanPerson(row)
}

// ListPersons returns a page of persons, newest account first.
func (s *Store) ListPersons(ctx context.Context, take, skip int32) ([]store.Person, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+personColumns+` FROM persons ORDER BY id DESC LIMIT $1 OFFSET $2`,
		take, skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	return collectPersons(rows)
}

// SearchPersons returns persons whose username or name contains the query,
// case-insensitively.
func (s *Store) SearchPersons(ctx context.Context, query string) ([]store.Person, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+personColumns+` FROM persons
		WHERE username ILIKE '%' || $1 || '%'
		   OR first_name ILIKE '%' || $1 || '%'
		   OR last_name ILIKE '%' || $1 || '%'
		ORDER BY id`,
		query,
	)
	if err != nil {
		return nil, fmt.Errorf("search persons: %w", err)
	}
	defer rows.Close()

	return collectPersons(rows)
}

// UpdatePerson applies the non-nil fields of params to the person's profile.
func (s *Store) UpdatePerson(ctx context.Context, id int64, params store.UpdatePersonParams) (store.Person, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE persons SET
			first_name  = COALESCE($2, first_name),
			last_name   = COALESCE($3, last_name),
			description = COALESCE($4, description),
			hobby       = COALESCE($5, hobby),
			image       = COALESCE($6, image)
		WHERE id = $1
		RETURNING `+personColumns,
		id, params.FirstName, params.LastName, params.Description, params.Hobby, params.Image,
	)

	return scanPerson(row)
}

// DeletePerson removes an account. Follows and messages cascade at the schema level.
func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM persons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Follow records a follow relationship. A duplicate pair surfaces as a unique
// constraint violation for the caller to map.
func (s *Store) Follow(ctx context.Context, followerID, followedID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO follows (follower_id, followed_id) VALUES ($1, $2)`,
		followerID, followedID,
	)
	return err
}

// Unfollow removes a follow relationship.
func (s *Store) Unfollow(ctx context.Context, followerID, followedID int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followed_id = $2`,
		followerID, followedID,
	)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListFollowing returns the persons the given follower follows.
func (s *Store) ListFollowing(ctx context.Context, followerID int64) ([]store.Person, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.username, p.first_name, p.last_name, p.password_hash,
		       p.description, p.hobby, p.image, p.created_at
		FROM follows f
		JOIN persons p ON p.id = f.followed_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at`,
		followerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	defer rows.Close()

	return collectPersons(rows)
}

func collectPersons(rows pgx.Rows) ([]store.Person, error) {
	persons := []store.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

const messageColumns = `id, sender_id, receiver_id, text, created_at, updated_at`

func scanMessage(row pgx.Row) (store.Message, error) {
	var m store.Message
	err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Text, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// CreateMessage inserts a new message and returns it with server-assigned
// ID and timestamps.
func (s *Store) CreateMessage(ctx context.Context, senderID, receiverID int64, text string) (store.Message, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO messages (sender_id, receiver_id, text)
		VALUES ($1, $2, $3)
		RETURNING `+messageColumns,
		senderID, receiverID, text,
	)

	return scanMessage(row)
}

// GetMessage fetches a message by primary key.
func (s *Store) GetMessage(ctx context.Context, id int64) (store.Message, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
	return scanMessage(row)
}

// ListConversation returns all messages exchanged between the two persons,
// in either direction, ordered by creation time ascending.
func (s *Store) ListConversation(ctx context.Context, userID, counterpartID int64) ([]store.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at, id`,
		userID, counterpartID,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	defer rows.Close()

	messages := []store.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ListChatPersons returns the distinct counterparts the person has exchanged
// messages with, most recent conversation first.
func (s *Store) ListChatPersons(ctx context.Context, userID int64) ([]store.ChatPerson, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.username, p.first_name, p.last_name, p.description, p.hobby, p.image
		FROM (
			SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS counterpart_id,
			       MAX(created_at) AS last_at
			FROM messages
			WHERE sender_id = $1 OR receiver_id = $1
			GROUP BY counterpart_id
		) c
		JOIN persons p ON p.id = c.counterpart_id
		ORDER BY c.last_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chat persons: %w", err)
	}
	defer rows.Close()

	chats := []store.ChatPerson{}
	for rows.Next() {
		var cp store.ChatPerson
		if err := rows.Scan(&cp.ID, &cp.Username, &cp.FirstName, &cp.LastName,
			&cp.Description, &cp.Hobby, &cp.Image); err != nil {
			return nil, err
		}
		chats = append(chats, cp)
	}
	return chats, rows.Err()
}

// UpdateMessageText replaces a message's text and bumps updated_at.
func (s *Store) UpdateMessageText(ctx context.Context, id int64, text string) (store.Message, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE messages SET text = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+messageColumns,
		id, text,
	)

	return scanMessage(row)
}

// DeleteMessage removes a message by ID.
func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
