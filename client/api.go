/*
Package client provides the Go client for the Mingle server: a REST API
wrapper, a websocket wrapper for the real-time relay, and a Session
controller that keeps a local view of one conversation consistent with
both.
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mingle/internal/app/store"
)

// APIError is a non-zero business code returned in the server's response envelope.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// envelope mirrors the server's standard JSON response structure.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// API is a REST client for the Mingle server.
type API struct {
	baseURL     string
	httpClient  *http.Client
	accessToken string
}

// NewAPI constructs an API client for the given base URL, e.g. "http://localhost:8080".
func NewAPI(baseURL string) *API {
	return &API{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// BaseURL returns the server base URL this client talks to.
func (a *API) BaseURL() string {
	return a.baseURL
}

// SetToken installs the bearer token attached to subsequent requests.
func (a *API) SetToken(token string) {
	a.accessToken = token
}

// Token returns the currently installed bearer token.
func (a *API) Token() string {
	return a.accessToken
}

// Credentials is the token pair plus profile returned by register and login.
type Credentials struct {
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
	Person       store.PublicPerson `json:"person"`
}

// Register creates a new account and installs the returned access token.
func (a *API) Register(ctx context.Context, firstName, lastName, password string) (Credentials, error) {
	var creds Credentials
	err := a.do(ctx, http.MethodPost, "/api/auth/register", map[string]any{
		"firstName": firstName,
		"lastName":  lastName,
		"password":  password,
	}, &creds)
	if err != nil {
		return Credentials{}, err
	}

	a.accessToken = creds.AccessToken
	return creds, nil
}

// Login signs in with username and password and installs the returned access token.
func (a *API) Login(ctx context.Context, username, password string) (Credentials, error) {
	var creds Credentials
	err := a.do(ctx, http.MethodPost, "/api/auth/login", map[string]any{
		"username": username,
		"password": password,
	}, &creds)
	if err != nil {
		return Credentials{}, err
	}

	a.accessToken = creds.AccessToken
	return creds, nil
}

// Me fetches the authenticated person's own profile.
func (a *API) Me(ctx context.Context) (store.PublicPerson, error) {
	var me store.PublicPerson
	err := a.do(ctx, http.MethodGet, "/api/persons/me", nil, &me)
	return me, err
}

// FindPerson fetches the public profile of the person with the given ID.
func (a *API) FindPerson(ctx context.Context, id int64) (store.PublicPerson, error) {
	var person store.PublicPerson
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("/api/persons/%d/find", id), nil, &person)
	return person, err
}

// SearchPersons searches persons by name or username substring.
func (a *API) SearchPersons(ctx context.Context, query string) ([]store.PublicPerson, error) {
	var persons []store.PublicPerson
	err := a.do(ctx, http.MethodGet, "/api/persons/search?person="+query, nil, &persons)
	return persons, err
}

// Chats returns the caller's conversation counterparts, most recent first.
func (a *API) Chats(ctx context.Context) ([]store.ChatPerson, error) {
	var chats []store.ChatPerson
	err := a.do(ctx, http.MethodGet, "/api/messages/chats", nil, &chats)
	return chats, err
}

// Messenger returns the full message history with the given counterpart, oldest first.
func (a *API) Messenger(ctx context.Context, counterpartID int64) ([]store.Message, error) {
	var messages []store.Message
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("/api/messages/messenger/%d", counterpartID), nil, &messages)
	return messages, err
}

// CreateMessage persists a new message and returns it with server-assigned
// ID and timestamps.
func (a *API) CreateMessage(ctx context.Context, receiverID int64, text string) (store.Message, error) {
	var message store.Message
	err := a.do(ctx, http.MethodPost, "/api/messages/", map[string]any{
		"receiverId": receiverID,
		"text":       text,
	}, &message)
	return message, err
}

// EditMessage replaces the text of a message the caller sent.
func (a *API) EditMessage(ctx context.Context, messageID int64, text string) (store.Message, error) {
	var message store.Message
	err := a.do(ctx, http.MethodPost, "/api/messages/edit", map[string]any{
		"editMessageId": messageID,
		"text":          text,
	}, &message)
	return message, err
}

// DeleteMessage removes a message the caller sent.
func (a *API) DeleteMessage(ctx context.Context, messageID int64) error {
	return a.do(ctx, http.MethodDelete, "/api/messages/delete", map[string]any{
		"id": messageID,
	}, nil)
}

// do issues one JSON request and decodes the response envelope. A non-zero
// business code becomes an *APIError.
func (a *API) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.accessToken)
	}

	res, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response envelope: %w", err)
	}

	if env.Code != 0 {
		return &APIError{Code: env.Code, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}

	return nil
}
