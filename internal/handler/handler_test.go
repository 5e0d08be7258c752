package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"mingle/internal/app/chat"
	"mingle/internal/app/store"
	"mingle/internal/configs"
	"mingle/internal/pkg/auth/jwt"
	"mingle/internal/pkg/pow"
	"mingle/internal/pkg/resp"
)

const testSecret = "test-secret"

// fakePersonStore is an in-memory PersonStore used to exercise handlers
// without a database.
type fakePersonStore struct {
	mu      sync.Mutex
	nextID  int64
	persons map[int64]store.Person
	follows map[[2]int64]struct{}

	// createErr, when set, is returned by every CreatePerson call.
	createErr error
}

func newFakePersonStore() *fakePersonStore {
	return &fakePersonStore{
		nextID:  1,
		persons: make(map[int64]store.Person),
		follows: make(map[[2]int64]struct{}),
	}
}

func (f *fakePersonStore) CreatePerson(_ context.Context, params store.CreatePersonParams) (store.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return store.Person{}, f.createErr
	}

	for _, p := range f.persons {
		if p.Username == params.Username {
			// Same shape postgres raises for the username unique index.
			return store.Person{}, &pgconn.PgError{Code: "23505", ConstraintName: "persons_username_key"}
		}
	}

	p := store.Person{
		ID:           f.nextID,
		Username:     params.Username,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		PasswordHash: params.PasswordHash,
		Description:  params.Description,
		Hobby:        params.Hobby,
		Image:        params.Image,
		CreatedAt:    time.Now(),
	}
	f.nextID++
	f.persons[p.ID] = p
	return p, nil
}

func (f *fakePersonStore) GetPersonByID(_ context.Context, id int64) (store.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.persons[id]
	if !ok {
		return store.Person{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakePersonStore) GetPersonByUsername(_ context.Context, username string) (store.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.persons {
		if p.Username == username {
			return p, nil
		}
	}
	return store.Person{}, pgx.ErrNoRows
}

func (f *fakePersonStore) ListPersons(_ context.Context, take, skip int32) ([]store.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := make([]store.Person, 0, len(f.persons))
	for _, p := range f.persons {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	if int(skip) >= len(all) {
		return []store.Person{}, nil
	}
	all = all[skip:]
	if int(take) < len(all) {
		all = all[:take]
	}
	return all, nil
}

func (f *fakePersonStore) SearchPersons(_ context.Context, query string) ([]store.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := strings.ToLower(query)
	var matched []store.Person
	for _, p := range f.persons {
		haystack := strings.ToLower(p.Username + " " + p.FirstName + " " + p.LastName)
		if strings.Contains(haystack, q) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (f *fakePersonStore) UpdatePerson(_ context.Context, id int64, params store.UpdatePersonParams) (store.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.persons[id]
	if !ok {
		return store.Person{}, pgx.ErrNoRows
	}

	if params.FirstName != nil {
		p.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		p.LastName = *params.LastName
	}
	if params.Description != nil {
		p.Description = *params.Description
	}
	if params.Hobby != nil {
		p.Hobby = params.Hobby
	}
	if params.Image != nil {
		p.Image = *params.Image
	}

	f.persons[id] = p
	return p, nil
}

func (f *fakePersonStore) DeletePerson(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.persons[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.persons, id)
	return nil
}

func (f *fakePersonStore) Follow(_ context.Context, followerID, followedID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := [2]int64{followerID, followedID}
	if _, ok := f.follows[key]; ok {
		// Same shape postgres raises for the follows primary key.
		return &pgconn.PgError{Code: "23505", ConstraintName: "follows_pkey"}
	}
	f.follows[key] = struct{}{}
	return nil
}

func (f *fakePersonStore) Unfollow(_ context.Context, followerID, followedID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := [2]int64{followerID, followedID}
	if _, ok := f.follows[key]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.follows, key)
	return nil
}

func (f *fakePersonStore) ListFollowing(_ context.Context, followerID int64) ([]store.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var followed []store.Person
	for key := range f.follows {
		if key[0] != followerID {
			continue
		}
		if p, ok := f.persons[key[1]]; ok {
			followed = append(followed, p)
		}
	}
	sort.Slice(followed, func(i, j int) bool { return followed[i].ID < followed[j].ID })
	return followed, nil
}

// fakeMessageStore is an in-memory MessageStore.
type fakeMessageStore struct {
	mu       sync.Mutex
	nextID   int64
	messages map[int64]store.Message
	persons  *fakePersonStore
}

func newFakeMessageStore(persons *fakePersonStore) *fakeMessageStore {
	return &fakeMessageStore{
		nextID:   1,
		messages: make(map[int64]store.Message),
		persons:  persons,
	}
}

func (f *fakeMessageStore) CreateMessage(_ context.Context, senderID, receiverID int64, text string) (store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	m := store.Message{
		ID:         f.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.nextID++
	f.messages[m.ID] = m
	return m, nil
}

func (f *fakeMessageStore) GetMessage(_ context.Context, id int64) (store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.messages[id]
	if !ok {
		return store.Message{}, pgx.ErrNoRows
	}
	return m, nil
}

func (f *fakeMessageStore) ListConversation(_ context.Context, userID, counterpartID int64) ([]store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var conversation []store.Message
	for _, m := range f.messages {
		if (m.SenderID == userID && m.ReceiverID == counterpartID) ||
			(m.SenderID == counterpartID && m.ReceiverID == userID) {
			conversation = append(conversation, m)
		}
	}
	sort.Slice(conversation, func(i, j int) bool { return conversation[i].ID < conversation[j].ID })
	return conversation, nil
}

func (f *fakeMessageStore) ListChatPersons(_ context.Context, userID int64) ([]store.ChatPerson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[int64]struct{})
	var chats []store.ChatPerson
	for _, m := range f.messages {
		var counterpartID int64
		switch userID {
		case m.SenderID:
			counterpartID = m.ReceiverID
		case m.ReceiverID:
			counterpartID = m.SenderID
		default:
			continue
		}

		if _, ok := seen[counterpartID]; ok {
			continue
		}
		seen[counterpartID] = struct{}{}

		if p, ok := f.persons.persons[counterpartID]; ok {
			chats = append(chats, store.ChatPerson{
				ID:        p.ID,
				Username:  p.Username,
				FirstName: p.FirstName,
				LastName:  p.LastName,
			})
		}
	}
	return chats, nil
}

func (f *fakeMessageStore) UpdateMessageText(_ context.Context, id int64, text string) (store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.messages[id]
	if !ok {
		return store.Message{}, pgx.ErrNoRows
	}
	m.Text = text
	m.UpdatedAt = time.Now()
	f.messages[id] = m
	return m, nil
}

func (f *fakeMessageStore) DeleteMessage(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.messages[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.messages, id)
	return nil
}

// fakeStorage returns deterministic URLs without touching S3 and records
// destructive calls for assertions.
type fakeStorage struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeStorage) PresignUpload(_ context.Context, key, _ string, _ int64, _ time.Duration) (string, error) {
	return "https://storage.test/upload/" + key, nil
}

func (f *fakeStorage) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.test/download/" + key, nil
}

func (f *fakeStorage) Upload(_ context.Context, _, _ string, _ io.Reader) error { return nil }

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// testEnv bundles a running server with direct access to the fakes.
type testEnv struct {
	server   *httptest.Server
	deps     *AppDeps
	persons  *fakePersonStore
	messages *fakeMessageStore
	storage  *fakeStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	persons := newFakePersonStore()
	messages := newFakeMessageStore(persons)
	storageFake := &fakeStorage{}

	deps := &AppDeps{
		Registry:       chat.NewRegistry(),
		Config:         testConfig(),
		StorageService: storageFake,
		Persons:        persons,
		Messages:       messages,
		Pow:            pow.NewManager(0),
	}

	server := httptest.NewServer(Router(deps))
	t.Cleanup(server.Close)

	return &testEnv{server: server, deps: deps, persons: persons, messages: messages, storage: storageFake}
}

func testConfig() *configs.AppConfig {
	return &configs.AppConfig{
		Environment:    "development",
		Port:           8080,
		AllowedOrigins: []string{},
		JWTSecret:      testSecret,
	}
}

// seedPerson inserts a person directly into the fake store and returns it
// together with a valid access token.
func (env *testEnv) seedPerson(t *testing.T, username, firstName, lastName string) (store.Person, string) {
	t.Helper()

	person, err := env.persons.CreatePerson(context.Background(), store.CreatePersonParams{
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: "$2a$10$irrelevant",
		Hobby:        []string{},
	})
	if err != nil {
		t.Fatalf("seed person %q: %v", username, err)
	}

	token, err := jwt.GenerateToken(&jwt.Payload{ID: person.ID, Username: person.Username}, testSecret, jwt.AccessExpiration)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	return person, token
}

// doJSON issues a JSON request against the test server and decodes the
// standard response envelope.
func (env *testEnv) doJSON(t *testing.T, method, path, token string, body any) (int, resp.JSONResponse) {
	t.Helper()
	return env.request(t, method, path, token, "", "", body)
}

// doJSONWithHeader is doJSON with one extra request header pair.
func (env *testEnv) doJSONWithHeader(t *testing.T, method, path, headerKey, headerValue string, body any) (int, resp.JSONResponse) {
	t.Helper()
	return env.request(t, method, path, "", headerKey, headerValue, body)
}

func (env *testEnv) request(t *testing.T, method, path, token, headerKey, headerValue string, body any) (int, resp.JSONResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, env.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if headerKey != "" {
		req.Header.Set(headerKey, headerValue)
	}

	res, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	var envelope resp.JSONResponse
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response envelope: %v", err)
	}

	return res.StatusCode, envelope
}

// decodeData re-marshals the envelope's data field into dst.
func decodeData(t *testing.T, envelope resp.JSONResponse, dst any) {
	t.Helper()

	raw, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("re-encode envelope data: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("decode envelope data: %v", err)
	}
}
