/*
Package pow implements a Proof-of-Work (PoW) challenge used to slow down
automated account registration.

The server issues a nonce; the client finds a counter such that
SHA256(nonce + counter) has the required number of leading zero hex digits,
and exchanges the proof for a short-lived signup token.
*/
package pow

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// TokenHeaderKey is the HTTP header key used by the client to send the signup token.
	TokenHeaderKey = "X-PoW-Token"

	// TokenDuration is the validity period for the signup token issued after successful validation.
	TokenDuration = 30 * time.Second

	// NonceDuration is the validity period for the challenge nonce.
	NonceDuration = 5 * time.Minute
)

var (
	// ErrNonceInvalid is returned when the nonce is unknown or expired.
	ErrNonceInvalid = errors.New("pow: nonce invalid or expired")

	// ErrProofInvalid is returned when the submitted counter does not meet the difficulty.
	ErrProofInvalid = errors.New("pow: proof does not meet difficulty")
)

// Manager is responsible for managing the lifecycle of PoW challenges and signup tokens.
// It is concurrent-safe, using internal maps to store active nonces and tokens.
type Manager struct {
	// difficulty is the required number of leading zero hex digits of the proof hash.
	difficulty int

	// nonces stores active challenge nonces and their expiration times.
	nonces map[string]time.Time

	// tokens stores issued signup tokens and their expiration times.
	tokens map[string]time.Time

	// mu protects concurrent access to nonces and tokens.
	mu sync.RWMutex
}

// NewManager creates and initializes a new Manager with the given challenge difficulty.
// A difficulty of zero disables the challenge entirely; Enabled reports this.
func NewManager(difficulty int) *Manager {
	m := &Manager{
		difficulty: difficulty,
		nonces:     make(map[string]time.Time),
		tokens:     make(map[string]time.Time),
	}

	go m.cleanupExpired()

	return m
}

// Enabled reports whether the PoW challenge is active.
func (m *Manager) Enabled() bool {
	return m.difficulty > 0
}

// Difficulty returns the required number of leading zero hex digits.
func (m *Manager) Difficulty() int {
	return m.difficulty
}

// IssueNonce generates a unique challenge nonce and stores it for later validation.
func (m *Manager) IssueNonce() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce := uuid.New().String()
	m.nonces[nonce] = time.Now().Add(NonceDuration)
	return nonce
}

// ValidateProof validates the proof submitted by the client: the nonce must be
// known and unexpired, and SHA256(nonce + counter) must start with the required
// number of zero hex digits. On success the nonce is consumed and a short-lived
// signup token is issued.
func (m *Manager) ValidateProof(nonce, counter string) (string, error) {
	m.mu.RLock()
	expiry, ok := m.nonces[nonce]
	m.mu.RUnlock()

	if !ok || time.Now().After(expiry) {
		return "", ErrNonceInvalid
	}

	hash := sha256.Sum256([]byte(nonce + counter))
	if !strings.HasPrefix(hex.EncodeToString(hash[:]), strings.Repeat("0", m.difficulty)) {
		return "", ErrProofInvalid
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Nonce is single use.
	delete(m.nonces, nonce)

	token := uuid.New().String()
	m.tokens[token] = time.Now().Add(TokenDuration)
	return token, nil
}

// ConsumeToken checks and consumes a signup token. It returns true when the
// token was valid; tokens are single use.
func (m *Manager) ConsumeToken(token string) bool {
	if token == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.tokens[token]
	if !ok {
		return false
	}

	delete(m.tokens, token)

	return time.Now().Before(expiry)
}

// cleanupExpired periodically removes expired nonces and tokens.
func (m *Manager) cleanupExpired() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()

		m.mu.Lock()
		for nonce, expiry := range m.nonces {
			if now.After(expiry) {
				delete(m.nonces, nonce)
			}
		}
		for token, expiry := range m.tokens {
			if now.After(expiry) {
				delete(m.tokens, token)
			}
		}
		m.mu.Unlock()
	}
}
