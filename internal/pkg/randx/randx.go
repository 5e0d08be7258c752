/*
Package randx provides functions for generating cryptographically secure random identifiers.

It is primarily used to generate the numeric suffix of auto-assigned usernames
and unique object keys for avatar uploads.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// UsernameSuffixMin is the smallest numeric suffix appended to generated usernames.
	UsernameSuffixMin = 1000

	// UsernameSuffixRange is the span of the numeric suffix (1000-9999).
	UsernameSuffixRange = 9000
)

// UsernameCandidate builds a username candidate from a person's first and last
// name plus a random four-digit suffix, e.g. "johndoe4821". The caller is
// responsible for checking uniqueness and retrying on collision.
func UsernameCandidate(firstName, lastName string) (string, error) {
	num, err := rand.Int(rand.Reader, big.NewInt(UsernameSuffixRange))
	if err != nil {
		return "", fmt.Errorf("failed to generate random username suffix: %w", err)
	}

	suffix := UsernameSuffixMin + num.Int64()

	base := strings.ToLower(strings.TrimSpace(firstName)) + strings.ToLower(strings.TrimSpace(lastName))
	base = strings.ReplaceAll(base, " ", "")

	return fmt.Sprintf("%s%d", base, suffix), nil
}

// AvatarKey generates a unique S3 object key for an avatar upload, scoped under
// the owning person's ID so stale avatars are easy to garbage-collect.
func AvatarKey(personID int64, fileExt string) string {
	return fmt.Sprintf("avatars/%d/%s%s", personID, uuid.New().String(), fileExt)
}
