/*
Package storage handles avatar object storage.

This file seeds the bucket with the bundled default avatar, the image every
fresh account points at until the person uploads their own.
*/
package storage

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
)

// DefaultAvatarKey is the object key of the shared default avatar. It is
// never deleted when a person replaces or removes their own avatar.
const DefaultAvatarKey = "avatars/default.svg"

// defaultAvatarMIME is the content type of the bundled default avatar.
const defaultAvatarMIME = "image/svg+xml"

//go:embed assets/default_avatar.svg
var defaultAvatar []byte

// SeedDefaults uploads the bundled default avatar to the bucket. Uploading
// the same key again is an idempotent overwrite, so this runs on every start.
func SeedDefaults(ctx context.Context, svc StorageService) error {
	if err := svc.Upload(ctx, DefaultAvatarKey, defaultAvatarMIME, bytes.NewReader(defaultAvatar)); err != nil {
		return fmt.Errorf("seed default avatar: %w", err)
	}
	return nil
}
