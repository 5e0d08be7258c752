package storage

import (
	"context"
	"io"
	"testing"
	"time"
)

// recordingStorage captures Upload calls without touching S3.
type recordingStorage struct {
	uploadedKey  string
	uploadedMIME string
	uploadedSize int
}

func (r *recordingStorage) PresignUpload(_ context.Context, _, _ string, _ int64, _ time.Duration) (string, error) {
	return "", nil
}

func (r *recordingStorage) PresignDownload(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", nil
}

func (r *recordingStorage) Upload(_ context.Context, key, mimeType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	r.uploadedKey = key
	r.uploadedMIME = mimeType
	r.uploadedSize = len(data)
	return nil
}

func (r *recordingStorage) Delete(_ context.Context, _ string) error { return nil }

func TestSeedDefaultsUploadsDefaultAvatar(t *testing.T) {
	rec := &recordingStorage{}

	if err := SeedDefaults(t.Context(), rec); err != nil {
		t.Fatalf("seed defaults: %v", err)
	}

	if rec.uploadedKey != DefaultAvatarKey {
		t.Errorf("uploaded key = %q, want %q", rec.uploadedKey, DefaultAvatarKey)
	}
	if rec.uploadedMIME != "image/svg+xml" {
		t.Errorf("uploaded mime = %q, want image/svg+xml", rec.uploadedMIME)
	}
	if rec.uploadedSize == 0 {
		t.Error("uploaded body is empty")
	}
}
