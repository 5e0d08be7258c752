/*
Package handler provides HTTP handler functions for avatar upload and download
via pre-signed S3 URLs.

Avatar bytes never pass through this server. The client asks for an upload URL,
PUTs the image to S3 directly, then PATCHes its profile image field with the
returned key.
*/
package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"mingle/internal/app/storage"
	"mingle/internal/pkg/auth/jwt"
	"mingle/internal/pkg/errs"
	"mingle/internal/pkg/logx"
	"mingle/internal/pkg/randx"
	"mingle/internal/pkg/req"
	"mingle/internal/pkg/resp"
)

// PresignAvatarInput defines the JSON input structure for generating an upload URL.
type PresignAvatarInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignAvatarUpload generates a time-limited, pre-signed URL for
// uploading an avatar image, scoped under the caller's own key prefix.
func HandlePresignAvatarUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input PresignAvatarInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidateAvatarSize(input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidateAvatarType(input.FileName, input.MimeType); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		fileExt := strings.ToLower(filepath.Ext(input.FileName))
		fileKey := randx.AvatarKey(identity.ID, fileExt)

		url, err := deps.StorageService.PresignUpload(
			r.Context(),
			fileKey,
			input.MimeType,
			input.FileSize,
			storage.PresignedURLDuration,
		)
		if err != nil {
			logx.Error(err, "failed to presign avatar upload", "person_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		data := map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"fileName":     input.FileName,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandlePresignAvatarDownload generates a time-limited, pre-signed URL for
// downloading an avatar image and redirects the caller to it. Any
// authenticated person may fetch any avatar; they are public within the app.
func HandlePresignAvatarDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		fileKey := r.URL.Query().Get("k")
		if fileKey == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if !strings.HasPrefix(fileKey, "avatars/") || strings.Contains(fileKey, "..") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		url, err := deps.StorageService.PresignDownload(
			r.Context(),
			fileKey,
			storage.PresignedURLDuration,
		)
		if err != nil {
			logx.Error(err, fmt.Sprintf("failed to presign avatar download for key %s", fileKey))
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}

// removeAvatarObject deletes a replaced or orphaned avatar object. The shared
// default avatar and keys outside the avatar prefix are left alone. Failures
// are logged only; the profile change has already been committed.
func removeAvatarObject(r *http.Request, deps *AppDeps, fileKey string) {
	if fileKey == "" || fileKey == storage.DefaultAvatarKey || !strings.HasPrefix(fileKey, "avatars/") {
		return
	}

	if err := deps.StorageService.Delete(r.Context(), fileKey); err != nil {
		logx.Warn("failed to delete avatar object", "file_key", fileKey, "error", err)
	}
}
