/*
Package handler provides HTTP handler functions for person profiles and follow relationships.
*/
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mingle/internal/app/db"
	"mingle/internal/app/store"
	"mingle/internal/pkg/auth/jwt"
	"mingle/internal/pkg/errs"
	"mingle/internal/pkg/logx"
	"mingle/internal/pkg/req"
	"mingle/internal/pkg/resp"
)

const (
	// DefaultListTake is the page size used when the take query parameter is absent.
	DefaultListTake = 20

	// MaxListTake caps the page size a client may request.
	MaxListTake = 100

	// MinSearchLength is the minimum query length for person search.
	MinSearchLength = 3
)

// HandleListPersons returns a paginated list of all persons, newest first.
// Pagination uses take and skip query parameters.
func HandleListPersons(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jwt.GetPayloadFromContext(r) == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		take, skip, customErr := parsePagination(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		persons, err := deps.Persons.ListPersons(r.Context(), take, skip)
		if err != nil {
			logx.Error(err, "failed to list persons")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, publicList(persons))
	}
}

// HandleSearchPersons searches persons by name or username substring. Queries
// shorter than MinSearchLength are rejected rather than scanning the table.
func HandleSearchPersons(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jwt.GetPayloadFromContext(r) == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		query := r.URL.Query().Get("person")
		if len(query) < MinSearchLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrSearchTooShort, MinSearchLength))
			return
		}

		persons, err := deps.Persons.SearchPersons(r.Context(), query)
		if err != nil {
			logx.Error(err, "failed to search persons", "query", query)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, publicList(persons))
	}
}

// HandleGetMe returns the authenticated person's own profile.
func HandleGetMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		person, err := deps.Persons.GetPersonByID(r.Context(), identity.ID)
		if err != nil {
			logx.Warn("get_me: person not found", "person_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		resp.RespondSuccess(w, r, person.Public())
	}
}

type UpdateMeInput struct {
	FirstName   *string  `json:"firstName"`
	LastName    *string  `json:"lastName"`
	Description *string  `json:"description"`
	Hobby       []string `json:"hobby"`
	Image       *string  `json:"image"`
}

// HandleUpdateMe applies a partial profile update. Absent fields are left
// untouched; present fields overwrite, including empty strings.
func HandleUpdateMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input UpdateMeInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if (input.FirstName != nil && *input.FirstName == "") ||
			(input.LastName != nil && *input.LastName == "") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPersonData))
			return
		}

		// A replaced avatar leaves its old object behind; capture the key so it
		// can be cleaned up after the update commits.
		var previousImage string
		if input.Image != nil {
			if current, err := deps.Persons.GetPersonByID(r.Context(), identity.ID); err == nil {
				previousImage = current.Image
			}
		}

		person, err := deps.Persons.UpdatePerson(r.Context(), identity.ID, store.UpdatePersonParams{
			FirstName:   input.FirstName,
			LastName:    input.LastName,
			Description: input.Description,
			Hobby:       input.Hobby,
			Image:       input.Image,
		})
		if err != nil {
			if db.IsNotFound(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrPersonNotFound))
				return
			}

			logx.Error(err, "failed to update profile", "person_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if input.Image != nil && previousImage != *input.Image {
			removeAvatarObject(r, deps, previousImage)
		}

		resp.RespondSuccess(w, r, person.Public())
	}
}

// HandleDeleteMe removes the authenticated person's account. Messages and
// follow rows go with it via foreign key cascades.
func HandleDeleteMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var avatarKey string
		if person, err := deps.Persons.GetPersonByID(r.Context(), identity.ID); err == nil {
			avatarKey = person.Image
		}

		if err := deps.Persons.DeletePerson(r.Context(), identity.ID); err != nil {
			if db.IsNotFound(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrPersonNotFound))
				return
			}

			logx.Error(err, "failed to delete person", "person_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		removeAvatarObject(r, deps, avatarKey)

		logx.Info("account deleted", "person_id", identity.ID)
		resp.RespondSuccess(w, r, nil)
	}
}

// HandleFindPerson returns the public profile of the person with the given ID.
func HandleFindPerson(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jwt.GetPayloadFromContext(r) == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		personID, customErr := parsePersonID(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		person, err := deps.Persons.GetPersonByID(r.Context(), personID)
		if err != nil {
			if db.IsNotFound(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrPersonNotFound))
				return
			}

			logx.Error(err, "failed to fetch person", "person_id", personID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, person.Public())
	}
}

// HandleListFollowing returns the persons the given person follows.
func HandleListFollowing(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jwt.GetPayloadFromContext(r) == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		personID, customErr := parsePersonID(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		persons, err := deps.Persons.ListFollowing(r.Context(), personID)
		if err != nil {
			logx.Error(err, "failed to list following", "person_id", personID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, publicList(persons))
	}
}

// HandleFollow makes the authenticated person follow the person with the given ID.
func HandleFollow(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		targetID, customErr := parsePersonID(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if targetID == identity.ID {
			resp.RespondError(w, r, errs.NewError(errs.ErrSelfFollow))
			return
		}

		if _, err := deps.Persons.GetPersonByID(r.Context(), targetID); err != nil {
			if db.IsNotFound(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrPersonNotFound))
				return
			}

			logx.Error(err, "failed to fetch follow target", "person_id", targetID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.Persons.Follow(r.Context(), identity.ID, targetID); err != nil {
			if db.IsUniqueViolation(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyFollowing))
				return
			}

			logx.Error(err, "failed to create follow", "follower_id", identity.ID, "followed_id", targetID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleUnfollow removes the follow relationship toward the given person.
func HandleUnfollow(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		targetID, customErr := parsePersonID(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Persons.Unfollow(r.Context(), identity.ID, targetID); err != nil {
			if db.IsNotFound(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrNotFollowing))
				return
			}

			logx.Error(err, "failed to remove follow", "follower_id", identity.ID, "followed_id", targetID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

func parsePersonID(r *http.Request) (int64, *errs.CustomError) {
	idStr := chi.URLParam(r, "id")

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}

	return id, nil
}

func parsePagination(r *http.Request) (take int32, skip int32, customErr *errs.CustomError) {
	take = DefaultListTake

	if takeStr := r.URL.Query().Get("take"); takeStr != "" {
		parsed, err := strconv.ParseInt(takeStr, 10, 32)
		if err != nil || parsed <= 0 || parsed > MaxListTake {
			return 0, 0, errs.NewError(errs.ErrInvalidParams)
		}
		take = int32(parsed)
	}

	if skipStr := r.URL.Query().Get("skip"); skipStr != "" {
		parsed, err := strconv.ParseInt(skipStr, 10, 32)
		if err != nil || parsed < 0 {
			return 0, 0, errs.NewError(errs.ErrInvalidParams)
		}
		skip = int32(parsed)
	}

	return take, skip, nil
}

func publicList(persons []store.Person) []store.PublicPerson {
	public := make([]store.PublicPerson, 0, len(persons))
	for _, p := range persons {
		public = append(public, p.Public())
	}
	return public
}
