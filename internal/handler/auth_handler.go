/*
Package handler provides HTTP handler functions for account registration and login.
*/
package handler

import (
	"net/http"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"mingle/internal/app/db"
	"mingle/internal/app/storage"
	"mingle/internal/app/store"
	"mingle/internal/pkg/auth/jwt"
	"mingle/internal/pkg/errs"
	"mingle/internal/pkg/logx"
	"mingle/internal/pkg/pow"
	"mingle/internal/pkg/randx"
	"mingle/internal/pkg/req"
	"mingle/internal/pkg/resp"
)

const (
	// usernameRetryLimit bounds how many generated username candidates are
	// tried before registration gives up on a unique-violation streak.
	usernameRetryLimit = 5
)

// HandlePowChallenge issues a Proof-of-Work nonce for registration. When the
// challenge is disabled it reports that, so clients skip the solve step.
func HandlePowChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Pow.Enabled() {
			resp.RespondSuccess(w, r, map[string]any{
				"enabled": false,
			})
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"enabled":    true,
			"nonce":      deps.Pow.IssueNonce(),
			"difficulty": deps.Pow.Difficulty(),
		})
	}
}

type PowProofInput struct {
	Nonce   string `json:"nonce"`
	Counter string `json:"counter"`
}

// HandlePowVerify exchanges a solved challenge for a single-use signup token.
func HandlePowVerify(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Pow.Enabled() {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var input PowProofInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		token, err := deps.Pow.ValidateProof(input.Nonce, input.Counter)
		if err != nil {
			logx.Warn("pow verification failed", "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeInvalid))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token": token,
		})
	}
}

type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

// HandleRegister processes the request to create a new account. The username
// is generated from the person's name plus a random numeric suffix; on a
// collision a fresh candidate is generated and the insert retried.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		if deps.Pow.Enabled() {
			if !deps.Pow.ConsumeToken(r.Header.Get(pow.TokenHeaderKey)) {
				resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
				return
			}
		}

		var input RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.FirstName == "" || input.LastName == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPersonData))
			return
		}

		passwordLen := utf8.RuneCountInString(input.Password)
		if passwordLen < 6 || passwordLen > 50 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		var person store.Person
		for attempt := 0; ; attempt++ {
			username, err := randx.UsernameCandidate(input.FirstName, input.LastName)
			if err != nil {
				logx.Error(err, "failed to generate username candidate")
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}

			person, err = deps.Persons.CreatePerson(r.Context(), store.CreatePersonParams{
				Username:     username,
				FirstName:    input.FirstName,
				LastName:     input.LastName,
				PasswordHash: string(hashedPassword),
				Hobby:        []string{},
				Image:        storage.DefaultAvatarKey,
			})
			if err == nil {
				break
			}

			if db.IsUniqueViolation(err) {
				if attempt < usernameRetryLimit {
					logx.Warn("registration conflict: generated username exists, retrying", "username", username)
					continue
				}

				logx.Warn("registration conflict: username candidates exhausted", "first_name", input.FirstName, "last_name", input.LastName)
				resp.RespondError(w, r, errs.NewError(errs.ErrUsernameTaken))
				return
			}

			logx.Error(err, "failed to create person in database")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		tokens, customErr := issueTokenPair(&person, deps.Config.JWTSecret)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"accessToken":  tokens.Access,
			"refreshToken": tokens.Refresh,
			"person":       person.Public(),
		})
	}
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and issues a fresh token pair.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identity := jwt.GetPayloadFromContext(r); identity != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		person, err := deps.Persons.GetPersonByUsername(r.Context(), input.Username)
		if err != nil {
			logx.Warn("login: person fetch failed", "username", input.Username, "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(person.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		tokens, customErr := issueTokenPair(&person, deps.Config.JWTSecret)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"accessToken":  tokens.Access,
			"refreshToken": tokens.Refresh,
			"person":       person.Public(),
		})
	}
}

type RefreshInput struct {
	RefreshToken string `json:"refreshToken"`
}

// HandleRefresh exchanges a valid refresh token for a new token pair. The
// person is re-read from the store so a deleted account cannot refresh.
func HandleRefresh(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input RefreshInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		payload, err := jwt.ParseToken(input.RefreshToken, deps.Config.JWTSecret)
		if err != nil {
			logx.Warn("refresh: invalid token", "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		person, err := deps.Persons.GetPersonByID(r.Context(), payload.ID)
		if err != nil {
			logx.Warn("refresh: person no longer exists", "person_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		tokens, customErr := issueTokenPair(&person, deps.Config.JWTSecret)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"accessToken":  tokens.Access,
			"refreshToken": tokens.Refresh,
		})
	}
}

type tokenPair struct {
	Access  string
	Refresh string
}

func issueTokenPair(person *store.Person, secret string) (tokenPair, *errs.CustomError) {
	access, err := jwt.GenerateToken(&jwt.Payload{
		ID:       person.ID,
		Username: person.Username,
	}, secret, jwt.AccessExpiration)
	if err != nil {
		logx.Error(err, "failed to generate access token", "person_id", person.ID)
		return tokenPair{}, errs.NewError(errs.ErrUnknown)
	}

	refresh, err := jwt.GenerateToken(&jwt.Payload{
		ID:       person.ID,
		Username: person.Username,
	}, secret, jwt.RefreshExpiration)
	if err != nil {
		logx.Error(err, "failed to generate refresh token", "person_id", person.ID)
		return tokenPair{}, errs.NewError(errs.ErrUnknown)
	}

	return tokenPair{Access: access, Refresh: refresh}, nil
}
