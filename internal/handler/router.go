/*
Package handler provides the HTTP handlers and routing setup for the Mingle server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"mingle/internal/pkg/auth/jwt"
	"mingle/internal/pkg/limiter"
	"mingle/internal/pkg/logx"
	"mingle/internal/pkg/resp"
)

const (
	RegisterRate  = 0.05
	RegisterBurst = 2
	SocketRate    = 0.2
	SocketBurst   = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and
// per-route middleware before delegating to the auth, person, message, file,
// and WebSocket handlers.
func Router(deps *AppDeps) http.Handler {
	registerLimiter := limiter.NewIPRateLimiter(rate.Limit(RegisterRate), RegisterBurst)
	socketLimiter := limiter.NewIPRateLimiter(rate.Limit(SocketRate), SocketBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-PoW-Token"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		logx.Info("Health check endpoint hit")

		data := map[string]string{
			"status":  "ok",
			"service": "Mingle Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/auth", func(auth chi.Router) {
			auth.Get("/challenge", HandlePowChallenge(deps))
			auth.Post("/challenge", HandlePowVerify(deps))

			rateLimitedRegister := registerLimiter.Middleware(HandleRegister(deps))
			auth.Post("/register", http.HandlerFunc(rateLimitedRegister.ServeHTTP))
			auth.Post("/login", HandleLogin(deps))
			auth.Post("/refresh", HandleRefresh(deps))
		})

		api.Route("/persons", func(persons chi.Router) {
			persons.Get("/", HandleListPersons(deps))
			persons.Get("/search", HandleSearchPersons(deps))

			persons.Get("/me", HandleGetMe(deps))
			persons.Patch("/me", HandleUpdateMe(deps))
			persons.Delete("/me", HandleDeleteMe(deps))

			persons.Post("/me/avatar/presign", HandlePresignAvatarUpload(deps))
			persons.Get("/me/avatar/presign-download", HandlePresignAvatarDownload(deps))

			persons.Get("/{id}/find", HandleFindPerson(deps))
			persons.Get("/{id}/following", HandleListFollowing(deps))
			persons.Post("/{id}/follow", HandleFollow(deps))
			persons.Post("/{id}/unfollow", HandleUnfollow(deps))
		})

		api.Route("/messages", func(messages chi.Router) {
			messages.Get("/messenger/{receiverId}", HandleConversation(deps))
			messages.Get("/chats", HandleChats(deps))
			messages.Post("/", HandleCreateMessage(deps))
			messages.Post("/edit", HandleEditMessage(deps))
			messages.Delete("/delete", HandleDeleteMessage(deps))
		})
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, socketLimiter, deps))

	return r
}
