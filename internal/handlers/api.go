// internal/handlers/api.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/parley/internal/account"
	"github.com/jason-s-yu/parley/internal/auth"
	"github.com/jason-s-yu/parley/internal/chat"
	"github.com/jason-s-yu/parley/internal/metrics"
	"github.com/jason-s-yu/parley/internal/middleware"
	"github.com/jason-s-yu/parley/internal/social"
	"github.com/sirupsen/logrus"
)

// API holds the dependencies of the HTTP handlers.
type API struct {
	Accounts *account.Service
	Social   *social.Service
	Chat     chat.Directory
	Sessions *auth.Sessions
	Users    middleware.UserLookup
	// Notifications is optional; the websocket route is only mounted when set.
	Notifications Subscriber
	Logger        *logrus.Logger

	ClientURL     string
	SecureCookies bool
}

// Router builds the full route tree.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(metrics.Instrument)
	r.Use(middleware.LogMiddleware(a.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{a.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	requireSession := middleware.RequireSession(a.Sessions, a.Users, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", a.signup)
			r.Post("/login", a.login)
			r.Post("/logout", a.logout)

			r.Group(func(r chi.Router) {
				r.Use(requireSession)
				r.Post("/onboard", a.onboard)
				r.Get("/me", a.me)
				r.Put("/password", a.changePassword)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", a.recommendedUsers)
				r.Get("/friends", a.myFriends)
				r.Post("/friend-request/{id}", a.sendFriendRequest)
				r.Put("/friend-request/{id}/accept", a.acceptFriendRequest)
				r.Get("/friend-requests", a.friendRequests)
				r.Get("/outgoing-friend-requests", a.outgoingFriendRequests)
			})

			r.Get("/chat/token", a.chatToken)

			if a.Notifications != nil {
				r.Get("/notifications/ws", a.notificationsWS)
			}
		})
	})

	return r
}
