package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayush/storyhub/backend/internal/auth"
	"github.com/ayush/storyhub/backend/internal/content"
	"github.com/ayush/storyhub/backend/internal/middleware"
)

// Deps are the handlers and settings the router is built from.
type Deps struct {
	Auth         *auth.Handler
	Content      *content.Handler
	Guard        *auth.Guard
	Log          *slog.Logger
	CORSOrigins  []string
	MaxBodyBytes int64
}

// New wires every route onto a chi router.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	requireAuth := middleware.RequireAuth(d.Guard, d.Log)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// JSON API
	r.Group(func(r chi.Router) {
		r.Use(chimw.RequestSize(d.MaxBodyBytes))

		r.Post("/signup", d.Auth.Signup)
		r.Post("/login", d.Auth.Login)
		r.With(requireAuth).Get("/me", d.Auth.Me)
		r.With(requireAuth).Patch("/password", d.Auth.ChangePassword)

		r.Route("/stories", func(r chi.Router) {
			r.Get("/", d.Content.ListStories)
			r.With(requireAuth).Post("/", d.Content.CreateStory)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", d.Content.SendMessage)
			r.Get("/{userId}", d.Content.Conversation)
		})
	})

	// Files
	r.With(requireAuth).Post("/upload", d.Content.Upload)
	r.Get("/images/{name}", d.Content.Image)

	return r
}
