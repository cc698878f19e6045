package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/identsvc/go-user-accounts/internal/api/auth"
	"github.com/identsvc/go-user-accounts/internal/api/user"
)

// Config contains dependencies needed for the router setup.
type Config struct {
	AuthHandler            *auth.AuthHandler
	UserHandler            user.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
	RequireAdminMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	// --- Public routes ---
	r.Group(func(r chi.Router) {
		r.Post("/registro", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Get("/salir", cfg.AuthHandler.Logout)
	})

	// --- Protected routes ---
	r.Group(func(r chi.Router) {
		r.Use(cfg.AuthenticateMiddleware)

		r.Get("/usuarios", cfg.UserHandler.ListUsers)
		r.Get("/usuarios/{id}", cfg.UserHandler.GetUser)
		r.Put("/usuarios/{id}", cfg.UserHandler.UpdateUser)
		r.Delete("/usuarios/{id}", cfg.UserHandler.DeleteUser)
		r.Put("/cambiar-password/{id}", cfg.AuthHandler.ChangePassword)

		// --- Admin routes ---
		r.Group(func(r chi.Router) {
			r.Use(cfg.RequireAdminMiddleware)
			r.Put("/cambiar-tipo-usuario/{id}", cfg.AuthHandler.ChangeRole)
		})
	})

	return r
}
