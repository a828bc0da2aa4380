/**
 * @description
 * This file sets up the HTTP router using the go-chi/chi router.
 * It defines the API routes, applies middleware for logging, CORS, and
 * authentication, and maps the routes to their handler functions.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers all routes.
func NewRouter(h *Handler, authCfg AuthConfig) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		// The SPA client sends platform headers alongside the bearer token.
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Client-Info", "Apikey"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("MMortal backend is healthy"))
	})

	// Payment provider webhooks authenticate via signature, not bearer token.
	r.Post("/api/billing/webhook", h.handleStripeWebhook)

	// Protected routes that require authentication
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authCfg))

		r.Route("/api/billing", func(r chi.Router) {
			r.Get("/status", h.handleGetStatus)
			r.Post("/checkout-session", h.handleCreateCheckoutSession)
			r.Post("/portal-session", h.handleCreatePortalSession)
		})

		r.Route("/api/posts/{postType}", func(r chi.Router) {
			r.Post("/", h.handleCreatePost)
			r.Get("/", h.handleListPosts)
			r.Get("/{postID}", h.handleGetPost)
			r.Put("/{postID}", h.handleUpdatePost)
			r.Delete("/{postID}", h.handleDeletePost)
			r.Post("/{postID}/like", h.handleToggleLike)
			r.Get("/{postID}/likes", h.handleGetLikes)
		})

		r.Route("/api/messages", func(r chi.Router) {
			r.Post("/", h.handleScheduleMessage)
			r.Get("/", h.handleListScheduledMessages)
			r.Post("/{messageID}/cancel", h.handleCancelScheduledMessage)
		})
	})

	return r
}
