package api

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes registers the public routes and the admin-only routes
func setupRoutes(r chi.Router, handlers *routeHandlers, sessions sessionMiddleware, loginLimiter *ipRateLimiter) {
	r.Get("/health", handlers.healthHandler.health())

	// Public routes, admin requests identified by their bearer token
	r.Group(func(r chi.Router) {
		r.Use(sessions.identify)

		r.Get("/session", handlers.sessionHandler.getSession())
		r.With(loginLimiter.Limit).Post("/session/login", handlers.sessionHandler.login())

		r.Get("/posts", handlers.postHandler.getAllPosts())
		r.Get("/posts/{postID}", handlers.postHandler.getPost())
	})

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(sessions.requireAdmin)

		r.Post("/session/logout", handlers.sessionHandler.logout())

		r.Post("/posts", handlers.postHandler.createPost())
		r.Put("/posts/{postID}", handlers.postHandler.updatePost())
		r.Delete("/posts/{postID}", handlers.postHandler.deletePost())

		r.Get("/export", handlers.backupHandler.exportPosts())
		r.Post("/import", handlers.backupHandler.importPosts())

		r.Get("/settings/images", handlers.settingsHandler.getImageSettings())
		r.Put("/settings/images", handlers.settingsHandler.saveImageSettings())
		r.Post("/settings/images/test", handlers.settingsHandler.testImageSettings())

		r.Post("/images", handlers.imageHandler.uploadImage())
	})
}
