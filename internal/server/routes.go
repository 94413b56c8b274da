package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Interactive session routes
	r.Route("/cline", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Get("/", s.listSessions)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.stopSession)

				r.Post("/messages", s.sendMessage)
				r.Get("/messages", s.getMessages)
			})
		})

		r.Post("/quick-message", s.quickMessage)
		r.Get("/health", s.sessionHealth)
	})

	// Review routes
	r.Route("/review", func(r chi.Router) {
		r.Post("/", s.runReview)
		r.Get("/health", s.reviewHealth)
	})

	// Event streaming (SSE)
	r.Get("/event", s.allEvents)

	// Service health
	r.Get("/health", s.health)
}
