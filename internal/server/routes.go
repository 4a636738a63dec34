// Package server wires the HTTP routes for the ChatWave backend.
package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupRoutes returns the router serving the realtime endpoints and the REST
// notification API.
func SetupRoutes(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Get("/ws/{userID}", h.ServeUserSocket)
	r.Get("/ws/group/{groupID}", h.ServeGroupSocket)

	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.SendMessage)
		r.Post("/messages/file", h.SendFileMessage)
		r.Put("/messages/{messageID}", h.UpdateMessage)
		r.Delete("/messages/{messageID}", h.DeleteMessage)

		r.Post("/calls", h.StartCall)
		r.Put("/calls/{callID}/status", h.UpdateCallStatus)
	})

	return r
}
