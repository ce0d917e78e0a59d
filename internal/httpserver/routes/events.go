package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookboard/internal/httpserver/handlers"
)

func init() { Register(registerEvents) }

// The event stream is long-lived, so it skips the request timeout.
func registerEvents(r chi.Router, d deps.Deps) {
	r.With(streamGuards(d)...).Get("/api/events", handlers.Events(d))
}
