package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookboard/internal/httpserver/handlers"
)

func init() { Register(registerSession) }

func registerSession(r chi.Router, d deps.Deps) {
	api := r.With(apiGuards(d)...)
	api.Get("/api/state", handlers.GetState(d))
	api.Post("/api/session", handlers.SignIn(d))
	api.Delete("/api/session", handlers.SignOut(d))
	api.Put("/api/view", handlers.SetViewMode(d))
}
