package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookboard/internal/httpserver/handlers"
)

func init() { Register(registerProfile) }

func registerProfile(r chi.Router, d deps.Deps) {
	api := r.With(apiGuards(d)...)
	api.Put("/api/profile/theme", handlers.SetTheme(d))
	api.Post("/api/profile/theme/sync", handlers.SyncTheme(d))
	api.Put("/api/profile/plants/{slot}", handlers.SetPlant(d))
	api.Post("/api/profile/plants/sync", handlers.SyncPlants(d))
}
