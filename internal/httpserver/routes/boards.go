package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookboard/internal/httpserver/handlers"
)

func init() { Register(registerBoards) }

func registerBoards(r chi.Router, d deps.Deps) {
	api := r.With(apiGuards(d)...)
	api.Post("/api/boards", handlers.AddBoard(d))
	api.Put("/api/boards/selected", handlers.SelectBoard(d))
	api.Get("/api/boards/{boardID}", handlers.GetBoard(d))
	api.Patch("/api/boards/{boardID}", handlers.RenameBoard(d))
	api.Delete("/api/boards/{boardID}", handlers.DeleteBoard(d))
	api.Put("/api/boards/{boardID}/order", handlers.UpdateOrder(d))
	api.Put("/api/boards/{boardID}/sort", handlers.SetSortMode(d))

	api.Post("/api/boards/{boardID}/books", handlers.AddBook(d))
	api.Patch("/api/boards/{boardID}/books/{bookID}", handlers.EditBook(d))
	api.Delete("/api/boards/{boardID}/books/{bookID}", handlers.DeleteBook(d))
	api.Post("/api/boards/{boardID}/books/{bookID}/read", handlers.MarkAsRead(d))
}
