package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bookboard/internal/appstate"
	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/domain"
	"github.com/MrSnakeDoc/bookboard/internal/httpserver/deps"
)

type addBookRequest struct {
	Title  string `json:"title" validate:"required,min=1,max=200"`
	Author string `json:"author" validate:"required,min=1,max=100"`
}

type editBookRequest struct {
	Title  *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Author *string `json:"author,omitempty" validate:"omitempty,min=1,max=100"`
	Rating *int    `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Review *string `json:"review,omitempty" validate:"omitempty,max=5000"`
}

type markAsReadRequest struct {
	Rating *int    `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Review *string `json:"review,omitempty" validate:"omitempty,max=5000"`
}

func AddBook(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addBookRequest
		if err := decode(r, d, &req); err != nil {
			writeError(w, d, err)
			return
		}

		var (
			p    *docstore.Pending
			view bookView
		)
		err := d.State.Do(func(sess *appstate.Session) error {
			board, err := lookupLoadedBoard(sess, r)
			if err != nil {
				return err
			}
			var book *domain.Book
			book, p = board.AddBook(writeCtx(r), req.Title, req.Author)
			view = newBookView(book)
			return nil
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		finish(w, r, d, http.StatusCreated, p, view)
	}
}

func EditBook(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editBookRequest
		if err := decode(r, d, &req); err != nil {
			writeError(w, d, err)
			return
		}

		var (
			p    *docstore.Pending
			view bookView
		)
		err := d.State.Do(func(sess *appstate.Session) error {
			board, err := lookupLoadedBoard(sess, r)
			if err != nil {
				return err
			}
			book, err := lookupBook(board, r)
			if err != nil {
				return err
			}
			p = board.EditBook(writeCtx(r), book, domain.BookChanges{
				Title:  req.Title,
				Author: req.Author,
				Rating: req.Rating,
				Review: req.Review,
			})
			view = newBookView(book)
			return nil
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		finish(w, r, d, http.StatusOK, p, view)
	}
}

func DeleteBook(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p *docstore.Pending
		err := d.State.Do(func(sess *appstate.Session) error {
			board, err := lookupLoadedBoard(sess, r)
			if err != nil {
				return err
			}
			book, err := lookupBook(board, r)
			if err != nil {
				return err
			}
			p = board.DeleteBook(writeCtx(r), book)
			return nil
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		finish(w, r, d, http.StatusOK, p, nil)
	}
}

// MarkAsRead accepts an empty body when no rating or review is given.
func MarkAsRead(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markAsReadRequest
		if r.ContentLength != 0 {
			if err := decode(r, d, &req); err != nil {
				writeError(w, d, err)
				return
			}
		}

		var (
			p    *docstore.Pending
			view bookView
		)
		err := d.State.Do(func(sess *appstate.Session) error {
			board, err := lookupLoadedBoard(sess, r)
			if err != nil {
				return err
			}
			book, err := lookupBook(board, r)
			if err != nil {
				return err
			}
			p = board.MarkAsRead(writeCtx(r), book, &domain.ReadingNotes{Rating: req.Rating, Review: req.Review})
			view = newBookView(book)
			return nil
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		finish(w, r, d, http.StatusOK, p, view)
	}
}
