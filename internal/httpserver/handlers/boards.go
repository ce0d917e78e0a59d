package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/bookboard/internal/appstate"
	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/domain"
	"github.com/MrSnakeDoc/bookboard/internal/httpserver/deps"
)

type boardNameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=40"`
}

type selectBoardRequest struct {
	BoardID string `json:"boardId" validate:"required"`
}

type orderRequest struct {
	Order []string `json:"order" validate:"required,dive,required"`
}

type sortRequest struct {
	Mode string `json:"mode" validate:"required,sortmode"`
}

type viewRequest struct {
	Mode string `json:"mode" validate:"required,viewmode"`
}

func GetBoard(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var view boardView
		err := d.State.Do(func(sess *appstate.Session) error {
			board, err := lookupBoard(sess, r)
			if err != nil {
				return err
			}
			view = newBoardView(sess.Directory, board)
			return nil
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func AddBoard(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req boardNameRequest
		if err := decode(r, d, &req); err != nil {
			writeError(w, d, err)
			return
		}

		var (
			p    *docstore.Pending
			view boardSummary
		)
		err := d.State.Do(func(sess *appstate.Session) error {
			board := domain.NewBoard(sess.Env, req.Name)
			pending, err := sess.Directory.AddBoard(writeCtx(r), board)
			if err != nil {
				return err
			}
			p, view = pending, newBoardSummary(sess.Directory, board)
			return nil
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		finish(w, r, d, http.StatusCreated, p, view)
	}
}

func RenameBoard(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req boardNameRequest
		if err := decode(r, d, &req); err != nil {
			writeError(w, d, err)
			return
		}

		var (
			p    *docstore.Pending
			view boardSummary
		)
		err := d.State.Do(func(sess *appstate.Session) error {
			board, err := lookupBoard(sess, r)
			if err != nil {
				return err
			}
			p, view = board.Rename(writeCtx(r), req.Name), newBoardSummary(sess.Directory, board)
			return nil
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		finish(w, r, d, http.StatusOK, p, view)
	}
}

func DeleteBoard(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p *docstore.Pending
		err := d.State.Do(func(sess *appstate.Session) error {
			board, err := lookupBoard(sess, r)
			if err != nil {
				return err
			}
			p, err = sess.Directory.DeleteBoard(writeCtx(r), board)
			return err
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		finish(w, r, d, http.StatusOK, p, nil)
	}
}

// SelectBoard selects a board, loading its contents on first use, and
// remembers it as the last selected board.
func SelectBoard(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectBoardRequest
		if err := decode(r, d, &req); err != nil {
			writeError(w, d, err)
			return
		}

		var (
			p    *docstore.Pending
			view boardView
		)
		err := d.State.Do(func(sess *appstate.Session) error {
			board, ok := sess.Directory.Board(req.BoardID)
			if !ok {
				return fmt.Errorf("board %q %w", req.BoardID, errNotFound)
			}
			if err := sess.Directory.SetSelectedBoard(r.Context(), board); err != nil {
				if errors.Is(err, domain.ErrBoardNotFound) {
					return err
				}
				return fmt.Errorf("%w: %v", errUpstream, err)
			}
			p = sess.Env.Profile.SetLastSelectedBoardID(writeCtx(r), board.ID)
			view = newBoardView(sess.Directory, board)
			return nil
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		finish(w, r, d, http.StatusOK, p, view)
	}
}

func UpdateOrder(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req orderRequest
		if err := decode(r, d, &req); err != nil {
			writeError(w, d, err)
			return
		}

		var p *docstore.Pending
		err := d.State.Do(func(sess *appstate.Session) error {
			board, err := lookupLoadedBoard(sess, r)
			if err != nil {
				return err
			}
			p, err = board.UpdateUnreadBooksOrder(writeCtx(r), req.Order)
			return err
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		finish(w, r, d, http.StatusOK, p, req.Order)
	}
}

// SetSortMode changes how read books are listed. It never writes remotely.
func SetSortMode(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sortRequest
		if err := decode(r, d, &req); err != nil {
			writeError(w, d, err)
			return
		}

		var view boardView
		err := d.State.Do(func(sess *appstate.Session) error {
			board, err := lookupLoadedBoard(sess, r)
			if err != nil {
				return err
			}
			board.SetReadBooksSortMode(domain.SortMode(req.Mode))
			view = newBoardView(sess.Directory, board)
			return nil
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func SetViewMode(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req viewRequest
		if err := decode(r, d, &req); err != nil {
			writeError(w, d, err)
			return
		}

		_ = d.State.Do(func(sess *appstate.Session) error {
			sess.Directory.SetViewMode(domain.ViewMode(req.Mode))
			return nil
		})
		w.WriteHeader(http.StatusNoContent)
	}
}
