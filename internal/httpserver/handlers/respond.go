package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookboard/internal/appstate"
	"github.com/MrSnakeDoc/bookboard/internal/auth"
	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/domain"
	"github.com/MrSnakeDoc/bookboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookboard/internal/logger"
	"github.com/MrSnakeDoc/bookboard/internal/validation"
)

const maxBodyBytes = 1 << 20

var (
	errBadJSON   = errors.New("request body is not valid JSON")
	errLocked    = errors.New("not unlocked yet")
	errNotFound  = errors.New("not found")
	errNotLoaded = errors.New("board contents are not loaded, select it first")
	errUpstream  = errors.New("document store unavailable")
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeResponse is the body of every mutating endpoint.
type writeResponse struct {
	Synced bool   `json:"synced"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain and validation errors to HTTP statuses.
func writeError(w http.ResponseWriter, d deps.Deps, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, errBadJSON),
		errors.Is(err, domain.ErrInvalidOrder),
		errors.Is(err, domain.ErrUnknownPlantSlot),
		errors.Is(err, auth.ErrInvalidUserID):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, errNotFound), errors.Is(err, domain.ErrBoardNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, errLocked):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrTooManyBoards),
		errors.Is(err, domain.ErrLastBoard),
		errors.Is(err, errNotLoaded):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, errUpstream):
		d.Logger.Warn("document store request failed", logger.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		d.Logger.Error("request failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, d deps.Deps, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return d.Validator.Validate(dst)
}

// finish waits for the remote write of a mutation that was already applied
// locally. A failed write is reported with 502; the local change stays.
func finish(w http.ResponseWriter, r *http.Request, d deps.Deps, status int, p *docstore.Pending, data any) {
	if err := p.WaitContext(r.Context()); err != nil {
		d.Logger.Warn("remote write not confirmed",
			logger.String("path", r.URL.Path),
			logger.Error(err))
		writeJSON(w, http.StatusBadGateway, writeResponse{Synced: false, Error: err.Error(), Data: data})
		return
	}
	writeJSON(w, status, writeResponse{Synced: true, Data: data})
}

// writeCtx is the context remote writes are issued with. Writes outlive the
// request so a client that disconnects does not abort them.
func writeCtx(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func lookupBoard(sess *appstate.Session, r *http.Request) (*domain.Board, error) {
	id := chi.URLParam(r, "boardID")
	board, ok := sess.Directory.Board(id)
	if !ok {
		return nil, fmt.Errorf("board %q %w", id, errNotFound)
	}
	return board, nil
}

// lookupLoadedBoard is lookupBoard for operations that need the board
// contents.
func lookupLoadedBoard(sess *appstate.Session, r *http.Request) (*domain.Board, error) {
	board, err := lookupBoard(sess, r)
	if err != nil {
		return nil, err
	}
	if !sess.Directory.IsLoaded(board.ID) {
		return nil, errNotLoaded
	}
	return board, nil
}

func lookupBook(board *domain.Board, r *http.Request) (*domain.Book, error) {
	id := chi.URLParam(r, "bookID")
	book, ok := board.Book(id)
	if !ok {
		return nil, fmt.Errorf("book %q %w", id, errNotFound)
	}
	return book, nil
}
