package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/bookboard/internal/appstate"
	"github.com/MrSnakeDoc/bookboard/internal/auth"
	"github.com/MrSnakeDoc/bookboard/internal/httpserver/deps"
)

type signInRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
}

// GetState returns the directory, the profile and the sync flags.
func GetState(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, currentState(d))
	}
}

func currentState(d deps.Deps) stateView {
	var view stateView
	status := d.State.Status()
	_ = d.State.Do(func(sess *appstate.Session) error {
		view = newStateView(sess, status)
		return nil
	})
	return view
}

// SignIn signs the user in and runs the initial sync before answering.
func SignIn(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signInRequest
		if err := decode(r, d, &req); err != nil {
			writeError(w, d, err)
			return
		}

		if err := d.State.SignIn(r.Context(), req.UserID); err != nil {
			if !errors.Is(err, auth.ErrInvalidUserID) {
				err = fmt.Errorf("%w: initial sync: %v", errUpstream, err)
			}
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, currentState(d))
	}
}

// SignOut drops the session and starts over as a guest.
func SignOut(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.State.SignOut(r.Context())
		writeJSON(w, http.StatusOK, currentState(d))
	}
}
