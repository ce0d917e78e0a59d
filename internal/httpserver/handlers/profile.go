package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookboard/internal/appstate"
	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/domain"
	"github.com/MrSnakeDoc/bookboard/internal/httpserver/deps"
)

type themeRequest struct {
	Theme string `json:"theme" validate:"required,colortheme"`
}

type plantRequest struct {
	Plant string `json:"plant" validate:"required,plant"`
}

// SetTheme applies a theme on this device only. Locked themes are refused.
func SetTheme(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req themeRequest
		if err := decode(r, d, &req); err != nil {
			writeError(w, d, err)
			return
		}

		var view profileView
		err := d.State.Do(func(sess *appstate.Session) error {
			p := sess.Env.Profile
			if !p.IsUnlocked(req.Theme) {
				return fmt.Errorf("theme %q %w", req.Theme, errLocked)
			}
			p.SetColorThemeLocally(req.Theme)
			view = newProfileView(p)
			return nil
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func SyncTheme(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p *docstore.Pending
		_ = d.State.Do(func(sess *appstate.Session) error {
			p = sess.Env.Profile.SyncColorTheme(writeCtx(r))
			return nil
		})
		finish(w, r, d, http.StatusOK, p, nil)
	}
}

// SetPlant puts a plant in slot a or b on this device only.
func SetPlant(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req plantRequest
		if err := decode(r, d, &req); err != nil {
			writeError(w, d, err)
			return
		}
		slot := domain.PlantSlot(chi.URLParam(r, "slot"))

		var view profileView
		err := d.State.Do(func(sess *appstate.Session) error {
			p := sess.Env.Profile
			if !p.IsUnlocked(req.Plant) {
				return fmt.Errorf("plant %q %w", req.Plant, errLocked)
			}
			if _, err := p.SetPlantLocally(slot, req.Plant); err != nil {
				return err
			}
			view = newProfileView(p)
			return nil
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func SyncPlants(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p *docstore.Pending
		_ = d.State.Do(func(sess *appstate.Session) error {
			p = sess.Env.Profile.SyncPlants(writeCtx(r))
			return nil
		})
		finish(w, r, d, http.StatusOK, p, nil)
	}
}
