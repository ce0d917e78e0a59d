package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/bookboard/internal/httpserver/deps"
)

type componentStatus struct {
	OK        bool   `json:"ok"`
	Documents *int   `json:"documents,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Impact    string `json:"impact,omitempty"`
	Error     string `json:"error,omitempty"`
}

type infraResponse struct {
	SyncMode   string                     `json:"sync_mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the document store and the session's sync state.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		status := d.State.Status()
		session := componentStatus{OK: true, Mode: "guest"}
		switch {
		case status.PostSignup:
			session.Mode = "uploading"
		case status.SignedIn && status.Synced:
			session.Mode = "synced"
		case status.SignedIn:
			session.OK = false
			session.Mode = "not-synced"
			session.Impact = "changes-not-persisted"
		}
		if status.WriteInFlight {
			session.Impact = "writes-in-flight"
		}

		components := map[string]componentStatus{
			"store":   checkStore(r.Context(), d),
			"session": session,
		}

		response := infraResponse{
			SyncMode:   determineSyncMode(components),
			Components: components,
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func determineSyncMode(components map[string]componentStatus) string {
	if store, exists := components["store"]; exists && !store.OK {
		return "local-only" // store down = edits stay in memory
	}
	session, exists := components["session"]
	if exists && !session.OK {
		return "degraded"
	}
	if exists && session.Mode == "guest" {
		return "local-only" // nobody to sync for
	}
	return "cloud"
}

func checkStore(parent context.Context, d deps.Deps) componentStatus {
	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()

	if err := d.Backend.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   d.StoreKind,
			Impact: "remote-writes-failing",
			Error:  err.Error(),
		}
	}

	status := componentStatus{OK: true, Mode: d.StoreKind}
	if d.Counter != nil {
		n, err := d.Counter.CountDocuments(ctx, "")
		if err != nil {
			status.Error = err.Error()
		} else {
			status.Documents = &n
		}
	}
	return status
}
