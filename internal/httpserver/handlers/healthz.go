package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/bookboard/internal/httpserver/deps"
)

type healthzResponse struct {
	Status         string  `json:"status"`
	Store          string  `json:"store"`
	WritesInFlight bool    `json:"writes_in_flight"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	Version        string  `json:"version,omitempty"`
	Commit         string  `json:"commit,omitempty"`
	BuildDate      string  `json:"build_date,omitempty"`
	GoVersion      string  `json:"go_version,omitempty"`
}

// Healthz reports liveness. It never touches the store; /readyz does.
func Healthz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status:        "ok",
			Store:         d.StoreKind,
			UptimeSeconds: time.Since(d.StartTime).Seconds(),
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
		}
		if d.Gateway != nil {
			resp.WritesInFlight = d.Gateway.WriteInFlight()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
