package routes

import (
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/bookboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookboard/internal/httpserver/mw"
)

// streamGuards protect every /api route.
func streamGuards(d deps.Deps) []Middleware {
	guards := []Middleware{mw.EnforceHost(d.AllowedHosts, d.Logger)}
	if d.Limiter != nil {
		guards = append(guards, d.Limiter)
	}
	return guards
}

// apiGuards add a per-request timeout to streamGuards.
func apiGuards(d deps.Deps) []Middleware {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return append(streamGuards(d), middleware.Timeout(timeout))
}
