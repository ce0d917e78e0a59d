package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/bookboard/internal/logger"
	"github.com/MrSnakeDoc/bookboard/internal/utils"
)

// AllowOnlyCIDRS guards the operator endpoints (/readyz, /api/infra) with
// BOOKBOARD_ALLOWED_CIDRS. An empty list lets everything through.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		return func(next http.Handler) http.Handler { return next }
	}
	log = log.With(logger.String("component", "allow_cidrs"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !m.Allow(ip) {
				log.Debug("client rejected",
					logger.String("client_ip", ip),
					logger.String("remote_addr", r.RemoteAddr),
					logger.String("path", r.URL.Path),
					logger.Bool("trust_proxy", trustProxy))
				reject(w, http.StatusForbidden, "client not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
