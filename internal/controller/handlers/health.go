package handlers

import (
	"context"
	"net/http"
	"sort"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// AddReadinessCheck registers a named check run by Readyz after the database.
func (h *Handlers) AddReadinessCheck(name string, check ReadinessCheck) {
	if h.checks == nil {
		h.checks = make(map[string]ReadinessCheck)
	}
	h.checks[name] = check
}

// Healthz is a liveness probe.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz is a readiness probe. The database must answer a ping and every
// registered dependency must pass its check.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.store.Ping(ctx); err != nil {
		h.httpError(w, "Database unavailable", http.StatusServiceUnavailable)
		return
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := map[string]string{"database": "ok"}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("readiness check failed", "check", name, "error", err)
			h.httpError(w, name+" unavailable", http.StatusServiceUnavailable)
			return
		}
		status[name] = "ok"
	}

	h.respondJson(w, http.StatusOK, map[string]any{"status": "ready", "checks": status})
}
