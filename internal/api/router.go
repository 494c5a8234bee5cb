package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func newRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", handleHealthz(deps))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", handleStatus(deps))
		r.Get("/environments", handleEnvironments(deps))
		r.Get("/events", handleEvents(deps))
	})

	return r
}

func handleHealthz(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"version": deps.Version,
		})
	}
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := deps.Daemon.Stats()
		writeJSON(w, http.StatusOK, map[string]any{
			"version": deps.Version,
			"stats":   stats,
			"uptime":  time.Since(stats.StartedAt).Truncate(time.Second).String(),
		})
	}
}

func handleEnvironments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Daemon.Snapshot())
	}
}

func handleEvents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Events == nil {
			writeError(w, http.StatusNotFound, "event journal disabled")
			return
		}
		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 1000 {
				writeError(w, http.StatusBadRequest, "limit must be 1-1000")
				return
			}
			limit = n
		}
		events, err := deps.Events.Recent(r.Context(), limit)
		if err != nil {
			deps.Logger.Error("events query failed", "error", err)
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
