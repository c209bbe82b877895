package ops

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/skydeck/flightcache/pkg/cache"
)

// Cache is the slice of the manager the operator surface consumes.
type Cache interface {
	Stats(ctx context.Context) cache.Stats
	Metrics(ctx context.Context) cache.Metrics
	ResetStats()
	Prune(ctx context.Context) (int, error)
	Clear(ctx context.Context, pattern string) (int, error)
}

type handlers struct {
	m        Cache
	log      *slog.Logger
	promText http.Handler
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.m.Stats(r.Context()))
}

func (h *handlers) metrics(w http.ResponseWriter, r *http.Request) {
	if wantsPrometheus(r) {
		h.promText.ServeHTTP(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.m.Metrics(r.Context()))
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	h.m.ResetStats()
	h.log.InfoContext(r.Context(), "cache stats reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *handlers) prune(w http.ResponseWriter, r *http.Request) {
	n, err := h.m.Prune(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "prune failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pruned": n})
}

func (h *handlers) clear(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	n, err := h.m.Clear(r.Context(), pattern)
	if err != nil {
		h.log.ErrorContext(r.Context(), "clear failed",
			slog.String("pattern", pattern), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

// wantsPrometheus reports whether the client asked for text exposition.
func wantsPrometheus(r *http.Request) bool {
	if r.URL.Query().Get("format") == "prometheus" {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/plain") && !strings.Contains(accept, "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
