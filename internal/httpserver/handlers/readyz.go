package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/proxydeck/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready bool `json:"ready"`
}

// Readyz reports 503 until the cache has completed its first poll attempt
// and 200 afterwards, even when that attempt failed — the cache serves
// whatever it has and freshness is an observability concern.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := d.Cache.IsReady()

		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(readyzResponse{Ready: ready})
	}
}
