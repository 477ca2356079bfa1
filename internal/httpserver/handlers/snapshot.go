package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/proxydeck/internal/httpserver/deps"
)

// Snapshot serves the raw current snapshot. Reading never blocks on a
// poll and never triggers one.
func Snapshot(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(d.Cache.GetSnapshot())
	}
}
