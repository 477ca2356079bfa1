package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/proxydeck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/proxydeck/internal/view"
)

// Services serves the display-ready projection of the current snapshot:
// enabled entries only, names resolved against the titles store.
func Services(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := d.Cache.GetSnapshot()

		model := view.Build(snap, view.Options{
			IncludeRedirects: d.IncludeRedirects,
			IncludeStreams:   d.IncludeStreams,
			AdminURL:         d.AdminURL,
			TitleOverride:    d.Titles.Get,
			TitlesVersion:    d.Titles.Version(),
		})

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(model)
	}
}
