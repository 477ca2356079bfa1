package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/proxydeck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/proxydeck/internal/logger"
)

type titlesResponse struct {
	Overrides map[string]string `json:"overrides"`
	Version   uint64            `json:"version"`
}

type titleUpdateRequest struct {
	Title string `json:"title"`
}

type titleMutationResponse struct {
	Changed bool   `json:"changed"`
	Version uint64 `json:"version"`
}

// TitlesList returns every display-name override with the store's
// mutation counter.
func TitlesList(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(titlesResponse{
			Overrides: d.Titles.All(),
			Version:   d.Titles.Version(),
		})
	}
}

// TitlesSet stores an override for one service id.
func TitlesSet(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}

		var req titleUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		changed, err := d.Titles.Set(id, req.Title)
		if err != nil {
			d.Logger.Error("failed to persist title override", logger.Error(err))
			http.Error(w, "failed to persist override", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(titleMutationResponse{
			Changed: changed,
			Version: d.Titles.Version(),
		})
	}
}

// TitlesClear removes an override.
func TitlesClear(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}

		changed, err := d.Titles.Clear(id)
		if err != nil {
			d.Logger.Error("failed to persist title override removal", logger.Error(err))
			http.Error(w, "failed to persist override", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(titleMutationResponse{
			Changed: changed,
			Version: d.Titles.Version(),
		})
	}
}
