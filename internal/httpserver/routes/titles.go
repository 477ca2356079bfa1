package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/proxydeck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/proxydeck/internal/httpserver/handlers"
)

func init() { Register(registerTitles) }

func registerTitles(r chi.Router, d deps.Deps) {
	r.Get("/api/titles", handlers.TitlesList(d))
	r.Put("/api/titles/{id}", handlers.TitlesSet(d))
	r.Delete("/api/titles/{id}", handlers.TitlesClear(d))
}
