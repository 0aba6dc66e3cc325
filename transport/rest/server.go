package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter - REST routes plus the WebSocket endpoint on a single router.
func NewRouter(handlers Handlers, ws http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ping", handlers.PingHandler)
	r.Get("/stats", handlers.StatsHandler)
	r.Get("/rooms/{code}", handlers.RoomHandler)
	r.Get("/rooms/{code}/history", handlers.HistoryHandler)

	r.Get("/ws", ws.ServeHTTP)

	return r
}
