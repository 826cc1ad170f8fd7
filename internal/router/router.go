package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"procura-backend/internal/handlers"
	"procura-backend/internal/middleware"
	"procura-backend/internal/websocket"
)

func New(
	chatHandler *handlers.ChatHandler,
	streamHub *websocket.StreamHub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Chat rate limiter (30 req/min per IP)
	chatLimiter := middleware.NewRateLimiter(30, time.Minute)

	r.Get("/health", chatHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", chatHandler.Stats)
		r.Post("/query", chatHandler.DirectQuery)

		r.Group(func(r chi.Router) {
			r.Use(chatLimiter.Middleware)
			r.Post("/chat", chatHandler.Chat)
			r.Post("/chat/stream", chatHandler.ChatStream)
			r.Post("/chat/details", chatHandler.Details)
			r.Post("/suggestions", chatHandler.Suggestions)
		})

		r.Get("/chat/ws", streamHub.HandleStream)
	})

	return r
}
