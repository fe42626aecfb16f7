package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/worldcup-predictor/handlers"
	"github.com/Dosada05/worldcup-predictor/middleware"
	"github.com/Dosada05/worldcup-predictor/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

type Handlers struct {
	Bracket     *handlers.BracketHandler
	Results     *handlers.ResultsHandler
	Leaderboard *handlers.LeaderboardHandler
	Registry    *handlers.RegistryHandler
	WebSocket   *handlers.WebSocketHandler
	Metrics     http.Handler
}

func SetupRoutes(router chi.Router, h Handlers, jwtSecret string, allowedOrigins []string, logger *slog.Logger) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret, logger)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", h.Metrics)

	// WebSocket маршруты без таймаута: соединения долгоживущие.
	router.Get("/ws/leaderboard", h.WebSocket.ServeLeaderboardWs)
	router.With(authenticate).Get("/ws/bracket", h.WebSocket.ServeBracketWs)

	router.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		// Публичные маршруты
		r.Get("/registry", h.Registry.GetRegistry)
		r.Get("/results", h.Results.GetResults)
		r.Get("/leaderboard", h.Leaderboard.GetLeaderboard)

		// Прогноз текущего пользователя
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/submission", h.Bracket.GetSubmission)
			r.Route("/bracket", func(r chi.Router) {
				r.Get("/", h.Bracket.GetBracket)
				r.Put("/groups/{groupID}", h.Bracket.SetGroupOrder)
				r.Post("/third-place/{teamID}", h.Bracket.ToggleThirdPlace)
				r.Put("/matches/{matchID}", h.Bracket.PickWinner)
				r.Delete("/matches/{matchID}", h.Bracket.ClearPick)
				r.Post("/submit", h.Bracket.Submit)
			})
		})

		// Официальные результаты, только администраторы
		r.Route("/admin/results", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))

			r.Put("/groups/{groupID}", h.Results.RecordGroupStanding)
			r.Put("/third-place", h.Results.RecordThirdPlaceQualifiers)
			r.Put("/matches/{matchID}", h.Results.RecordMatchWinner)
		})
	})
}
