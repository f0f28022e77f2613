package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, store Store, db *sql.DB, rdb *redis.Client) {
	broker := NewBroker()
	ledger := NewLedger(store)
	cache := newStatsCache(rdb)

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Napoleon Scorekeeper API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))

	r.Post("/api/auth/register", handleRegister(store))
	r.Post("/api/auth/login", handleLogin(store))

	// SSE auth goes through the token query parameter, so the stream
	// route stays outside the Bearer middleware.
	r.Get("/api/games/{gameID}/events", handleEvents(store, broker))

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(store))

		r.Post("/auth/logout", handleLogout(store))
		r.Get("/me", handleMe())
		r.Get("/users", handleListUsers(store))

		r.Post("/games", handleCreateGame(store))
		r.Get("/games", handleListGames(store))
		r.Get("/games/current", handleCurrentGame(store))
		r.Get("/games/{gameID}", handleGetGame(store))
		r.Post("/games/{gameID}/finish", handleFinishGame(store, broker, cache))
		r.Post("/games/{gameID}/rounds", handleAddRound(ledger, broker))

		r.Get("/seasons", handleListSeasons(store))
		r.Get("/seasons/active", handleActiveSeason(store))
		r.Get("/seasons/{seasonID}/stats", handleSeasonStats(logger, store, cache))

		// Corrections and lifecycle management are admin-only.
		r.Group(func(r chi.Router) {
			r.Use(adminMiddleware)

			r.Put("/users/{userID}", handleUpdateUser(store))
			r.Delete("/users/{userID}", handleDeleteUser(store))

			r.Put("/games/{gameID}/stake", handleUpdateStake(store, broker))
			r.Delete("/games/{gameID}", handleDeleteGame(store, cache))
			r.Put("/games/{gameID}/rounds/{roundID}", handleEditRound(ledger, broker))
			r.Delete("/games/{gameID}/rounds/{roundID}", handleDeleteRound(ledger, broker))

			r.Post("/seasons", handleCreateSeason(store))
			r.Post("/seasons/{seasonID}/end", handleEndSeason(store))
		})
	})
}
