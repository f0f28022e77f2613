package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/napoleonhq/scorekeeper/internal/napoleon"
)

// CreateGameRequest is the body for POST /api/games. The first player
// is the lead by convention. SeasonID defaults to the active season.
type CreateGameRequest struct {
	PlayerIDs       []string `json:"playerIds"`
	StakeMultiplier float64  `json:"stakeMultiplier"`
	SeasonID        string   `json:"seasonId,omitempty"`
}

type GameResponse struct {
	ID              string         `json:"id"`
	Players         []string       `json:"players"`
	LeadPlayerID    string         `json:"leadPlayerId"`
	StakeMultiplier float64        `json:"stakeMultiplier"`
	Scores          map[string]int `json:"scores"`
	Status          string         `json:"status"`
	SeasonID        string         `json:"seasonId,omitempty"`
	CreatedAt       string         `json:"createdAt"`
	FinishedAt      *string        `json:"finishedAt,omitempty"`
}

// GameDetailResponse is a game with its round history in creation order.
type GameDetailResponse struct {
	Game   GameResponse    `json:"game"`
	Rounds []RoundResponse `json:"rounds"`
}

// FinishGameResponse reports the frozen game plus each player's
// monetary result at the stake captured at finish time.
type FinishGameResponse struct {
	Game  GameResponse       `json:"game"`
	Money map[string]float64 `json:"money"`
}

// StakeRequest is the admin body for PUT /api/games/{gameID}/stake.
type StakeRequest struct {
	StakeMultiplier float64 `json:"stakeMultiplier"`
}

func toGameResponse(g gameDoc) GameResponse {
	return GameResponse{
		ID:              g.ID,
		Players:         g.Players,
		LeadPlayerID:    g.LeadPlayerID,
		StakeMultiplier: g.StakeMultiplier,
		Scores:          g.Scores,
		Status:          string(g.Status),
		SeasonID:        g.SeasonID,
		CreatedAt:       g.CreatedAt,
		FinishedAt:      g.FinishedAt,
	}
}

// monetaryResults derives each player's money from final score and
// stake. A view, never a stored field.
func monetaryResults(g gameDoc) map[string]float64 {
	money := make(map[string]float64, len(g.Scores))
	for id, score := range g.Scores {
		money[id] = float64(score) * g.StakeMultiplier
	}
	return money
}

func handleCreateGame(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateGameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := napoleon.ValidatePlayers(req.PlayerIDs); err != nil {
			writeDomainError(w, err)
			return
		}
		if req.StakeMultiplier <= 0 {
			writeError(w, http.StatusBadRequest, "stakeMultiplier must be positive")
			return
		}

		// One ongoing game per player, checked for the whole roster.
		for _, playerID := range req.PlayerIDs {
			ongoing, err := store.QueryGames(r.Context(), GameQuery{
				PlayerID: playerID,
				Status:   napoleon.GameOngoing,
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if len(ongoing) > 0 {
				writeError(w, http.StatusConflict, "player "+playerID+" already has an ongoing game")
				return
			}
		}

		seasonID := req.SeasonID
		if seasonID != "" {
			if _, err := store.GetSeason(r.Context(), seasonID); err != nil {
				writeDomainError(w, err)
				return
			}
		} else {
			season, err := store.ActiveSeason(r.Context())
			switch {
			case err == nil:
				seasonID = season.ID
			case errors.Is(err, ErrNotFound):
				// No active season: the game stays unranked.
			default:
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}

		scores := make(napoleon.ScoreMap, len(req.PlayerIDs))
		for _, id := range req.PlayerIDs {
			scores[id] = 0
		}

		g := gameDoc{
			ID:              newID(),
			Players:         req.PlayerIDs,
			LeadPlayerID:    req.PlayerIDs[0],
			StakeMultiplier: req.StakeMultiplier,
			Scores:          scores,
			Status:          napoleon.GameOngoing,
			SeasonID:        seasonID,
			CreatedAt:       nowUTC(),
		}
		if err := store.CreateGame(r.Context(), g); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, toGameResponse(g))
	}
}

// handleCurrentGame resumes the caller's ongoing game, if any.
func handleCurrentGame(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		games, err := store.QueryGames(r.Context(), GameQuery{
			PlayerID: userFrom(r).ID,
			Status:   napoleon.GameOngoing,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if len(games) == 0 {
			writeError(w, http.StatusNotFound, "no ongoing game")
			return
		}

		detail, err := gameDetail(r, store, games[0])
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func handleListGames(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := GameQuery{
			PlayerID: r.URL.Query().Get("playerId"),
			SeasonID: r.URL.Query().Get("seasonId"),
		}
		switch status := r.URL.Query().Get("status"); status {
		case "":
		case string(napoleon.GameOngoing), string(napoleon.GameFinished):
			q.Status = napoleon.GameStatus(status)
		default:
			writeError(w, http.StatusBadRequest, "status must be ongoing or finished")
			return
		}

		games, err := store.QueryGames(r.Context(), q)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := []GameResponse{}
		for _, g := range games {
			resp = append(resp, toGameResponse(g))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGetGame(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := store.GetGame(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		detail, err := gameDetail(r, store, g)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func gameDetail(r *http.Request, store Store, g gameDoc) (GameDetailResponse, error) {
	rounds, err := store.ListRounds(r.Context(), g.ID)
	if err != nil {
		return GameDetailResponse{}, err
	}
	resp := GameDetailResponse{
		Game:   toGameResponse(g),
		Rounds: []RoundResponse{},
	}
	for _, rd := range rounds {
		resp.Rounds = append(resp.Rounds, toRoundResponse(rd))
	}
	return resp, nil
}

// handleFinishGame freezes a game: totals become immutable and the
// stake in force now is the one used for money from here on.
func handleFinishGame(store Store, broker *Broker, cache *statsCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")

		g, err := store.GetGame(r.Context(), gameID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if g.Status != napoleon.GameOngoing {
			writeError(w, http.StatusConflict, "game is already finished")
			return
		}

		finishedAt := nowUTC()
		if err := store.SetGameStatus(r.Context(), gameID, napoleon.GameFinished, &finishedAt); err != nil {
			writeDomainError(w, err)
			return
		}
		g.Status = napoleon.GameFinished
		g.FinishedAt = &finishedAt

		broker.Publish(gameID, GameEvent{Type: eventGameFinished})
		cache.invalidate(r.Context(), g.SeasonID)

		writeJSON(w, http.StatusOK, FinishGameResponse{
			Game:  toGameResponse(g),
			Money: monetaryResults(g),
		})
	}
}

// handleUpdateStake changes an ongoing game's stake multiplier. Finished
// games keep the stake captured at finish time.
func handleUpdateStake(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StakeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.StakeMultiplier <= 0 {
			writeError(w, http.StatusBadRequest, "stakeMultiplier must be positive")
			return
		}

		gameID := chi.URLParam(r, "gameID")
		g, err := store.GetGame(r.Context(), gameID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if g.Status != napoleon.GameOngoing {
			writeError(w, http.StatusConflict, "cannot change stake of a finished game")
			return
		}

		if err := store.SetGameStake(r.Context(), gameID, req.StakeMultiplier); err != nil {
			writeDomainError(w, err)
			return
		}
		g.StakeMultiplier = req.StakeMultiplier

		broker.Publish(gameID, GameEvent{Type: eventStakeUpdated})
		writeJSON(w, http.StatusOK, toGameResponse(g))
	}
}

// handleDeleteGame removes a finished game and its rounds entirely. An
// ongoing game must be finished first; its ledger is still live.
func handleDeleteGame(store Store, cache *statsCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")

		g, err := store.GetGame(r.Context(), gameID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if g.Status != napoleon.GameFinished {
			writeError(w, http.StatusConflict, "cannot delete an ongoing game")
			return
		}

		if err := store.DeleteGame(r.Context(), gameID); err != nil {
			writeDomainError(w, err)
			return
		}
		cache.invalidate(r.Context(), g.SeasonID)
		w.WriteHeader(http.StatusNoContent)
	}
}
