package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// SeasonRequest is the admin body for POST /api/seasons.
type SeasonRequest struct {
	Name string `json:"name"`
}

type SeasonResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate,omitempty"`
	IsActive  bool    `json:"isActive"`
	CreatedAt string  `json:"createdAt"`
}

func toSeasonResponse(s seasonDoc) SeasonResponse {
	return SeasonResponse{
		ID:        s.ID,
		Name:      s.Name,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
	}
}

func handleListSeasons(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seasons, err := store.ListSeasons(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := []SeasonResponse{}
		for _, s := range seasons {
			resp = append(resp, toSeasonResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleActiveSeason(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		season, err := store.ActiveSeason(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSeasonResponse(season))
	}
}

// handleCreateSeason starts a new active season, ending any currently
// active one first so at most one season is ever active.
func handleCreateSeason(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeasonRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		now := nowUTC()
		if err := store.EndActiveSeasons(r.Context(), now); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		season := seasonDoc{
			ID:        newID(),
			Name:      req.Name,
			StartDate: now,
			IsActive:  true,
			CreatedAt: now,
		}
		if err := store.PutSeason(r.Context(), season); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, toSeasonResponse(season))
	}
}

func handleEndSeason(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		season, err := store.GetSeason(r.Context(), chi.URLParam(r, "seasonID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !season.IsActive {
			writeError(w, http.StatusConflict, "season is not active")
			return
		}

		now := nowUTC()
		season.IsActive = false
		season.EndDate = &now
		if err := store.PutSeason(r.Context(), season); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, toSeasonResponse(season))
	}
}

func handleSeasonStats(logger *slog.Logger, store Store, cache *statsCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seasonID := chi.URLParam(r, "seasonID")

		if stats, ok := cache.get(r.Context(), seasonID); ok {
			writeJSON(w, http.StatusOK, stats)
			return
		}

		stats, err := computeSeasonStats(r.Context(), logger, store, seasonID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		cache.set(r.Context(), seasonID, stats)

		writeJSON(w, http.StatusOK, stats)
	}
}
