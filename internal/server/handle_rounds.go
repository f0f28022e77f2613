package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/napoleonhq/scorekeeper/internal/napoleon"
)

// RoundRequest is the body for appending or editing a round. Scores are
// never accepted from the client; they are derived by the rule engine.
type RoundRequest struct {
	NapoleonID   string `json:"napoleonId"`
	SecretaryID  string `json:"secretaryId"`
	ContractType string `json:"contractType"`
	TrickMargin  int    `json:"trickMargin"`
}

type RoundResponse struct {
	ID           string         `json:"id"`
	NapoleonID   string         `json:"napoleonId"`
	SecretaryID  string         `json:"secretaryId"`
	ContractType string         `json:"contractType"`
	TrickMargin  int            `json:"trickMargin"`
	Scores       map[string]int `json:"scores"`
	CreatedAt    string         `json:"createdAt"`
	UpdatedAt    string         `json:"updatedAt,omitempty"`
}

func toRoundResponse(r roundDoc) RoundResponse {
	return RoundResponse{
		ID:           r.ID,
		NapoleonID:   r.NapoleonID,
		SecretaryID:  r.SecretaryID,
		ContractType: string(r.ContractType),
		TrickMargin:  r.TrickMargin,
		Scores:       r.Scores,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (req *RoundRequest) toInput() napoleon.RoundInput {
	req.NapoleonID = strings.TrimSpace(req.NapoleonID)
	req.SecretaryID = strings.TrimSpace(req.SecretaryID)
	if req.ContractType == "" {
		req.ContractType = string(napoleon.ContractStandard)
	}
	return napoleon.RoundInput{
		ContractType: napoleon.ContractType(req.ContractType),
		NapoleonID:   req.NapoleonID,
		PartnerID:    req.SecretaryID,
		TrickMargin:  req.TrickMargin,
	}
}

func handleAddRound(ledger *Ledger, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RoundRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		gameID := chi.URLParam(r, "gameID")
		round, err := ledger.Append(r.Context(), gameID, req.toInput())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		broker.Publish(gameID, GameEvent{Type: eventRoundAdded, RoundID: round.ID})

		writeJSON(w, http.StatusCreated, toRoundResponse(round))
	}
}

func handleEditRound(ledger *Ledger, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RoundRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		gameID := chi.URLParam(r, "gameID")
		roundID := chi.URLParam(r, "roundID")
		round, err := ledger.Edit(r.Context(), gameID, roundID, req.toInput())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		broker.Publish(gameID, GameEvent{Type: eventRoundUpdated, RoundID: roundID})

		writeJSON(w, http.StatusOK, toRoundResponse(round))
	}
}

func handleDeleteRound(ledger *Ledger, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		roundID := chi.URLParam(r, "roundID")

		if err := ledger.Delete(r.Context(), gameID, roundID); err != nil {
			writeDomainError(w, err)
			return
		}

		broker.Publish(gameID, GameEvent{Type: eventRoundDeleted, RoundID: roundID})

		w.WriteHeader(http.StatusNoContent)
	}
}

