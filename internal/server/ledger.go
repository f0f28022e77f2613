package server

import (
	"context"
	"fmt"

	"github.com/napoleonhq/scorekeeper/internal/napoleon"
)

// Ledger keeps one game's running totals consistent with its round
// history. Appending increments totals by the new round's score vector;
// editing or deleting recomputes totals from the full history rather
// than applying a differential update, so after any mutation the totals
// are reproducible as the sum of all current rounds.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// ongoingGame loads the game and rejects any mutation target that is no
// longer ongoing.
func (l *Ledger) ongoingGame(ctx context.Context, gameID string) (gameDoc, error) {
	g, err := l.store.GetGame(ctx, gameID)
	if err != nil {
		return gameDoc{}, err
	}
	if g.Status != napoleon.GameOngoing {
		return gameDoc{}, fmt.Errorf("%w: game is finished", ErrConflict)
	}
	return g, nil
}

// Append scores a round against the game's roster, persists it, and
// increments the running totals by exactly the round's deltas.
func (l *Ledger) Append(ctx context.Context, gameID string, in napoleon.RoundInput) (roundDoc, error) {
	g, err := l.ongoingGame(ctx, gameID)
	if err != nil {
		return roundDoc{}, err
	}

	scores, err := napoleon.Score(in, g.Players)
	if err != nil {
		return roundDoc{}, err
	}

	r := roundDoc{
		ID:           newID(),
		NapoleonID:   in.NapoleonID,
		SecretaryID:  in.PartnerID,
		ContractType: in.ContractType,
		TrickMargin:  in.TrickMargin,
		Scores:       scores,
		CreatedAt:    nowUTC(),
	}
	if err := l.store.AppendRound(ctx, gameID, r); err != nil {
		return roundDoc{}, err
	}
	if err := l.store.IncrementGameTotals(ctx, gameID, scores); err != nil {
		// The round is already persisted. Rebuild totals from the history
		// so a failed increment cannot leave them stale; only report the
		// failure if the rebuild cannot restore consistency either.
		if _, rerr := l.Recompute(ctx, gameID); rerr != nil {
			return roundDoc{}, err
		}
	}
	return r, nil
}

// Edit rescores an existing round from new inputs, replaces it in the
// history, and recomputes the game totals from scratch.
func (l *Ledger) Edit(ctx context.Context, gameID, roundID string, in napoleon.RoundInput) (roundDoc, error) {
	g, err := l.ongoingGame(ctx, gameID)
	if err != nil {
		return roundDoc{}, err
	}

	scores, err := napoleon.Score(in, g.Players)
	if err != nil {
		return roundDoc{}, err
	}

	existing, err := l.findRound(ctx, gameID, roundID)
	if err != nil {
		return roundDoc{}, err
	}

	r := roundDoc{
		ID:           roundID,
		NapoleonID:   in.NapoleonID,
		SecretaryID:  in.PartnerID,
		ContractType: in.ContractType,
		TrickMargin:  in.TrickMargin,
		Scores:       scores,
		CreatedAt:    existing.CreatedAt,
		UpdatedAt:    nowUTC(),
	}
	if err := l.store.ReplaceRound(ctx, gameID, roundID, r); err != nil {
		return roundDoc{}, err
	}
	if _, err := l.Recompute(ctx, gameID); err != nil {
		return roundDoc{}, err
	}
	return r, nil
}

// Delete removes a round from the history and recomputes the game
// totals from scratch.
func (l *Ledger) Delete(ctx context.Context, gameID, roundID string) error {
	if _, err := l.ongoingGame(ctx, gameID); err != nil {
		return err
	}
	if err := l.store.DeleteRound(ctx, gameID, roundID); err != nil {
		return err
	}
	_, err := l.Recompute(ctx, gameID)
	return err
}

// Recompute folds the game's round history in creation order and writes
// the result as the new running totals. Idempotent.
func (l *Ledger) Recompute(ctx context.Context, gameID string) (napoleon.ScoreMap, error) {
	g, err := l.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	rounds, err := l.store.ListRounds(ctx, gameID)
	if err != nil {
		return nil, err
	}

	vectors := make([]napoleon.ScoreMap, len(rounds))
	for i, r := range rounds {
		vectors[i] = r.Scores
	}
	totals := napoleon.SumRounds(g.Players, vectors)

	if err := l.store.WriteGameTotals(ctx, gameID, totals); err != nil {
		return nil, err
	}
	return totals, nil
}

func (l *Ledger) findRound(ctx context.Context, gameID, roundID string) (roundDoc, error) {
	rounds, err := l.store.ListRounds(ctx, gameID)
	if err != nil {
		return roundDoc{}, err
	}
	for _, r := range rounds {
		if r.ID == roundID {
			return r, nil
		}
	}
	return roundDoc{}, fmt.Errorf("%w: round %s", ErrNotFound, roundID)
}
