package server

import (
	"context"
	"errors"
	"testing"

	"github.com/napoleonhq/scorekeeper/internal/database"
	"github.com/napoleonhq/scorekeeper/internal/migrations"
	"github.com/napoleonhq/scorekeeper/internal/napoleon"
)

func setupStore(t *testing.T) *DocStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrations.Run(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewDocStore(db)
}

var fiveRoster = []string{"alice", "bob", "carol", "dave", "erin"}

func seedGame(t *testing.T, store *DocStore, players []string) gameDoc {
	t.Helper()

	scores := make(napoleon.ScoreMap, len(players))
	for _, p := range players {
		scores[p] = 0
	}
	g := gameDoc{
		ID:              newID(),
		Players:         players,
		StakeMultiplier: 1,
		Scores:          scores,
		Status:          napoleon.GameOngoing,
		CreatedAt:       nowUTC(),
	}
	if err := store.CreateGame(context.Background(), g); err != nil {
		t.Fatalf("create game: %v", err)
	}
	return g
}

func mustAppend(t *testing.T, ledger *Ledger, gameID string, in napoleon.RoundInput) roundDoc {
	t.Helper()
	r, err := ledger.Append(context.Background(), gameID, in)
	if err != nil {
		t.Fatalf("append round: %v", err)
	}
	return r
}

func gameTotals(t *testing.T, store *DocStore, gameID string) napoleon.ScoreMap {
	t.Helper()
	g, err := store.GetGame(context.Background(), gameID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	return g.Scores
}

func TestAppendAccumulatesTotals(t *testing.T) {
	store := setupStore(t)
	ledger := NewLedger(store)
	g := seedGame(t, store, fiveRoster)

	// Standard success by 2: alice +140, bob +70, defenders -70 each.
	mustAppend(t, ledger, g.ID, napoleon.RoundInput{
		ContractType: napoleon.ContractStandard,
		NapoleonID:   "alice",
		PartnerID:    "bob",
		TrickMargin:  2,
	})
	// Standard fail by 1: alice -40, bob -20, defenders +20 each.
	mustAppend(t, ledger, g.ID, napoleon.RoundInput{
		ContractType: napoleon.ContractStandard,
		NapoleonID:   "alice",
		PartnerID:    "bob",
		TrickMargin:  -1,
	})

	totals := gameTotals(t, store, g.ID)
	want := napoleon.ScoreMap{"alice": 100, "bob": 50, "carol": -50, "dave": -50, "erin": -50}
	for p, s := range want {
		if totals[p] != s {
			t.Errorf("totals[%s] = %d, want %d", p, totals[p], s)
		}
	}
	if totals.Sum() != 0 {
		t.Errorf("totals sum = %d, want 0", totals.Sum())
	}
}

func TestDeleteMiddleRoundRecomputes(t *testing.T) {
	store := setupStore(t)
	ledger := NewLedger(store)
	g := seedGame(t, store, fiveRoster)

	r1 := napoleon.RoundInput{ContractType: napoleon.ContractStandard, NapoleonID: "alice", PartnerID: "bob", TrickMargin: 1}
	r2 := napoleon.RoundInput{ContractType: napoleon.ContractStandard, NapoleonID: "carol", PartnerID: "dave", TrickMargin: 3}
	r3 := napoleon.RoundInput{ContractType: napoleon.ContractStandard, NapoleonID: "erin", PartnerID: "alice", TrickMargin: -2}

	mustAppend(t, ledger, g.ID, r1)
	second := mustAppend(t, ledger, g.ID, r2)
	mustAppend(t, ledger, g.ID, r3)

	if err := ledger.Delete(context.Background(), g.ID, second.ID); err != nil {
		t.Fatalf("delete round: %v", err)
	}

	// Totals must equal the sum of rounds 1 and 3 alone.
	s1, _ := napoleon.Score(r1, fiveRoster)
	s3, _ := napoleon.Score(r3, fiveRoster)
	want := napoleon.SumRounds(fiveRoster, []napoleon.ScoreMap{s1, s3})

	totals := gameTotals(t, store, g.ID)
	for _, p := range fiveRoster {
		if totals[p] != want[p] {
			t.Errorf("totals[%s] = %d, want %d", p, totals[p], want[p])
		}
	}

	rounds, err := store.ListRounds(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("list rounds: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("expected 2 rounds after delete, got %d", len(rounds))
	}
}

func TestEditRoundRecomputes(t *testing.T) {
	store := setupStore(t)
	ledger := NewLedger(store)
	g := seedGame(t, store, fiveRoster)

	orig := mustAppend(t, ledger, g.ID, napoleon.RoundInput{
		ContractType: napoleon.ContractStandard,
		NapoleonID:   "alice",
		PartnerID:    "bob",
		TrickMargin:  2,
	})

	// Correct the margin: the success becomes a failure.
	edited, err := ledger.Edit(context.Background(), g.ID, orig.ID, napoleon.RoundInput{
		ContractType: napoleon.ContractStandard,
		NapoleonID:   "alice",
		PartnerID:    "bob",
		TrickMargin:  -2,
	})
	if err != nil {
		t.Fatalf("edit round: %v", err)
	}

	if edited.ID != orig.ID {
		t.Errorf("edited round ID = %s, want %s", edited.ID, orig.ID)
	}
	if edited.CreatedAt != orig.CreatedAt {
		t.Errorf("edit must preserve createdAt, got %s want %s", edited.CreatedAt, orig.CreatedAt)
	}
	if edited.UpdatedAt == "" {
		t.Error("edit must set updatedAt")
	}

	totals := gameTotals(t, store, g.ID)
	want := napoleon.ScoreMap{"alice": -80, "bob": -40, "carol": 40, "dave": 40, "erin": 40}
	for p, s := range want {
		if totals[p] != s {
			t.Errorf("totals[%s] = %d, want %d", p, totals[p], s)
		}
	}
}

func TestEditMissingRound(t *testing.T) {
	store := setupStore(t)
	ledger := NewLedger(store)
	g := seedGame(t, store, fiveRoster)

	_, err := ledger.Edit(context.Background(), g.ID, "nope", napoleon.RoundInput{
		ContractType: napoleon.ContractStandard,
		NapoleonID:   "alice",
		PartnerID:    "bob",
		TrickMargin:  1,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	store := setupStore(t)
	ledger := NewLedger(store)
	g := seedGame(t, store, fiveRoster)

	mustAppend(t, ledger, g.ID, napoleon.RoundInput{
		ContractType: napoleon.ContractDictator,
		NapoleonID:   "alice",
		PartnerID:    "alice",
		TrickMargin:  1,
	})

	first, err := ledger.Recompute(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	second, err := ledger.Recompute(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("recompute again: %v", err)
	}

	for _, p := range fiveRoster {
		if first[p] != second[p] {
			t.Errorf("recompute not idempotent for %s: %d then %d", p, first[p], second[p])
		}
	}
	if stored := gameTotals(t, store, g.ID); stored["alice"] != first["alice"] {
		t.Errorf("stored totals diverge from recompute: %d vs %d", stored["alice"], first["alice"])
	}
}

func TestMutationsRejectedOnFinishedGame(t *testing.T) {
	store := setupStore(t)
	ledger := NewLedger(store)
	g := seedGame(t, store, fiveRoster)

	appended := mustAppend(t, ledger, g.ID, napoleon.RoundInput{
		ContractType: napoleon.ContractStandard,
		NapoleonID:   "alice",
		PartnerID:    "bob",
		TrickMargin:  1,
	})

	now := nowUTC()
	if err := store.SetGameStatus(context.Background(), g.ID, napoleon.GameFinished, &now); err != nil {
		t.Fatalf("finish game: %v", err)
	}

	in := napoleon.RoundInput{ContractType: napoleon.ContractStandard, NapoleonID: "alice", PartnerID: "bob", TrickMargin: 1}

	if _, err := ledger.Append(context.Background(), g.ID, in); !errors.Is(err, ErrConflict) {
		t.Errorf("append on finished game: expected ErrConflict, got %v", err)
	}
	if _, err := ledger.Edit(context.Background(), g.ID, appended.ID, in); !errors.Is(err, ErrConflict) {
		t.Errorf("edit on finished game: expected ErrConflict, got %v", err)
	}
	if err := ledger.Delete(context.Background(), g.ID, appended.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("delete on finished game: expected ErrConflict, got %v", err)
	}
}

// incrementFailStore rejects every totals increment, so appends must
// fall back to recomputation to stay consistent.
type incrementFailStore struct {
	Store
}

func (s *incrementFailStore) IncrementGameTotals(ctx context.Context, gameID string, delta napoleon.ScoreMap) error {
	return errors.New("simulated write failure")
}

func TestAppendRecoversFromIncrementFailure(t *testing.T) {
	store := setupStore(t)
	g := seedGame(t, store, fiveRoster)
	ledger := NewLedger(&incrementFailStore{Store: store})

	r, err := ledger.Append(context.Background(), g.ID, napoleon.RoundInput{
		ContractType: napoleon.ContractStandard,
		NapoleonID:   "alice",
		PartnerID:    "bob",
		TrickMargin:  2,
	})
	if err != nil {
		t.Fatalf("append with failing increment: %v", err)
	}

	// The round was persisted and the totals match its score vector even
	// though the increment itself never landed.
	rounds, err := store.ListRounds(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("list rounds: %v", err)
	}
	if len(rounds) != 1 || rounds[0].ID != r.ID {
		t.Fatalf("expected the appended round to be persisted, got %d rounds", len(rounds))
	}

	totals := gameTotals(t, store, g.ID)
	want := napoleon.ScoreMap{"alice": 140, "bob": 70, "carol": -70, "dave": -70, "erin": -70}
	for p, s := range want {
		if totals[p] != s {
			t.Errorf("totals[%s] = %d, want %d", p, totals[p], s)
		}
	}
}

func TestAppendRejectsOutsideRoster(t *testing.T) {
	store := setupStore(t)
	ledger := NewLedger(store)
	g := seedGame(t, store, fiveRoster)

	_, err := ledger.Append(context.Background(), g.ID, napoleon.RoundInput{
		ContractType: napoleon.ContractStandard,
		NapoleonID:   "mallory",
		PartnerID:    "bob",
		TrickMargin:  1,
	})
	if !errors.Is(err, napoleon.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	// Nothing may have been persisted.
	rounds, _ := store.ListRounds(context.Background(), g.ID)
	if len(rounds) != 0 {
		t.Fatalf("expected no rounds after rejected append, got %d", len(rounds))
	}
}
