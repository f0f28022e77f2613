package server

import (
	"context"
	"errors"
	"testing"

	"github.com/napoleonhq/scorekeeper/internal/napoleon"
)

func TestQueryGamesFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	mk := func(players []string, status napoleon.GameStatus, seasonID string) gameDoc {
		g := gameDoc{
			ID:              newID(),
			Players:         players,
			StakeMultiplier: 1,
			Scores:          napoleon.ScoreMap{},
			Status:          status,
			SeasonID:        seasonID,
			CreatedAt:       nowUTC(),
		}
		if err := store.CreateGame(ctx, g); err != nil {
			t.Fatalf("create game: %v", err)
		}
		return g
	}

	a := mk([]string{"alice", "bob", "carol", "dave"}, napoleon.GameOngoing, "")
	b := mk([]string{"erin", "frank", "grace", "heidi"}, napoleon.GameFinished, "s1")
	mk([]string{"erin", "ivan", "judy", "mallory"}, napoleon.GameFinished, "s2")

	got, err := store.QueryGames(ctx, GameQuery{PlayerID: "alice"})
	if err != nil {
		t.Fatalf("query by player: %v", err)
	}
	if len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("query by player: got %d games, want just %s", len(got), a.ID)
	}

	got, err = store.QueryGames(ctx, GameQuery{PlayerID: "erin", Status: napoleon.GameFinished, SeasonID: "s1"})
	if err != nil {
		t.Fatalf("query combined: %v", err)
	}
	if len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("query combined: got %d games, want just %s", len(got), b.ID)
	}

	got, err = store.QueryGames(ctx, GameQuery{Status: napoleon.GameFinished})
	if err != nil {
		t.Fatalf("query by status: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("query by status: got %d games, want 2", len(got))
	}

	// No partial matches on roster membership.
	got, err = store.QueryGames(ctx, GameQuery{PlayerID: "ali"})
	if err != nil {
		t.Fatalf("query by prefix: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("membership filter matched a prefix, got %d games", len(got))
	}
}

func TestReplaceRoundMissing(t *testing.T) {
	store := setupStore(t)
	g := seedGame(t, store, fiveRoster)

	err := store.ReplaceRound(context.Background(), g.ID, "missing", roundDoc{ID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteRound(context.Background(), g.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete missing: expected ErrNotFound, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	u := userDoc{ID: newID(), Email: "s@club.test", DisplayName: "S", Role: "user", CreatedAt: nowUTC()}
	if err := store.CreateUser(ctx, u, "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	token, err := store.CreateSession(ctx, u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := store.SessionUser(ctx, token)
	if err != nil {
		t.Fatalf("session user: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("session user = %s, want %s", got.ID, u.ID)
	}

	if err := store.DeleteSession(ctx, token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := store.SessionUser(ctx, token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestEndActiveSeasonsSweepsAll(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	// Two actives can only happen after a partial failure; the sweep
	// restores the invariant rather than assuming it held.
	seedSeason(t, store, "one")
	seedSeason(t, store, "two")

	if err := store.EndActiveSeasons(ctx, nowUTC()); err != nil {
		t.Fatalf("end active seasons: %v", err)
	}

	if _, err := store.ActiveSeason(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no active season, got %v", err)
	}
	seasons, err := store.ListSeasons(ctx)
	if err != nil {
		t.Fatalf("list seasons: %v", err)
	}
	for _, s := range seasons {
		if s.EndDate == nil {
			t.Errorf("season %s missing endDate after sweep", s.Name)
		}
	}
}
