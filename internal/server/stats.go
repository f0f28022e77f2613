package server

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/napoleonhq/scorekeeper/internal/napoleon"
)

// PlayerSeasonStat is one player's cumulative record across a season's
// finished games. Derived on demand, never stored.
type PlayerSeasonStat struct {
	PlayerID      string  `json:"playerId"`
	TotalScore    int     `json:"totalScore"`
	TotalMoney    float64 `json:"totalMoney"`
	GamesPlayed   int     `json:"gamesPlayed"`
	Wins          int     `json:"wins"`
	NapoleonCount int     `json:"napoleonCount"`
	NapoleonWins  int     `json:"napoleonWins"`
}

// SeasonStats is the aggregated report for one season. Players absent
// from every finished game of the season do not appear at all.
type SeasonStats struct {
	SeasonID   string                       `json:"seasonId"`
	SeasonName string                       `json:"seasonName"`
	Players    map[string]*PlayerSeasonStat `json:"players"`
	GamesTotal int                          `json:"gamesTotal"`
	// PartialGames counts finished games whose round history failed to
	// load; they contribute game-level totals but no napoleon stats.
	PartialGames int `json:"partialGames"`
}

// computeSeasonStats folds every finished game tagged with seasonID into
// a per-player report. Round histories are fetched concurrently; a
// failed fetch degrades that one game's contribution instead of
// aborting the whole computation.
func computeSeasonStats(ctx context.Context, logger *slog.Logger, store Store, seasonID string) (SeasonStats, error) {
	season, err := store.GetSeason(ctx, seasonID)
	if err != nil {
		return SeasonStats{}, err
	}

	games, err := store.QueryGames(ctx, GameQuery{SeasonID: seasonID, Status: napoleon.GameFinished})
	if err != nil {
		return SeasonStats{}, err
	}

	// Independent reads, no ordering requirement between them.
	histories := make([][]roundDoc, len(games))
	failures := make([]error, len(games))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, game := range games {
		g.Go(func() error {
			rounds, err := store.ListRounds(gctx, game.ID)
			if err != nil {
				failures[i] = err
				return nil
			}
			histories[i] = rounds
			return nil
		})
	}
	g.Wait()

	stats := SeasonStats{
		SeasonID:   season.ID,
		SeasonName: season.Name,
		Players:    make(map[string]*PlayerSeasonStat),
		GamesTotal: len(games),
	}

	for i, game := range games {
		addGameTotals(stats.Players, game)
		if failures[i] != nil {
			logger.Warn("season stats: round history unavailable, skipping napoleon stats",
				"season_id", seasonID,
				"game_id", game.ID,
				"error", failures[i],
			)
			stats.PartialGames++
			continue
		}
		addNapoleonStats(stats.Players, histories[i])
	}

	return stats, nil
}

// addGameTotals accumulates one finished game's final scores: games
// played, score, money at the game's stake, and wins for positive
// finishes.
func addGameTotals(players map[string]*PlayerSeasonStat, game gameDoc) {
	for playerID, score := range game.Scores {
		stat := players[playerID]
		if stat == nil {
			stat = &PlayerSeasonStat{PlayerID: playerID}
			players[playerID] = stat
		}
		stat.GamesPlayed++
		stat.TotalScore += score
		stat.TotalMoney += float64(score) * game.StakeMultiplier
		if score > 0 {
			stat.Wins++
		}
	}
}

// addNapoleonStats accumulates lead-role counts from one game's rounds.
// A napoleon win is judged by the round-level score sign, not the game
// outcome.
func addNapoleonStats(players map[string]*PlayerSeasonStat, rounds []roundDoc) {
	for _, r := range rounds {
		stat := players[r.NapoleonID]
		if stat == nil {
			continue
		}
		stat.NapoleonCount++
		if r.Scores[r.NapoleonID] > 0 {
			stat.NapoleonWins++
		}
	}
}
