package napoleon

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is wrapped by Score for any malformed input: wrong
// player count, duplicate ids, or roles outside the roster.
var ErrInvalidInput = errors.New("invalid input")

// rates holds the scoring coefficients for one (playerCount, mode) cell.
// Success pays base + per·extraTricks, failure charges per-short-trick
// rates. Every cell is constructed so a round sums to zero.
type rates struct {
	napBase, napPer int
	secBase, secPer int
	defBase, defPer int

	napShort, secShort, defShort int
}

type ruleKey struct {
	players  int
	dictator bool
}

var ruleTable = map[ruleKey]rates{
	{players: 5, dictator: false}: {
		napBase: 100, napPer: 20,
		secBase: 50, secPer: 10,
		defBase: -50, defPer: -10,
		napShort: -40, secShort: -20, defShort: 20,
	},
	{players: 5, dictator: true}: {
		napBase: 400, napPer: 40,
		defBase: -100, defPer: -10,
		napShort: -40, defShort: 10,
	},
	{players: 4, dictator: false}: {
		napBase: 100, napPer: 20,
		secBase: 50, secPer: 10,
		defBase: -75, defPer: -15,
		napShort: -40, secShort: -20, defShort: 30,
	},
	{players: 4, dictator: true}: {
		napBase: 300, napPer: 30,
		defBase: -100, defPer: -10,
		napShort: -45, defShort: 15,
	},
}

// ValidatePlayers checks a game roster: exactly 4 or 5 unique ids.
func ValidatePlayers(playerIDs []string) error {
	if len(playerIDs) != 4 && len(playerIDs) != 5 {
		return fmt.Errorf("%w: need 4 or 5 players, got %d", ErrInvalidInput, len(playerIDs))
	}
	seen := make(map[string]bool, len(playerIDs))
	for _, id := range playerIDs {
		if id == "" {
			return fmt.Errorf("%w: empty player id", ErrInvalidInput)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate player id %q", ErrInvalidInput, id)
		}
		seen[id] = true
	}
	return nil
}

// Score computes the score vector of one round. Pure and deterministic:
// the same input always yields the same map, and the map sums to zero.
//
// A round where the Napoleon and the Secretary coincide is a Dictator
// round regardless of the marked contract type.
func Score(in RoundInput, playerIDs []string) (ScoreMap, error) {
	if err := ValidatePlayers(playerIDs); err != nil {
		return nil, err
	}
	roster := make(map[string]bool, len(playerIDs))
	for _, id := range playerIDs {
		roster[id] = true
	}
	if !roster[in.NapoleonID] {
		return nil, fmt.Errorf("%w: napoleon %q not in game", ErrInvalidInput, in.NapoleonID)
	}
	if !roster[in.PartnerID] {
		return nil, fmt.Errorf("%w: secretary %q not in game", ErrInvalidInput, in.PartnerID)
	}
	if in.ContractType != ContractStandard && in.ContractType != ContractDictator {
		return nil, fmt.Errorf("%w: unknown contract type %q", ErrInvalidInput, in.ContractType)
	}
	if in.ContractType == ContractDictator && in.PartnerID != in.NapoleonID {
		return nil, fmt.Errorf("%w: dictator contract with a separate secretary", ErrInvalidInput)
	}

	dictator := in.ContractType == ContractDictator || in.NapoleonID == in.PartnerID

	r, ok := ruleTable[ruleKey{players: len(playerIDs), dictator: dictator}]
	if !ok {
		return nil, fmt.Errorf("%w: no rule table for %d players", ErrInvalidInput, len(playerIDs))
	}

	extra := 0
	short := 0
	if in.TrickMargin >= 0 {
		extra = in.TrickMargin
	} else {
		short = -in.TrickMargin
	}

	scores := make(ScoreMap, len(playerIDs))
	for _, id := range playerIDs {
		switch {
		case id == in.NapoleonID:
			if short == 0 {
				scores[id] = r.napBase + r.napPer*extra
			} else {
				scores[id] = r.napShort * short
			}
		case !dictator && id == in.PartnerID:
			if short == 0 {
				scores[id] = r.secBase + r.secPer*extra
			} else {
				scores[id] = r.secShort * short
			}
		default:
			if short == 0 {
				scores[id] = r.defBase + r.defPer*extra
			} else {
				scores[id] = r.defShort * short
			}
		}
	}
	return scores, nil
}

// SumRounds folds round score vectors into running totals for the given
// roster. Players with no entries end up at zero, the initial state of a
// fresh game. This is the single source of truth after any history
// mutation: totals are always reproducible as the sum of all rounds.
func SumRounds(playerIDs []string, rounds []ScoreMap) ScoreMap {
	totals := make(ScoreMap, len(playerIDs))
	for _, id := range playerIDs {
		totals[id] = 0
	}
	for _, round := range rounds {
		for id, v := range round {
			totals[id] += v
		}
	}
	return totals
}
