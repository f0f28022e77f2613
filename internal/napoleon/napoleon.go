// Package napoleon defines the core domain types and the scoring rules
// for the Napoleon trick-taking card game. It has zero external
// dependencies — everything here is pure Go.
package napoleon

// ContractType selects the scoring mode of a round.
type ContractType string

const (
	// ContractStandard is the regular contract: the Napoleon plays with a
	// Secretary against the remaining defenders.
	ContractStandard ContractType = "standard"
	// ContractDictator is the solo contract: the Napoleon plays alone
	// against everyone else, at steeper stakes.
	ContractDictator ContractType = "dictator"
)

// GameStatus is the lifecycle state of a game.
type GameStatus string

const (
	GameOngoing  GameStatus = "ongoing"
	GameFinished GameStatus = "finished"
)

// ScoreMap maps a player id to a signed score. A valid round score map
// always sums to zero across its players.
type ScoreMap map[string]int

// Sum returns the total of all values in the map. Zero for any score map
// produced by Score.
func (m ScoreMap) Sum() int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

// RoundInput is everything needed to score one round. PartnerID equals
// NapoleonID when the Napoleon plays alone.
type RoundInput struct {
	ContractType ContractType
	NapoleonID   string
	PartnerID    string
	TrickMargin  int
}
