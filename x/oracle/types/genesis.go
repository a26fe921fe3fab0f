package types

import (
	"fmt"
)

// GenesisState defines the oracle module's genesis state
type GenesisState struct {
	// Reporters may submit rounds; the module authority always may.
	Reporters []string    `json:"reporters"`
	Feeds     []Feed      `json:"feeds"`
	Rounds    []RoundData `json:"rounds"`
}

// DefaultGenesis returns the default genesis state
func DefaultGenesis() *GenesisState {
	return &GenesisState{
		Reporters: []string{},
		Feeds:     []Feed{},
		Rounds:    []RoundData{},
	}
}

// Validate performs basic genesis state validation
func (gs GenesisState) Validate() error {
	feeds := make(map[string]bool, len(gs.Feeds))
	for _, feed := range gs.Feeds {
		if err := feed.Validate(); err != nil {
			return err
		}
		if feeds[feed.FeedID] {
			return fmt.Errorf("%w: duplicate feed %s", ErrInvalidGenesis, feed.FeedID)
		}
		feeds[feed.FeedID] = true
	}

	seen := make(map[string]uint64)
	for _, round := range gs.Rounds {
		if !feeds[round.FeedID] {
			return fmt.Errorf("%w: round for unknown feed %s", ErrInvalidGenesis, round.FeedID)
		}
		if round.Answer.IsNil() {
			return fmt.Errorf("%w: round %d of %s has no answer", ErrInvalidGenesis, round.RoundID, round.FeedID)
		}
		if last, ok := seen[round.FeedID]; ok && round.RoundID <= last {
			return fmt.Errorf("%w: rounds of %s must be strictly increasing", ErrInvalidGenesis, round.FeedID)
		}
		seen[round.FeedID] = round.RoundID
	}
	return nil
}
