package types

import (
	"fmt"
	"strings"

	"cosmossdk.io/math"
)

// Feed describes a price source. Answers are reported with Decimals digits.
type Feed struct {
	FeedID      string `json:"feed_id"`
	Description string `json:"description"`
	Decimals    uint32 `json:"decimals"`
}

// Validate checks the feed definition
func (f Feed) Validate() error {
	if strings.TrimSpace(f.FeedID) == "" {
		return fmt.Errorf("%w: empty feed id", ErrInvalidFeed)
	}
	if strings.Contains(f.FeedID, "/") {
		return fmt.Errorf("%w: feed id %q contains '/'", ErrInvalidFeed, f.FeedID)
	}
	if f.Decimals > 36 {
		return fmt.Errorf("%w: decimals %d out of range", ErrInvalidFeed, f.Decimals)
	}
	return nil
}

// RoundData is one published answer of a feed. Answer is signed: reporters
// may publish a negative value and consumers decide how to treat it.
type RoundData struct {
	FeedID          string   `json:"feed_id"`
	RoundID         uint64   `json:"round_id"`
	Answer          math.Int `json:"answer"`
	StartedAt       int64    `json:"started_at"`
	UpdatedAt       int64    `json:"updated_at"`
	AnsweredInRound uint64   `json:"answered_in_round"`
}
