package types

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
)

// MsgServer defines the oracle module's write operations, served by the
// dscapi gateway
type MsgServer interface {
	RegisterFeed(context.Context, *MsgRegisterFeed) (*MsgRegisterFeedResponse, error)
	SubmitRound(context.Context, *MsgSubmitRound) (*MsgSubmitRoundResponse, error)
}

// MsgRegisterFeed adds a new price feed
type MsgRegisterFeed struct {
	Authority string `json:"authority"`
	Feed      Feed   `json:"feed"`
}

// ValidateBasic performs stateless checks
func (msg *MsgRegisterFeed) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Authority); err != nil {
		return sdkerrors.ErrInvalidAddress.Wrapf("invalid authority address: %s", err)
	}
	return msg.Feed.Validate()
}

// MsgRegisterFeedResponse is the response for MsgRegisterFeed
type MsgRegisterFeedResponse struct{}

// MsgSubmitRound publishes a new answer for a feed
type MsgSubmitRound struct {
	Reporter  string   `json:"reporter"`
	FeedID    string   `json:"feed_id"`
	Answer    math.Int `json:"answer"`
	StartedAt int64    `json:"started_at"`
}

// ValidateBasic performs stateless checks
func (msg *MsgSubmitRound) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Reporter); err != nil {
		return sdkerrors.ErrInvalidAddress.Wrapf("invalid reporter address: %s", err)
	}
	if msg.FeedID == "" {
		return ErrInvalidFeed.Wrap("empty feed id")
	}
	if msg.Answer.IsNil() {
		return ErrInvalidAnswer.Wrap("answer is required")
	}
	return nil
}

// MsgSubmitRoundResponse is the response for MsgSubmitRound
type MsgSubmitRoundResponse struct {
	RoundID uint64 `json:"round_id"`
}
