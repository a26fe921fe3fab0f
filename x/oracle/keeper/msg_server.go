package keeper

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dsc-chain/metrics"
	"github.com/openalpha/dsc-chain/x/oracle/types"
)

type msgServer struct {
	*Keeper
}

// NewMsgServerImpl returns an implementation of the MsgServer interface
func NewMsgServerImpl(keeper *Keeper) types.MsgServer {
	return &msgServer{Keeper: keeper}
}

var _ types.MsgServer = msgServer{}

// RegisterFeed handles MsgRegisterFeed
func (m msgServer) RegisterFeed(goCtx context.Context, msg *types.MsgRegisterFeed) (*types.MsgRegisterFeedResponse, error) {
	ctx := sdk.UnwrapSDKContext(goCtx)

	if msg.Authority != m.GetAuthority() {
		return nil, errorsmod.Wrapf(types.ErrUnauthorized, "expected %s, got %s", m.GetAuthority(), msg.Authority)
	}
	if err := m.Keeper.RegisterFeed(ctx, msg.Feed); err != nil {
		return nil, err
	}
	return &types.MsgRegisterFeedResponse{}, nil
}

// SubmitRound handles MsgSubmitRound
func (m msgServer) SubmitRound(goCtx context.Context, msg *types.MsgSubmitRound) (*types.MsgSubmitRoundResponse, error) {
	ctx := sdk.UnwrapSDKContext(goCtx)

	round, err := m.Keeper.SubmitRound(ctx, msg.Reporter, msg.FeedID, msg.Answer, msg.StartedAt)
	if err != nil {
		return nil, err
	}
	if feed, found := m.GetFeed(ctx, msg.FeedID); found {
		metrics.GetCollector().RecordOracleRound(feed.FeedID, round.Answer, feed.Decimals)
	}
	return &types.MsgSubmitRoundResponse{RoundID: round.RoundID}, nil
}
