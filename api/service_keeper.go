package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"

	"github.com/openalpha/dsc-chain/api/types"
	"github.com/openalpha/dsc-chain/pkg/localchain"
	oraclekeeper "github.com/openalpha/dsc-chain/x/oracle/keeper"
	oracletypes "github.com/openalpha/dsc-chain/x/oracle/types"
	"github.com/openalpha/dsc-chain/x/stablecoin/keeper"
	stabletypes "github.com/openalpha/dsc-chain/x/stablecoin/types"
)

// CollateralConfig seeds one collateral token and its feed in a local engine
type CollateralConfig struct {
	Token  string
	FeedID string
	Price  math.Int // 8-decimal feed answer
}

// DefaultCollateral returns the collateral set of a fresh local engine
func DefaultCollateral() []CollateralConfig {
	return []CollateralConfig{
		{Token: "weth", FeedID: "eth-usd", Price: math.NewInt(2000_00000000)},
		{Token: "wbtc", FeedID: "btc-usd", Price: math.NewInt(60000_00000000)},
	}
}

// Notifier receives engine updates as they happen
type Notifier interface {
	BroadcastEvent(ev *types.Event)
	BroadcastPosition(pos *types.Position)
}

// KeeperService implements EngineService on an in-memory stablecoin keeper
// wired to the oracle keeper. Every mutating call runs as its own block.
type KeeperService struct {
	mu       sync.Mutex
	env      *localchain.Chain
	msgs     stabletypes.MsgServer
	oracle   oracletypes.MsgServer
	queries  *keeper.QueryServer
	journal  *Journal
	notifier Notifier
	logger   log.Logger
}

var _ types.EngineService = (*KeeperService)(nil)

// NewKeeperService builds a local engine with the given collateral
func NewKeeperService(logger log.Logger, collateral []CollateralConfig, journal *Journal) (*KeeperService, error) {
	env, err := localchain.New(logger, nil)
	if err != nil {
		return nil, err
	}
	env.Ctx = env.Ctx.WithBlockTime(time.Now())

	for _, c := range collateral {
		if err := env.AddCollateral(c.Token, c.FeedID, c.Price); err != nil {
			return nil, errorsmod.Wrapf(err, "register collateral %s", c.Token)
		}
	}
	if journal == nil {
		journal = NewJournal(0)
	}

	return &KeeperService{
		env:     env,
		msgs:    keeper.NewMsgServerImpl(env.Keeper),
		oracle:  oraclekeeper.NewMsgServerImpl(env.Oracle),
		queries: keeper.NewQueryServerImpl(env.Keeper),
		journal: journal,
		logger:  logger.With("component", "keeper-service"),
	}, nil
}

// SetNotifier routes engine updates to n
func (s *KeeperService) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Journal returns the event journal fed by this service
func (s *KeeperService) Journal() *Journal {
	return s.journal
}

// apply runs fn in a new block and journals the events it emitted. A panic
// aborts only this operation and comes back as sdkerrors.ErrPanic.
func (s *KeeperService) apply(fn func(ctx sdk.Context) error) error {
	s.env.Ctx = s.env.Ctx.
		WithBlockHeight(s.env.Ctx.BlockHeight() + 1).
		WithBlockTime(time.Now())
	ctx := s.env.Ctx.WithEventManager(sdk.NewEventManager())

	err := s.recovered(ctx, fn)
	for _, ev := range ctx.EventManager().Events() {
		attrs := make(map[string]string, len(ev.Attributes))
		for _, attr := range ev.Attributes {
			attrs[attr.Key] = attr.Value
		}
		entry := s.journal.Append(&types.Event{
			Type:       ev.Type,
			Attributes: attrs,
			Height:     ctx.BlockHeight(),
			Timestamp:  ctx.BlockTime().UnixMilli(),
		})
		if s.notifier != nil {
			s.notifier.BroadcastEvent(entry)
		}
	}
	return err
}

func (s *KeeperService) recovered(ctx sdk.Context, fn func(ctx sdk.Context) error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if cause, ok := r.(error); ok {
			err = fmt.Errorf("%w: %w", sdkerrors.ErrPanic, cause)
		} else {
			err = sdkerrors.ErrPanic.Wrapf("%v", r)
		}
		s.logger.Error("operation aborted", "height", ctx.BlockHeight(), "error", err)
	}()
	return fn(ctx)
}

func parseInt(field, value string) (math.Int, error) {
	v, ok := math.NewIntFromString(value)
	if !ok {
		return math.Int{}, sdkerrors.ErrInvalidRequest.Wrapf("invalid %s %q", field, value)
	}
	return v, nil
}

// position reads the current position of user. Caller holds s.mu.
func (s *KeeperService) position(user string) (*types.Position, error) {
	info, err := s.queries.AccountInformation(s.env.Ctx, user)
	if err != nil {
		return nil, err
	}
	deposits, err := s.queries.UserDeposits(s.env.Ctx, user)
	if err != nil {
		return nil, err
	}

	pos := &types.Position{
		User:                 user,
		TotalDscMinted:       info.TotalDscMinted.String(),
		CollateralValueInUsd: info.CollateralValueInUsd.String(),
		HealthFactor:         info.HealthFactor.String(),
		Deposits:             make(map[string]string, len(deposits)),
		UpdatedAt:            types.NowMillis(),
	}
	for _, d := range deposits {
		pos.Deposits[d.Token] = d.Amount.String()
	}
	return pos, nil
}

// mutate runs a position operation for user and returns the resulting position
func (s *KeeperService) mutate(user string, msg sdk.HasValidateBasic, fn func(ctx sdk.Context) error) (*types.Position, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.apply(fn); err != nil {
		return nil, err
	}
	pos, err := s.position(user)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.BroadcastPosition(pos)
	}
	return pos, nil
}

// ============================================================================
// PositionService
// ============================================================================

func (s *KeeperService) GetPosition(ctx context.Context, user string) (*types.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position(user)
}

func (s *KeeperService) DepositCollateral(ctx context.Context, req *types.CollateralRequest) (*types.Position, error) {
	amount, err := parseInt("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	msg := &stabletypes.MsgDepositCollateral{Sender: req.User, Token: req.Token, Amount: amount}
	return s.mutate(req.User, msg, func(ctx sdk.Context) error {
		_, err := s.msgs.DepositCollateral(ctx, msg)
		return err
	})
}

func (s *KeeperService) MintDsc(ctx context.Context, req *types.AmountRequest) (*types.Position, error) {
	amount, err := parseInt("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	msg := &stabletypes.MsgMintDsc{Sender: req.User, Amount: amount}
	return s.mutate(req.User, msg, func(ctx sdk.Context) error {
		_, err := s.msgs.MintDsc(ctx, msg)
		return err
	})
}

func (s *KeeperService) DepositCollateralAndMintDsc(ctx context.Context, req *types.CombinedRequest) (*types.Position, error) {
	collateral, err := parseInt("collateral_amount", req.CollateralAmount)
	if err != nil {
		return nil, err
	}
	dsc, err := parseInt("dsc_amount", req.DscAmount)
	if err != nil {
		return nil, err
	}
	msg := &stabletypes.MsgDepositCollateralAndMintDsc{
		Sender:           req.User,
		Token:            req.Token,
		CollateralAmount: collateral,
		DscAmount:        dsc,
	}
	return s.mutate(req.User, msg, func(ctx sdk.Context) error {
		_, err := s.msgs.DepositCollateralAndMintDsc(ctx, msg)
		return err
	})
}

func (s *KeeperService) RedeemCollateral(ctx context.Context, req *types.CollateralRequest) (*types.Position, error) {
	amount, err := parseInt("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	msg := &stabletypes.MsgRedeemCollateral{Sender: req.User, Token: req.Token, Amount: amount}
	return s.mutate(req.User, msg, func(ctx sdk.Context) error {
		_, err := s.msgs.RedeemCollateral(ctx, msg)
		return err
	})
}

func (s *KeeperService) RedeemCollateralForDsc(ctx context.Context, req *types.CombinedRequest) (*types.Position, error) {
	collateral, err := parseInt("collateral_amount", req.CollateralAmount)
	if err != nil {
		return nil, err
	}
	dsc, err := parseInt("dsc_amount", req.DscAmount)
	if err != nil {
		return nil, err
	}
	msg := &stabletypes.MsgRedeemCollateralForDsc{
		Sender:           req.User,
		Token:            req.Token,
		CollateralAmount: collateral,
		DscAmount:        dsc,
	}
	return s.mutate(req.User, msg, func(ctx sdk.Context) error {
		_, err := s.msgs.RedeemCollateralForDsc(ctx, msg)
		return err
	})
}

func (s *KeeperService) BurnDsc(ctx context.Context, req *types.AmountRequest) (*types.Position, error) {
	amount, err := parseInt("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	msg := &stabletypes.MsgBurnDsc{Sender: req.User, Amount: amount}
	return s.mutate(req.User, msg, func(ctx sdk.Context) error {
		_, err := s.msgs.BurnDsc(ctx, msg)
		return err
	})
}

// ============================================================================
// LiquidationService
// ============================================================================

func (s *KeeperService) Liquidate(ctx context.Context, req *types.LiquidateRequest) (*types.Liquidation, error) {
	debt, err := parseInt("debt_to_cover", req.DebtToCover)
	if err != nil {
		return nil, err
	}
	msg := &stabletypes.MsgLiquidate{
		Liquidator:  req.Liquidator,
		Token:       req.Token,
		User:        req.User,
		DebtToCover: debt,
	}
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var resp *stabletypes.MsgLiquidateResponse
	err = s.apply(func(ctx sdk.Context) error {
		var err error
		resp, err = s.msgs.Liquidate(ctx, msg)
		return err
	})
	if err != nil {
		return nil, err
	}

	pos, err := s.position(req.User)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.BroadcastPosition(pos)
	}
	s.logger.Info("liquidation executed", "user", req.User, "liquidator", req.Liquidator, "token", req.Token, "debt_covered", debt.String())

	return &types.Liquidation{
		User:                 req.User,
		Liquidator:           req.Liquidator,
		Token:                req.Token,
		DebtCovered:          debt.String(),
		CollateralSeized:     resp.CollateralSeized.String(),
		Bonus:                resp.Bonus.String(),
		StartingHealthFactor: resp.StartingHealthFactor.String(),
		EndingHealthFactor:   resp.EndingHealthFactor.String(),
		Position:             pos,
	}, nil
}

func (s *KeeperService) Candidates(ctx context.Context, limit int) ([]*types.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	risks := s.queries.LiquidationCandidates(s.env.Ctx, limit)
	positions := make([]*types.Position, 0, len(risks))
	for _, r := range risks {
		positions = append(positions, &types.Position{
			User:                 r.User,
			TotalDscMinted:       r.TotalDscMinted.String(),
			CollateralValueInUsd: r.CollateralValueInUsd.String(),
			HealthFactor:         r.HealthFactor.String(),
			UpdatedAt:            types.NowMillis(),
		})
	}
	return positions, nil
}

// ============================================================================
// MarketService
// ============================================================================

func (s *KeeperService) Params(ctx context.Context) (*types.Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.queries.Params(s.env.Ctx)
	return &types.Params{
		Precision:               p.Precision.String(),
		AdditionalFeedPrecision: p.AdditionalFeedPrecision.String(),
		LiquidationThreshold:    p.LiquidationThreshold.String(),
		LiquidationPrecision:    p.LiquidationPrecision.String(),
		MinHealthFactor:         p.MinHealthFactor.String(),
		LiquidationBonus:        p.LiquidationBonus.String(),
		StrictDepositAndMint:    p.StrictDepositAndMint,
	}, nil
}

// collateral describes token at the current price. Caller holds s.mu.
func (s *KeeperService) collateral(token string) (*types.Collateral, error) {
	feedID, err := s.queries.CollateralTokenPriceFeed(s.env.Ctx, token)
	if err != nil {
		return nil, err
	}
	precision := s.queries.Precision(s.env.Ctx)
	return &types.Collateral{
		Token:    token,
		FeedID:   feedID,
		UsdPrice: s.queries.UsdValue(s.env.Ctx, token, precision).String(),
	}, nil
}

func (s *KeeperService) Collateral(ctx context.Context) ([]*types.Collateral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := s.queries.CollateralTokens(s.env.Ctx)
	out := make([]*types.Collateral, 0, len(tokens))
	for _, token := range tokens {
		c, err := s.collateral(token)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *KeeperService) SetPrice(ctx context.Context, req *types.PriceRequest) (*types.Collateral, error) {
	answer, err := parseInt("answer", req.Answer)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	feedID, err := s.queries.CollateralTokenPriceFeed(s.env.Ctx, req.Token)
	if err != nil {
		return nil, err
	}
	err = s.apply(func(ctx sdk.Context) error {
		_, err := s.oracle.SubmitRound(ctx, &oracletypes.MsgSubmitRound{
			Reporter: localchain.OracleAuthority,
			FeedID:   feedID,
			Answer:   answer,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("price updated", "token", req.Token, "feed", feedID, "answer", answer.String())
	return s.collateral(req.Token)
}

func (s *KeeperService) Fund(ctx context.Context, req *types.FundRequest) error {
	addr, err := sdk.AccAddressFromBech32(req.User)
	if err != nil {
		return sdkerrors.ErrInvalidAddress.Wrapf("%s: %s", req.User, err)
	}
	amount, err := parseInt("amount", req.Amount)
	if err != nil {
		return err
	}
	if !amount.IsPositive() {
		return stabletypes.ErrAmountZero.Wrap("amount")
	}
	if err := sdk.ValidateDenom(req.Denom); err != nil {
		return sdkerrors.ErrInvalidRequest.Wrap(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.env.Bank.Fund(s.env.Ctx, addr, sdk.NewCoins(sdk.NewCoin(req.Denom, amount)))
	return nil
}

// Balances returns the wallet balance of user for every collateral token
// and the pegged token
func (s *KeeperService) Balances(ctx context.Context, user string) (map[string]string, error) {
	addr, err := sdk.AccAddressFromBech32(user)
	if err != nil {
		return nil, sdkerrors.ErrInvalidAddress.Wrapf("%s: %s", user, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	denoms := append(s.queries.CollateralTokens(s.env.Ctx), stabletypes.DscDenom)
	out := make(map[string]string, len(denoms))
	for _, denom := range denoms {
		out[denom] = s.env.Bank.GetBalance(s.env.Ctx, addr, denom).Amount.String()
	}
	return out, nil
}

func (s *KeeperService) Events(ctx context.Context, since uint64, limit int) ([]*types.Event, error) {
	return s.journal.Since(since, limit), nil
}
