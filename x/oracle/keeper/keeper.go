package keeper

import (
	"encoding/binary"
	"encoding/json"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dsc-chain/x/oracle/types"
)

// Keeper stores price feeds and their published rounds
type Keeper struct {
	cdc       codec.BinaryCodec
	storeKey  storetypes.StoreKey
	authority string
	logger    log.Logger
}

// NewKeeper creates a new oracle keeper
func NewKeeper(
	cdc codec.BinaryCodec,
	storeKey storetypes.StoreKey,
	authority string,
	logger log.Logger,
) *Keeper {
	return &Keeper{
		cdc:       cdc,
		storeKey:  storeKey,
		authority: authority,
		logger:    logger.With("module", "x/oracle"),
	}
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// GetAuthority returns the module authority address
func (k *Keeper) GetAuthority() string {
	return k.authority
}

// GetStore returns the KVStore
func (k *Keeper) GetStore(ctx sdk.Context) storetypes.KVStore {
	return ctx.KVStore(k.storeKey)
}

// ============ Feeds ============

// SetFeed saves a feed definition
func (k *Keeper) SetFeed(ctx sdk.Context, feed types.Feed) {
	bz, _ := json.Marshal(feed)
	k.GetStore(ctx).Set(types.FeedKey(feed.FeedID), bz)
}

// GetFeed retrieves a feed definition
func (k *Keeper) GetFeed(ctx sdk.Context, feedID string) (types.Feed, bool) {
	bz := k.GetStore(ctx).Get(types.FeedKey(feedID))
	if bz == nil {
		return types.Feed{}, false
	}
	var feed types.Feed
	if err := json.Unmarshal(bz, &feed); err != nil {
		return types.Feed{}, false
	}
	return feed, true
}

// GetAllFeeds returns every registered feed
func (k *Keeper) GetAllFeeds(ctx sdk.Context) []types.Feed {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), types.FeedKeyPrefix)
	defer iterator.Close()

	var feeds []types.Feed
	for ; iterator.Valid(); iterator.Next() {
		var feed types.Feed
		if err := json.Unmarshal(iterator.Value(), &feed); err != nil {
			continue
		}
		feeds = append(feeds, feed)
	}
	return feeds
}

// RegisterFeed adds a feed. Feeds are never removed.
func (k *Keeper) RegisterFeed(ctx sdk.Context, feed types.Feed) error {
	if err := feed.Validate(); err != nil {
		return err
	}
	if _, found := k.GetFeed(ctx, feed.FeedID); found {
		return errorsmod.Wrap(types.ErrFeedExists, feed.FeedID)
	}
	k.SetFeed(ctx, feed)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"oracle_feed_registered",
			sdk.NewAttribute("feed_id", feed.FeedID),
			sdk.NewAttribute("decimals", math.NewIntFromUint64(uint64(feed.Decimals)).String()),
		),
	)
	return nil
}

// ============ Reporters ============

// SetReporter allows addr to submit rounds
func (k *Keeper) SetReporter(ctx sdk.Context, addr string) {
	k.GetStore(ctx).Set(types.ReporterKey(addr), []byte{1})
}

// IsReporter reports whether addr may submit rounds
func (k *Keeper) IsReporter(ctx sdk.Context, addr string) bool {
	if addr == k.authority {
		return true
	}
	return k.GetStore(ctx).Has(types.ReporterKey(addr))
}

// GetAllReporters returns the reporter allow list
func (k *Keeper) GetAllReporters(ctx sdk.Context) []string {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), types.ReporterKeyPrefix)
	defer iterator.Close()

	var reporters []string
	for ; iterator.Valid(); iterator.Next() {
		reporters = append(reporters, string(iterator.Key()[len(types.ReporterKeyPrefix):]))
	}
	return reporters
}

// ============ Rounds ============

// setRound stores a round and advances the feed's latest round pointer
func (k *Keeper) setRound(ctx sdk.Context, round types.RoundData) {
	store := k.GetStore(ctx)
	bz, _ := json.Marshal(round)
	store.Set(types.RoundKey(round.FeedID, round.RoundID), bz)

	idBz := make([]byte, 8)
	binary.BigEndian.PutUint64(idBz, round.RoundID)
	store.Set(types.LatestRoundKey(round.FeedID), idBz)
}

// latestRoundID returns the most recent round id of a feed
func (k *Keeper) latestRoundID(ctx sdk.Context, feedID string) (uint64, bool) {
	bz := k.GetStore(ctx).Get(types.LatestRoundKey(feedID))
	if bz == nil {
		return 0, false
	}
	return binary.BigEndian.Uint64(bz), true
}

// GetRoundData returns one round of a feed
func (k *Keeper) GetRoundData(ctx sdk.Context, feedID string, roundID uint64) (types.RoundData, error) {
	bz := k.GetStore(ctx).Get(types.RoundKey(feedID, roundID))
	if bz == nil {
		return types.RoundData{}, errorsmod.Wrapf(types.ErrNoRoundData, "feed %s round %d", feedID, roundID)
	}
	var round types.RoundData
	if err := json.Unmarshal(bz, &round); err != nil {
		return types.RoundData{}, errorsmod.Wrapf(types.ErrNoRoundData, "decode round: %s", err)
	}
	return round, nil
}

// LatestRoundData returns the most recent round of a feed
func (k *Keeper) LatestRoundData(ctx sdk.Context, feedID string) (types.RoundData, error) {
	if _, found := k.GetFeed(ctx, feedID); !found {
		return types.RoundData{}, errorsmod.Wrap(types.ErrFeedNotFound, feedID)
	}
	roundID, ok := k.latestRoundID(ctx, feedID)
	if !ok {
		return types.RoundData{}, errorsmod.Wrap(types.ErrNoRoundData, feedID)
	}
	return k.GetRoundData(ctx, feedID, roundID)
}

// GetAllRounds returns every stored round ordered by feed and round id
func (k *Keeper) GetAllRounds(ctx sdk.Context) []types.RoundData {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), types.RoundKeyPrefix)
	defer iterator.Close()

	var rounds []types.RoundData
	for ; iterator.Valid(); iterator.Next() {
		var round types.RoundData
		if err := json.Unmarshal(iterator.Value(), &round); err != nil {
			continue
		}
		rounds = append(rounds, round)
	}
	return rounds
}

// SubmitRound publishes a new answer for feedID. The answer is stored as
// given, negative values included.
func (k *Keeper) SubmitRound(ctx sdk.Context, reporter, feedID string, answer math.Int, startedAt int64) (types.RoundData, error) {
	if !k.IsReporter(ctx, reporter) {
		return types.RoundData{}, errorsmod.Wrap(types.ErrUnauthorized, reporter)
	}
	if _, found := k.GetFeed(ctx, feedID); !found {
		return types.RoundData{}, errorsmod.Wrap(types.ErrFeedNotFound, feedID)
	}
	if answer.IsNil() {
		return types.RoundData{}, types.ErrInvalidAnswer
	}

	next := uint64(1)
	if last, ok := k.latestRoundID(ctx, feedID); ok {
		next = last + 1
	}

	now := ctx.BlockTime().Unix()
	if startedAt == 0 || startedAt > now {
		startedAt = now
	}

	round := types.RoundData{
		FeedID:          feedID,
		RoundID:         next,
		Answer:          answer,
		StartedAt:       startedAt,
		UpdatedAt:       now,
		AnsweredInRound: next,
	}
	k.setRound(ctx, round)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"oracle_round_submitted",
			sdk.NewAttribute("feed_id", feedID),
			sdk.NewAttribute("round_id", math.NewIntFromUint64(next).String()),
			sdk.NewAttribute("answer", answer.String()),
			sdk.NewAttribute("reporter", reporter),
		),
	)

	k.Logger().Debug("oracle round submitted",
		"feed", feedID,
		"round", next,
		"answer", answer.String(),
	)
	return round, nil
}
