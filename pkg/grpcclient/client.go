// Package grpcclient reads stablecoin and oracle state from a running node
// over gRPC, using pooled connections to the node's ABCI query service
package grpcclient

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/client/grpc/cmtservice"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	oracletypes "github.com/openalpha/dsc-chain/x/oracle/types"
	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

// Config holds gRPC client configuration
type Config struct {
	GRPCAddr      string
	PoolSize      int           // Connection pool size
	Timeout       time.Duration // Per-query timeout
	RetryAttempts int           // Attempts per query, including the first
	Height        int64         // 0 queries the latest committed state
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		GRPCAddr:      "localhost:9090",
		PoolSize:      4,
		Timeout:       5 * time.Second,
		RetryAttempts: 3,
	}
}

// Client queries module stores through a pool of gRPC connections
type Client struct {
	config    *Config
	pool      []*grpc.ClientConn
	services  []cmtservice.ServiceClient
	poolIndex uint64

	queryCount   uint64
	failCount    uint64
	totalLatency int64
}

// NewClient dials config.PoolSize connections to the node. Extra dial
// options are appended after the defaults.
func NewClient(config *Config, opts ...grpc.DialOption) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.PoolSize <= 0 {
		config.PoolSize = 1
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}

	cdc := codec.NewProtoCodec(codectypes.NewInterfaceRegistry())
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(cdc.GRPCCodec()),
			grpc.MaxCallRecvMsgSize(1024*1024*10), // 10MB
		),
	}, opts...)

	c := &Client{
		config:   config,
		pool:     make([]*grpc.ClientConn, 0, config.PoolSize),
		services: make([]cmtservice.ServiceClient, 0, config.PoolSize),
	}
	for i := 0; i < config.PoolSize; i++ {
		conn, err := grpc.Dial(config.GRPCAddr, dialOpts...)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("connect to gRPC: %w", err)
		}
		c.pool = append(c.pool, conn)
		c.services = append(c.services, cmtservice.NewServiceClient(conn))
	}
	return c, nil
}

// service returns a query client from the pool (round-robin)
func (c *Client) service() cmtservice.ServiceClient {
	idx := atomic.AddUint64(&c.poolIndex, 1) % uint64(len(c.services))
	return c.services[idx]
}

// get reads key from storeName. A missing key yields nil.
func (c *Client) get(ctx context.Context, storeName string, key []byte) ([]byte, error) {
	start := time.Now()
	atomic.AddUint64(&c.queryCount, 1)
	defer func() { atomic.AddInt64(&c.totalLatency, int64(time.Since(start))) }()

	req := &cmtservice.ABCIQueryRequest{
		Path:   "/store/" + storeName + "/key",
		Data:   key,
		Height: c.config.Height,
	}

	var lastErr error
	for attempt := 0; attempt < c.config.RetryAttempts; attempt++ {
		qctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		resp, err := c.service().ABCIQuery(qctx, req)
		cancel()
		if err == nil {
			if resp.Code != 0 {
				atomic.AddUint64(&c.failCount, 1)
				return nil, fmt.Errorf("query %s: code %d: %s", storeName, resp.Code, resp.Log)
			}
			return resp.Value, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	atomic.AddUint64(&c.failCount, 1)
	return nil, fmt.Errorf("query %s: %w", storeName, lastErr)
}

// Params returns the engine parameters, or the defaults when none are stored
func (c *Client) Params(ctx context.Context) (types.Params, error) {
	bz, err := c.get(ctx, types.StoreKey, types.ParamsKey)
	if err != nil || len(bz) == 0 {
		return types.DefaultParams(), err
	}
	var params types.Params
	if err := json.Unmarshal(bz, &params); err != nil {
		return types.Params{}, fmt.Errorf("decode params: %w", err)
	}
	return params, nil
}

// Collateral is a registered collateral token and the feed that prices it
type Collateral struct {
	Token  string
	FeedID string
}

// CollateralTokens returns the registered tokens and their feeds, in
// registration order
func (c *Client) CollateralTokens(ctx context.Context) ([]Collateral, error) {
	bz, err := c.get(ctx, types.StoreKey, types.CollateralTokenCountKey)
	if err != nil || len(bz) != 8 {
		return nil, err
	}
	count := binary.BigEndian.Uint64(bz)

	out := make([]Collateral, 0, count)
	for i := uint64(0); i < count; i++ {
		token, err := c.get(ctx, types.StoreKey, types.CollateralTokenKey(i))
		if err != nil {
			return nil, err
		}
		feed, err := c.get(ctx, types.StoreKey, types.PriceFeedKey(string(token)))
		if err != nil {
			return nil, err
		}
		out = append(out, Collateral{Token: string(token), FeedID: string(feed)})
	}
	return out, nil
}

// Deposit returns the amount of token user holds in the engine
func (c *Client) Deposit(ctx context.Context, user, token string) (math.Int, error) {
	bz, err := c.get(ctx, types.StoreKey, types.CollateralDepositKey(user, token))
	if err != nil || len(bz) == 0 {
		return math.ZeroInt(), err
	}
	var deposit types.CollateralDeposit
	if err := json.Unmarshal(bz, &deposit); err != nil {
		return math.ZeroInt(), fmt.Errorf("decode deposit: %w", err)
	}
	return deposit.Amount, nil
}

// Debt returns the pegged tokens minted by user
func (c *Client) Debt(ctx context.Context, user string) (math.Int, error) {
	bz, err := c.get(ctx, types.StoreKey, types.DscMintedKey(user))
	if err != nil || len(bz) == 0 {
		return math.ZeroInt(), err
	}
	var debt types.DscDebt
	if err := json.Unmarshal(bz, &debt); err != nil {
		return math.ZeroInt(), fmt.Errorf("decode debt: %w", err)
	}
	return debt.Amount, nil
}

// LatestRound returns the newest round of feedID
func (c *Client) LatestRound(ctx context.Context, feedID string) (oracletypes.RoundData, error) {
	idBz, err := c.get(ctx, oracletypes.StoreKey, oracletypes.LatestRoundKey(feedID))
	if err != nil {
		return oracletypes.RoundData{}, err
	}
	if len(idBz) != 8 {
		return oracletypes.RoundData{}, oracletypes.ErrNoRoundData.Wrap(feedID)
	}
	bz, err := c.get(ctx, oracletypes.StoreKey, oracletypes.RoundKey(feedID, binary.BigEndian.Uint64(idBz)))
	if err != nil {
		return oracletypes.RoundData{}, err
	}
	if len(bz) == 0 {
		return oracletypes.RoundData{}, oracletypes.ErrNoRoundData.Wrap(feedID)
	}
	var round oracletypes.RoundData
	if err := json.Unmarshal(bz, &round); err != nil {
		return oracletypes.RoundData{}, fmt.Errorf("decode round: %w", err)
	}
	return round, nil
}

// Account is a user's position as stored on chain
type Account struct {
	User                 string
	TotalDscMinted       math.Int
	CollateralValueInUsd math.Int
	HealthFactor         math.Int
	Deposits             map[string]math.Int
}

// AccountInformation values every deposit of user at the latest feed prices
func (c *Client) AccountInformation(ctx context.Context, user string) (*Account, error) {
	params, err := c.Params(ctx)
	if err != nil {
		return nil, err
	}
	collateral, err := c.CollateralTokens(ctx)
	if err != nil {
		return nil, err
	}
	debt, err := c.Debt(ctx, user)
	if err != nil {
		return nil, err
	}

	acc := &Account{
		User:                 user,
		TotalDscMinted:       debt,
		CollateralValueInUsd: math.ZeroInt(),
		Deposits:             make(map[string]math.Int),
	}
	for _, ct := range collateral {
		amount, err := c.Deposit(ctx, user, ct.Token)
		if err != nil {
			return nil, err
		}
		if amount.IsZero() {
			continue
		}
		round, err := c.LatestRound(ctx, ct.FeedID)
		if err != nil {
			return nil, err
		}
		acc.Deposits[ct.Token] = amount
		acc.CollateralValueInUsd = acc.CollateralValueInUsd.Add(types.UsdValue(params, round.Answer, amount))
	}
	acc.HealthFactor = types.CalculateHealthFactor(params, acc.TotalDscMinted, acc.CollateralValueInUsd)
	return acc, nil
}

// GetMetrics returns query counters and the mean query latency
func (c *Client) GetMetrics() (queryCount, failCount uint64, avgLatency time.Duration) {
	queryCount = atomic.LoadUint64(&c.queryCount)
	failCount = atomic.LoadUint64(&c.failCount)
	if queryCount > 0 {
		avgLatency = time.Duration(atomic.LoadInt64(&c.totalLatency) / int64(queryCount))
	}
	return
}

// Close closes all connections in the pool
func (c *Client) Close() error {
	var firstErr error
	for _, conn := range c.pool {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
