package grpcclient

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/client/grpc/cmtservice"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	oracletypes "github.com/openalpha/dsc-chain/x/oracle/types"
	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

func e18(n int64) math.Int {
	return math.NewInt(n).Mul(math.NewIntWithDecimal(1, 18))
}

// fakeNode answers ABCI store queries from an in-memory key space
type fakeNode struct {
	cmtservice.UnimplementedServiceServer
	stores map[string]map[string][]byte
	paths  []string
}

func (n *fakeNode) ABCIQuery(_ context.Context, req *cmtservice.ABCIQueryRequest) (*cmtservice.ABCIQueryResponse, error) {
	n.paths = append(n.paths, req.Path)
	store := strings.TrimSuffix(strings.TrimPrefix(req.Path, "/store/"), "/key")
	kv, ok := n.stores[store]
	if !ok {
		return &cmtservice.ABCIQueryResponse{Code: 1, Log: "unknown store " + store}, nil
	}
	return &cmtservice.ABCIQueryResponse{Key: req.Data, Value: kv[string(req.Data)]}, nil
}

func (n *fakeNode) put(store string, key []byte, value []byte) {
	if n.stores[store] == nil {
		n.stores[store] = make(map[string][]byte)
	}
	n.stores[store][string(key)] = value
}

func (n *fakeNode) putJSON(t *testing.T, store string, key []byte, v interface{}) {
	bz, err := json.Marshal(v)
	require.NoError(t, err)
	n.put(store, key, bz)
}

func uint64Bytes(v uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, v)
	return bz
}

func startNode(t *testing.T, node *fakeNode) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	cdc := codec.NewProtoCodec(codectypes.NewInterfaceRegistry())
	srv := grpc.NewServer(grpc.ForceServerCodec(cdc.GRPCCodec()))
	cmtservice.RegisterServiceServer(srv, node)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	config := DefaultConfig()
	config.GRPCAddr = "bufnet"
	config.PoolSize = 2
	config.Timeout = 2 * time.Second
	client, err := NewClient(config, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func seedEngine(t *testing.T, node *fakeNode, user string) {
	node.put(types.StoreKey, types.CollateralTokenCountKey, uint64Bytes(2))
	node.put(types.StoreKey, types.CollateralTokenKey(0), []byte("weth"))
	node.put(types.StoreKey, types.PriceFeedKey("weth"), []byte("eth-usd"))
	node.put(types.StoreKey, types.CollateralTokenKey(1), []byte("wbtc"))
	node.put(types.StoreKey, types.PriceFeedKey("wbtc"), []byte("btc-usd"))

	node.putJSON(t, types.StoreKey, types.CollateralDepositKey(user, "weth"),
		types.CollateralDeposit{User: user, Token: "weth", Amount: e18(10)})
	node.putJSON(t, types.StoreKey, types.DscMintedKey(user), types.DscDebt{User: user, Amount: e18(5000)})

	node.put(oracletypes.StoreKey, oracletypes.LatestRoundKey("eth-usd"), uint64Bytes(3))
	node.putJSON(t, oracletypes.StoreKey, oracletypes.RoundKey("eth-usd", 3), oracletypes.RoundData{
		FeedID: "eth-usd", RoundID: 3, Answer: math.NewInt(2000_00000000), AnsweredInRound: 3,
	})
}

func TestAccountInformation(t *testing.T) {
	node := &fakeNode{stores: make(map[string]map[string][]byte)}
	user := sdk.AccAddress([]byte("alice_______________")).String()
	seedEngine(t, node, user)
	client := startNode(t, node)
	ctx := context.Background()

	collateral, err := client.CollateralTokens(ctx)
	require.NoError(t, err)
	require.Equal(t, []Collateral{{Token: "weth", FeedID: "eth-usd"}, {Token: "wbtc", FeedID: "btc-usd"}}, collateral)

	acc, err := client.AccountInformation(ctx, user)
	require.NoError(t, err)
	require.Equal(t, e18(5000).String(), acc.TotalDscMinted.String())
	require.Equal(t, e18(20000).String(), acc.CollateralValueInUsd.String())
	require.Equal(t, e18(2).String(), acc.HealthFactor.String())
	require.Len(t, acc.Deposits, 1)
	require.Equal(t, e18(10).String(), acc.Deposits["weth"].String())

	require.Contains(t, node.paths, "/store/"+types.StoreKey+"/key")
	require.Contains(t, node.paths, "/store/"+oracletypes.StoreKey+"/key")

	queries, failures, _ := client.GetMetrics()
	require.NotZero(t, queries)
	require.Zero(t, failures)
}

func TestEmptyChainState(t *testing.T) {
	node := &fakeNode{stores: map[string]map[string][]byte{
		types.StoreKey:       {},
		oracletypes.StoreKey: {},
	}}
	client := startNode(t, node)
	ctx := context.Background()
	user := sdk.AccAddress([]byte("bob_________________")).String()

	params, err := client.Params(ctx)
	require.NoError(t, err)
	require.Equal(t, types.DefaultParams(), params)

	acc, err := client.AccountInformation(ctx, user)
	require.NoError(t, err)
	require.True(t, acc.TotalDscMinted.IsZero())
	require.Equal(t, types.MaxHealthFactor.String(), acc.HealthFactor.String())

	_, err = client.LatestRound(ctx, "eth-usd")
	require.ErrorIs(t, err, oracletypes.ErrNoRoundData)
}

func TestQueryFailure(t *testing.T) {
	node := &fakeNode{stores: make(map[string]map[string][]byte)}
	client := startNode(t, node)

	_, err := client.Debt(context.Background(), "anyone")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown store")

	_, failures, _ := client.GetMetrics()
	require.Equal(t, uint64(1), failures)
}
