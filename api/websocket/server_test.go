package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cosmossdk.io/log"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/dsc-chain/api/types"
)

func testUser(name string) string {
	return sdk.AccAddress([]byte(fmt.Sprintf("%-20s", name))).String()
}

func startServer(t *testing.T, config *ServerConfig) (*Server, string) {
	t.Helper()
	s := NewServer(config, log.NewNopLogger())
	s.Start()
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		s.Stop()
		ts.Close()
	})
	return s, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func request(t *testing.T, conn *websocket.Conn, action, channel string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(&ClientMessage{Action: action, Channel: channel}))
}

type received struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

func next(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestPositionChannelIsPrivate(t *testing.T) {
	s, url := startServer(t, nil)
	alice, bob := testUser("alice"), testUser("bob")
	conn := dial(t, url+"?user="+alice)

	request(t, conn, "subscribe", PrefixPositions+bob)
	msg := next(t, conn)
	require.Equal(t, "error", msg.Type)
	require.Contains(t, string(msg.Data), "unauthorized")

	request(t, conn, "subscribe", PrefixPositions+alice)
	msg = next(t, conn)
	require.Equal(t, "subscribed", msg.Type)

	s.BroadcastPosition(&types.Position{User: bob, TotalDscMinted: "1"})
	s.BroadcastPosition(&types.Position{User: alice, TotalDscMinted: "5"})

	msg = next(t, conn)
	require.Equal(t, "position", msg.Type)
	var pos types.Position
	require.NoError(t, json.Unmarshal(msg.Data, &pos))
	require.Equal(t, alice, pos.User)
	require.Equal(t, "5", pos.TotalDscMinted)
}

func TestEventChannels(t *testing.T) {
	s, url := startServer(t, nil)
	all := dial(t, url)
	minted := dial(t, url)

	request(t, all, "subscribe", ChannelEvents)
	require.Equal(t, "subscribed", next(t, all).Type)
	request(t, minted, "subscribe", PrefixEvents+"dsc_minted")
	require.Equal(t, "subscribed", next(t, minted).Type)

	s.BroadcastEvent(&types.Event{Sequence: 1, Type: "collateral_deposited"})
	s.BroadcastEvent(&types.Event{Sequence: 2, Type: "dsc_minted"})

	for _, seq := range []uint64{1, 2} {
		msg := next(t, all)
		require.Equal(t, ChannelEvents, msg.Channel)
		var ev types.Event
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		require.Equal(t, seq, ev.Sequence)
	}

	msg := next(t, minted)
	var ev types.Event
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	require.Equal(t, uint64(2), ev.Sequence)
	require.Equal(t, PrefixEvents+"dsc_minted", msg.Channel)
}

func TestClientActions(t *testing.T) {
	_, url := startServer(t, nil)
	conn := dial(t, url)

	request(t, conn, "ping", "")
	require.Equal(t, "pong", next(t, conn).Type)

	request(t, conn, "dance", "")
	msg := next(t, conn)
	require.Equal(t, "error", msg.Type)
	require.Contains(t, string(msg.Data), "unknown_action")

	request(t, conn, "subscribe", ChannelEvents)
	require.Equal(t, "subscribed", next(t, conn).Type)
	request(t, conn, "unsubscribe", ChannelEvents)
	require.Equal(t, "unsubscribed", next(t, conn).Type)
}

func TestServeHTTPRejections(t *testing.T) {
	_, url := startServer(t, &ServerConfig{
		AllowedOrigins: []string{"https://app.example.org"},
		MaxConnPerIP:   1,
		HubConfig:      DefaultHubConfig(),
	})

	_, resp, err := websocket.DefaultDialer.Dial(url+"?user=nobody", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	header := http.Header{"Origin": []string{"https://evil.example.org"}}
	_, resp, err = websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dial(t, url)
	request(t, conn, "ping", "")
	require.Equal(t, "pong", next(t, conn).Type)

	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestHubStopDisconnectsClients(t *testing.T) {
	s, url := startServer(t, nil)
	conn := dial(t, url)
	request(t, conn, "ping", "")
	require.Equal(t, "pong", next(t, conn).Type)
	require.Equal(t, 1, s.GetHub().GetClientCount())

	s.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestChannelKind(t *testing.T) {
	require.Equal(t, "positions", channelKind(PrefixPositions+"cosmos1xyz"))
	require.Equal(t, "events", channelKind(ChannelEvents))
	require.Equal(t, "events", channelKind(PrefixEvents+"liquidation"))
}
