package websocket

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/openalpha/dsc-chain/api/types"
	"github.com/openalpha/dsc-chain/metrics"
)

// Channel names. Event channels are public; a positions channel is readable
// only by the user it names.
const (
	ChannelEvents    = "events"
	PrefixEvents     = "events:"
	PrefixPositions  = "positions:"
	defaultMaxSubs   = 50
	defaultRateLimit = 100
)

// Hub maintains the set of active clients and fans messages out to channel
// subscribers
type Hub struct {
	clients  map[*Client]bool
	channels map[string]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *SubscriptionRequest
	unsubscribe chan *SubscriptionRequest
	stop        chan struct{}
	stopOnce    sync.Once

	mu sync.RWMutex

	config *HubConfig
}

// HubConfig contains hub configuration
type HubConfig struct {
	MaxSubscriptions int
	MessageRateLimit int // messages per second per client
}

// DefaultHubConfig returns default hub configuration
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		MaxSubscriptions: defaultMaxSubs,
		MessageRateLimit: defaultRateLimit,
	}
}

// SubscriptionRequest asks the hub to add or remove a client from a channel
type SubscriptionRequest struct {
	Client  *Client
	Channel string
}

// WSMessage is the envelope of every server-sent message
type WSMessage struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// NewHub creates a new Hub
func NewHub(config *HubConfig) *Hub {
	if config == nil {
		config = DefaultHubConfig()
	}
	return &Hub{
		clients:     make(map[*Client]bool),
		channels:    make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *SubscriptionRequest, 256),
		unsubscribe: make(chan *SubscriptionRequest, 256),
		stop:        make(chan struct{}),
		config:      config,
	}
}

// Run processes registrations and subscriptions until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case req := <-h.subscribe:
			h.handleSubscription(req)
		case req := <-h.unsubscribe:
			h.handleUnsubscription(req)
		case <-h.stop:
			h.closeAll()
			return
		}
	}
}

// Stop ends Run and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Register adds client to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stop:
		return false
	}
}

func (h *Hub) request(ch chan *SubscriptionRequest, req *SubscriptionRequest) {
	select {
	case ch <- req:
	case <-h.stop:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	metrics.GetCollector().RecordWSConnection(1)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for channel, clients := range h.channels {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}
	client.closeSend()
	metrics.GetCollector().RecordWSConnection(-1)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.closeSend()
		metrics.GetCollector().RecordWSConnection(-1)
	}
	h.clients = make(map[*Client]bool)
	h.channels = make(map[string]map[*Client]bool)
}

func (h *Hub) handleSubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[req.Client] {
		return
	}
	if _, ok := h.channels[req.Channel]; !ok {
		h.channels[req.Channel] = make(map[*Client]bool)
	}
	h.channels[req.Channel][req.Client] = true
	req.Client.Send(encode(&WSMessage{Type: "subscribed", Channel: req.Channel}))
}

func (h *Hub) handleUnsubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[req.Client] {
		return
	}
	if clients, ok := h.channels[req.Channel]; ok {
		delete(clients, req.Client)
		if len(clients) == 0 {
			delete(h.channels, req.Channel)
		}
	}
	req.Client.Send(encode(&WSMessage{Type: "unsubscribed", Channel: req.Channel}))
}

// BroadcastToChannel sends message to every subscriber of channel. Slow
// clients whose buffer is full miss the message.
func (h *Hub) BroadcastToChannel(channel string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.channels[channel]
	if !ok {
		return
	}
	for client := range clients {
		client.Send(data)
	}
	metrics.GetCollector().RecordWSMessage(channelKind(channel))
}

// BroadcastEvent publishes an engine event on the events channel and on the
// channel of its type
func (h *Hub) BroadcastEvent(ev *types.Event) {
	h.BroadcastToChannel(ChannelEvents, &WSMessage{Type: "event", Channel: ChannelEvents, Data: ev})
	typed := PrefixEvents + ev.Type
	h.BroadcastToChannel(typed, &WSMessage{Type: "event", Channel: typed, Data: ev})
}

// BroadcastPosition publishes a position update to its owner
func (h *Hub) BroadcastPosition(pos *types.Position) {
	channel := PrefixPositions + pos.User
	h.BroadcastToChannel(channel, &WSMessage{Type: "position", Channel: channel, Data: pos})
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetChannelCount returns the number of channels with subscribers
func (h *Hub) GetChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

// GetChannelClientCount returns the number of subscribers of channel
func (h *Hub) GetChannelClientCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// channelKind strips the per-user or per-type suffix for metric labels
func channelKind(channel string) string {
	if i := strings.IndexByte(channel, ':'); i >= 0 {
		return channel[:i]
	}
	return channel
}

func encode(msg *WSMessage) []byte {
	data, _ := json.Marshal(msg)
	return data
}
