package websocket

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"cosmossdk.io/log"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/openalpha/dsc-chain/api/types"
)

// Server upgrades HTTP requests to hub clients and tracks connections
type Server struct {
	hub      *Hub
	config   *ServerConfig
	upgrader websocket.Upgrader
	logger   log.Logger

	connectionsMu    sync.RWMutex
	connections      map[string]*Client
	connectionsPerIP map[string]int

	totalConnections  atomic.Int64
	activeConnections atomic.Int64
}

// ServerConfig contains WebSocket server configuration
type ServerConfig struct {
	AllowedOrigins []string // "*" allows any origin
	MaxConnPerIP   int
	HubConfig      *HubConfig
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		AllowedOrigins: []string{"*"},
		MaxConnPerIP:   10,
		HubConfig:      DefaultHubConfig(),
	}
}

// NewServer creates a WebSocket server with its own hub
func NewServer(config *ServerConfig, logger log.Logger) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	s := &Server{
		hub:              NewHub(config.HubConfig),
		config:           config,
		logger:           logger.With("component", "websocket"),
		connections:      make(map[string]*Client),
		connectionsPerIP: make(map[string]int),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Start runs the hub loop in the background
func (s *Server) Start() {
	go s.hub.Run()
}

// Stop disconnects all clients
func (s *Server) Stop() {
	s.hub.Stop()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades the request. The optional user query parameter binds a
// bech32 address whose positions channel the client may read.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !s.checkIPLimit(ip) {
		http.Error(w, "Too many connections from this IP", http.StatusTooManyRequests)
		return
	}

	userID := r.URL.Query().Get("user")
	if userID != "" {
		if _, err := sdk.AccAddressFromBech32(userID); err != nil {
			http.Error(w, "invalid user address", http.StatusBadRequest)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "ip", ip, "error", err)
		return
	}

	client := NewClient(s.hub, conn, uuid.New().String(), userID, ip, s.logger)
	if !s.hub.Register(client) {
		conn.Close()
		return
	}
	s.registerConnection(client)

	go client.writePump()
	go client.readPump(func() { s.unregisterConnection(client) })
}

func (s *Server) registerConnection(client *Client) {
	s.connectionsMu.Lock()
	s.connections[client.GetID()] = client
	s.connectionsPerIP[client.GetIP()]++
	s.connectionsMu.Unlock()

	s.totalConnections.Add(1)
	s.activeConnections.Add(1)
}

func (s *Server) unregisterConnection(client *Client) {
	s.connectionsMu.Lock()
	delete(s.connections, client.GetID())
	s.connectionsPerIP[client.GetIP()]--
	if s.connectionsPerIP[client.GetIP()] <= 0 {
		delete(s.connectionsPerIP, client.GetIP())
	}
	s.connectionsMu.Unlock()

	s.activeConnections.Add(-1)
}

func (s *Server) checkIPLimit(ip string) bool {
	s.connectionsMu.RLock()
	defer s.connectionsMu.RUnlock()
	return s.connectionsPerIP[ip] < s.config.MaxConnPerIP
}

// GetHub returns the hub
func (s *Server) GetHub() *Hub {
	return s.hub
}

// GetConnection returns a client by ID
func (s *Server) GetConnection(clientID string) *Client {
	s.connectionsMu.RLock()
	defer s.connectionsMu.RUnlock()
	return s.connections[clientID]
}

// Stats reports connection counters
func (s *Server) Stats() map[string]int64 {
	return map[string]int64{
		"total_connections":  s.totalConnections.Load(),
		"active_connections": s.activeConnections.Load(),
		"channels":           int64(s.hub.GetChannelCount()),
	}
}

// BroadcastEvent implements the engine notifier
func (s *Server) BroadcastEvent(ev *types.Event) {
	s.hub.BroadcastEvent(ev)
}

// BroadcastPosition implements the engine notifier
func (s *Server) BroadcastPosition(pos *types.Position) {
	s.hub.BroadcastPosition(pos)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
