package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"cosmossdk.io/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/openalpha/dsc-chain/api/handlers"
	"github.com/openalpha/dsc-chain/api/middleware"
	"github.com/openalpha/dsc-chain/api/types"
	"github.com/openalpha/dsc-chain/api/websocket"
	"github.com/openalpha/dsc-chain/metrics"
)

// RequestIDHeader carries the per-request correlation ID
const RequestIDHeader = "X-Request-ID"

// Server represents the API server
type Server struct {
	httpServer *http.Server
	wsServer   *websocket.Server
	router     *mux.Router
	config     *Config
	logger     log.Logger

	service     types.EngineService
	rateLimiter *middleware.RateLimiter
}

// Config contains server configuration
type Config struct {
	Host             string
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	DisableRateLimit bool
	// EnableOperator exposes price and faucet routes for local engines
	EnableOperator bool
	AllowedOrigins []string
	RateLimit      *middleware.RateLimitConfig
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		AllowedOrigins: []string{"*"},
		RateLimit:      middleware.DefaultRateLimitConfig(),
	}
}

// notifierSetter is implemented by services that push live updates
type notifierSetter interface {
	SetNotifier(n Notifier)
}

// NewServer creates an API server over service
func NewServer(config *Config, service types.EngineService, logger log.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	wsConfig := websocket.DefaultServerConfig()
	if len(config.AllowedOrigins) > 0 {
		wsConfig.AllowedOrigins = config.AllowedOrigins
	}

	s := &Server{
		config:      config,
		logger:      logger.With("module", "api"),
		service:     service,
		wsServer:    websocket.NewServer(wsConfig, logger),
		rateLimiter: middleware.NewRateLimiter(config.RateLimit),
	}
	if ns, ok := service.(notifierSetter); ok {
		ns.SetNotifier(s.wsServer)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.Handle("/ws", s.wsServer)
	r.HandleFunc("/v1/ws/stats", s.handleWSStats).Methods(http.MethodGet)

	handlers.NewPositionHandler(s.service).RegisterRoutes(r)
	handlers.NewLiquidationHandler(s.service).RegisterRoutes(r)
	handlers.NewMarketHandler(s.service, s.config.EnableOperator).RegisterRoutes(r)

	r.Use(requestIDMiddleware, s.metricsMiddleware)
	if !s.config.DisableRateLimit {
		r.Use(middleware.RateLimitMiddleware(s.rateLimiter), middleware.WriteRateLimitMiddleware(s.rateLimiter))
	}
	return r
}

// Handler returns the full HTTP handler chain
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

// Start starts the WebSocket hub and serves HTTP until Stop
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.wsServer.Start()

	s.logger.Info("API server starting", "addr", addr, "operator", s.config.EnableOperator, "rate_limit", !s.config.DisableRateLimit)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.wsServer.Stop()
	s.rateLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// WSServer returns the WebSocket server
func (s *Server) WSServer() *websocket.Server {
	return s.wsServer
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().Unix(),
		"ws_clients": s.wsServer.GetHub().GetClientCount(),
	})
}

func (s *Server) handleWSStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wsServer.Stats())
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrade take over the connection
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

// metricsMiddleware records request counts and latency labelled by route
// template, so per-user paths share one series
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		metrics.GetCollector().RecordAPIRequest(r.Method, path, strconv.Itoa(rec.status), timer.ElapsedMs())
		if rec.status >= http.StatusInternalServerError {
			s.logger.Error("request failed", "method", r.Method, "path", path, "status", rec.status, "request_id", w.Header().Get(RequestIDHeader))
		}
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.UserHeader+", "+RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
