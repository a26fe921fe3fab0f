package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/openalpha/dsc-chain/metrics"
)

// UserHeader identifies the caller of a mutating request
const UserHeader = "X-User-Address"

// RateLimiter implements token bucket limits per IP and per user, plus a
// stricter budget for state-changing engine calls
type RateLimiter struct {
	config *RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*Bucket
	daily   map[string]*DailyCounter

	cleanupTicker *time.Ticker
	stopCh        chan struct{}
	stopOnce      sync.Once

	now func() time.Time
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	IPRequestsPerSecond int
	IPBurst             int
	BlockDuration       time.Duration

	// Mutating calls (deposit, mint, redeem, burn, liquidate) per user
	WritesPerSecond int
	WriteBurst      int
	WritesPerDay    int

	CleanupInterval time.Duration
	BucketTTL       time.Duration
}

// DefaultRateLimitConfig returns default configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		IPRequestsPerSecond: 100,
		IPBurst:             200,
		BlockDuration:       time.Minute,

		WritesPerSecond: 5,
		WriteBurst:      10,
		WritesPerDay:    10000,

		CleanupInterval: 5 * time.Minute,
		BucketTTL:       time.Hour,
	}
}

// Bucket is a token bucket
type Bucket struct {
	tokens       float64
	maxTokens    float64
	refillRate   float64
	lastUpdate   time.Time
	blockedUntil time.Time
}

// DailyCounter counts calls within one calendar day
type DailyCounter struct {
	count int
	date  string
}

// RateLimitInfo describes the outcome of a limit check
type RateLimitInfo struct {
	Allowed    bool   `json:"allowed"`
	Remaining  int    `json:"remaining"`
	Limit      int    `json:"limit"`
	RetryAfter int    `json:"retry_after,omitempty"`
	LimitType  string `json:"limit_type"`
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	rl := &RateLimiter{
		config:        config,
		buckets:       make(map[string]*Bucket),
		daily:         make(map[string]*DailyCounter),
		cleanupTicker: time.NewTicker(config.CleanupInterval),
		stopCh:        make(chan struct{}),
		now:           time.Now,
	}
	go rl.cleanupLoop()
	return rl
}

// Stop stops the cleanup loop
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
		rl.cleanupTicker.Stop()
	})
}

func (rl *RateLimiter) cleanupLoop() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	threshold := now.Add(-rl.config.BucketTTL)
	for key, b := range rl.buckets {
		if b.lastUpdate.Before(threshold) {
			delete(rl.buckets, key)
		}
	}
	today := now.Format("2006-01-02")
	for key, c := range rl.daily {
		if c.date != today {
			delete(rl.daily, key)
		}
	}
}

// bucket returns the bucket for key, creating it full. Caller holds rl.mu.
func (rl *RateLimiter) bucket(key string, burst, rate int) *Bucket {
	b, ok := rl.buckets[key]
	if !ok {
		b = &Bucket{
			tokens:     float64(burst),
			maxTokens:  float64(burst),
			refillRate: float64(rate),
			lastUpdate: rl.now(),
		}
		rl.buckets[key] = b
	}
	return b
}

// consume takes one token from b. Caller holds rl.mu.
func (rl *RateLimiter) consume(b *Bucket) (bool, *RateLimitInfo) {
	now := rl.now()
	if now.Before(b.blockedUntil) {
		return false, &RateLimitInfo{
			Limit:      int(b.maxTokens),
			RetryAfter: int(b.blockedUntil.Sub(now).Seconds()) + 1,
			LimitType:  "blocked",
		}
	}

	b.tokens += now.Sub(b.lastUpdate).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return true, &RateLimitInfo{
			Allowed:   true,
			Remaining: int(b.tokens),
			Limit:     int(b.maxTokens),
			LimitType: "rate",
		}
	}

	b.blockedUntil = now.Add(rl.config.BlockDuration)
	return false, &RateLimitInfo{
		Limit:      int(b.maxTokens),
		RetryAfter: int((1-b.tokens)/b.refillRate) + 1,
		LimitType:  "rate",
	}
}

// AllowIP checks the general request budget of ip
func (rl *RateLimiter) AllowIP(ip string) (bool, *RateLimitInfo) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.consume(rl.bucket("ip:"+ip, rl.config.IPBurst, rl.config.IPRequestsPerSecond))
}

// AllowWrite checks the mutating-call budget of user, both per second and
// per day
func (rl *RateLimiter) AllowWrite(user string) (bool, *RateLimitInfo) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	allowed, info := rl.consume(rl.bucket("write:"+user, rl.config.WriteBurst, rl.config.WritesPerSecond))
	if !allowed {
		return false, info
	}

	now := rl.now()
	today := now.Format("2006-01-02")
	c, ok := rl.daily[user]
	if !ok || c.date != today {
		c = &DailyCounter{date: today}
		rl.daily[user] = c
	}
	if c.count >= rl.config.WritesPerDay {
		midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
		return false, &RateLimitInfo{
			Limit:      rl.config.WritesPerDay,
			RetryAfter: int(midnight.Sub(now).Seconds()),
			LimitType:  "daily",
		}
	}
	c.count++
	return true, &RateLimitInfo{
		Allowed:   true,
		Remaining: rl.config.WritesPerDay - c.count,
		Limit:     rl.config.WritesPerDay,
		LimitType: "daily",
	}
}

// ============ HTTP Middleware ============

func reject(w http.ResponseWriter, info *RateLimitInfo, code, message string) {
	metrics.GetCollector().RecordRateLimitHit(info.LimitType)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	if info.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(info.RetryAfter))
	}
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":       code,
		"message":     message,
		"retry_after": info.RetryAfter,
		"limit_type":  info.LimitType,
	})
}

// RateLimitMiddleware limits every request by client IP
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, info := rl.AllowIP(ClientIP(r))
			if !allowed {
				reject(w, info, "rate_limit_exceeded", "Too many requests, please slow down")
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

// WriteRateLimitMiddleware additionally limits POST requests by caller. The
// caller is the UserHeader value, or the client IP when absent.
func WriteRateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			user := r.Header.Get(UserHeader)
			if user == "" {
				user = "ip:" + ClientIP(r)
			}
			allowed, info := rl.AllowWrite(user)
			if !allowed {
				reject(w, info, "write_limit_exceeded", "Write "+info.LimitType+" limit exceeded")
				return
			}
			w.Header().Set("X-RateLimit-Write-Remaining", strconv.Itoa(info.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP, preferring proxy headers
func ClientIP(r *http.Request) string {
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

// Stats is a snapshot of limiter state
type Stats struct {
	Buckets        int `json:"buckets"`
	DailyCounters  int `json:"daily_counters"`
	BlockedBuckets int `json:"blocked_buckets"`
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() *Stats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	blocked := 0
	for _, b := range rl.buckets {
		if now.Before(b.blockedUntil) {
			blocked++
		}
	}
	return &Stats{
		Buckets:        len(rl.buckets),
		DailyCounters:  len(rl.daily),
		BlockedBuckets: blocked,
	}
}
