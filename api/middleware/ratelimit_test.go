package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, configure func(*RateLimitConfig)) (*RateLimiter, *fakeClock) {
	t.Helper()
	config := DefaultRateLimitConfig()
	if configure != nil {
		configure(config)
	}
	rl := NewRateLimiter(config)
	t.Cleanup(rl.Stop)

	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl.now = clock.now
	return rl, clock
}

func TestAllowIPBurstAndBlock(t *testing.T) {
	rl, clock := newTestLimiter(t, func(c *RateLimitConfig) {
		c.IPBurst = 3
		c.IPRequestsPerSecond = 1
		c.BlockDuration = 10 * time.Second
	})

	for i := 0; i < 3; i++ {
		allowed, info := rl.AllowIP("10.0.0.1")
		require.True(t, allowed)
		require.Equal(t, 2-i, info.Remaining)
	}

	allowed, info := rl.AllowIP("10.0.0.1")
	require.False(t, allowed)
	require.Equal(t, "rate", info.LimitType)

	// other clients are unaffected
	allowed, _ = rl.AllowIP("10.0.0.2")
	require.True(t, allowed)

	// refill does not lift the block early
	clock.advance(5 * time.Second)
	allowed, info = rl.AllowIP("10.0.0.1")
	require.False(t, allowed)
	require.Equal(t, "blocked", info.LimitType)
	require.Equal(t, 1, rl.GetStats().BlockedBuckets)

	clock.advance(6 * time.Second)
	allowed, _ = rl.AllowIP("10.0.0.1")
	require.True(t, allowed)
}

func TestAllowWriteDailyLimit(t *testing.T) {
	rl, clock := newTestLimiter(t, func(c *RateLimitConfig) {
		c.WriteBurst = 100
		c.WritesPerSecond = 100
		c.WritesPerDay = 2
	})

	for i := 0; i < 2; i++ {
		allowed, _ := rl.AllowWrite("alice")
		require.True(t, allowed)
	}
	allowed, info := rl.AllowWrite("alice")
	require.False(t, allowed)
	require.Equal(t, "daily", info.LimitType)
	require.Equal(t, 12*3600, info.RetryAfter)

	clock.advance(12 * time.Hour)
	allowed, _ = rl.AllowWrite("alice")
	require.True(t, allowed)
}

func TestCleanupDropsIdleState(t *testing.T) {
	rl, clock := newTestLimiter(t, nil)

	rl.AllowIP("10.0.0.1")
	rl.AllowWrite("alice")
	require.Equal(t, 2, rl.GetStats().Buckets)
	require.Equal(t, 1, rl.GetStats().DailyCounters)

	clock.advance(25 * time.Hour)
	rl.cleanup()
	stats := rl.GetStats()
	require.Zero(t, stats.Buckets)
	require.Zero(t, stats.DailyCounters)
}

func TestWriteRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, func(c *RateLimitConfig) {
		c.WriteBurst = 1
		c.WritesPerSecond = 1
	})
	h := WriteRateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(method, user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/v1/positions/mint", nil)
		if user != "" {
			req.Header.Set(UserHeader, user)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusNoContent, send(http.MethodPost, "alice").Code)
	rec := send(http.MethodPost, "alice")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	require.Equal(t, http.StatusNoContent, send(http.MethodPost, "bob").Code)
	require.Equal(t, http.StatusNoContent, send(http.MethodGet, "alice").Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "127.0.0.1:80", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "5.6.7.8"}, "127.0.0.1:80", "5.6.7.8"},
		{"remote addr", nil, "9.9.9.9:1234", "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, ClientIP(req))
		})
	}
}
