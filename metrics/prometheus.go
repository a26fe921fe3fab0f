package metrics

import (
	"math/big"
	"net/http"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DSC engine metrics collector

const namespace = "dsc"

var (
	// Singleton collector
	collector     *Collector
	collectorOnce sync.Once

	// token amounts are reported in whole units of 18 decimals
	unitScale = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
)

// Collector holds all DSC metrics
type Collector struct {
	// Engine operations
	OperationsTotal  *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	HealthFactor     prometheus.Histogram

	// Collateral and supply
	CollateralFlow *prometheus.CounterVec
	DscSupplyFlow  *prometheus.CounterVec

	// Liquidations
	LiquidationsTotal     *prometheus.CounterVec
	LiquidationDebtCover  *prometheus.CounterVec
	LiquidationCollateral *prometheus.CounterVec

	// Oracle
	OraclePrice       *prometheus.GaugeVec
	OracleRounds      *prometheus.CounterVec
	OracleUnavailable *prometheus.CounterVec

	// WebSocket
	WSConnectionsActive prometheus.Gauge
	WSMessagesTotal     *prometheus.CounterVec

	// API
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec
	RateLimitHits     *prometheus.CounterVec
}

// GetCollector returns the singleton metrics collector
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

func newCollector() *Collector {
	c := &Collector{}

	c.OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Engine operations by outcome and error kind",
		},
		[]string{"operation", "status", "kind"},
	)

	c.OperationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_latency_ms",
			Help:      "Engine operation latency in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50},
		},
		[]string{"operation"},
	)

	c.HealthFactor = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "health_factor",
			Help:      "Health factor of accounts after a successful operation",
			Buckets:   []float64{0.5, 0.9, 1, 1.1, 1.25, 1.5, 2, 5, 10},
		},
	)

	c.CollateralFlow = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collateral",
			Name:      "flow",
			Help:      "Collateral moved into or out of custody",
		},
		[]string{"token", "direction"},
	)

	c.DscSupplyFlow = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supply",
			Name:      "flow",
			Help:      "DSC minted or burned",
		},
		[]string{"direction"},
	)

	c.LiquidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidations",
			Name:      "total",
			Help:      "Total number of liquidations",
		},
		[]string{"token"},
	)

	c.LiquidationDebtCover = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidations",
			Name:      "debt_covered",
			Help:      "DSC debt covered by liquidators",
		},
		[]string{"token"},
	)

	c.LiquidationCollateral = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidations",
			Name:      "collateral_seized",
			Help:      "Collateral seized including bonus",
		},
		[]string{"token"},
	)

	c.OraclePrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "price",
			Help:      "Latest round answer per feed",
		},
		[]string{"feed_id"},
	)

	c.OracleRounds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "rounds_total",
			Help:      "Rounds submitted per feed",
		},
		[]string{"feed_id"},
	)

	c.OracleUnavailable = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "unavailable_total",
			Help:      "Price reads that degraded to zero",
		},
		[]string{"token"},
	)

	c.WSConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_active",
			Help:      "Number of active WebSocket connections",
		},
	)

	c.WSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_total",
			Help:      "Total WebSocket messages sent",
		},
		[]string{"channel"},
	)

	c.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests",
		},
		[]string{"method", "path", "status"},
	)

	c.APIRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_latency_ms",
			Help:      "API request latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"method", "path"},
	)

	c.RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limit_hits",
			Help:      "Total rate limit hits",
		},
		[]string{"limit_type"},
	)

	c.registerAll()

	return c
}

func (c *Collector) registerAll() {
	prometheus.MustRegister(
		c.OperationsTotal,
		c.OperationLatency,
		c.HealthFactor,
		c.CollateralFlow,
		c.DscSupplyFlow,
		c.LiquidationsTotal,
		c.LiquidationDebtCover,
		c.LiquidationCollateral,
		c.OraclePrice,
		c.OracleRounds,
		c.OracleUnavailable,
		c.WSConnectionsActive,
		c.WSMessagesTotal,
		c.APIRequestsTotal,
		c.APIRequestLatency,
		c.RateLimitHits,
	)
}

// ToUnits converts an 18-decimal integer amount into a float of whole units.
func ToUnits(amount math.Int) float64 {
	if amount.IsNil() {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(amount.BigInt()), unitScale).Float64()
	return f
}

// ============ Recording Helpers ============

// RecordOperation records the outcome of an engine operation
func (c *Collector) RecordOperation(operation, kind string, success bool, latencyMs float64) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.OperationsTotal.WithLabelValues(operation, status, kind).Inc()
	c.OperationLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHealthFactor observes a health factor expressed with the given precision.
// Debt-free accounts are skipped.
func (c *Collector) RecordHealthFactor(healthFactor, maxHealthFactor, precision math.Int) {
	if healthFactor.IsNil() || healthFactor.Equal(maxHealthFactor) || !precision.IsPositive() {
		return
	}
	hf, _ := new(big.Float).Quo(
		new(big.Float).SetInt(healthFactor.BigInt()),
		new(big.Float).SetInt(precision.BigInt()),
	).Float64()
	c.HealthFactor.Observe(hf)
}

// RecordCollateralFlow records collateral moving "in" or "out" of custody
func (c *Collector) RecordCollateralFlow(token, direction string, amount math.Int) {
	c.CollateralFlow.WithLabelValues(token, direction).Add(ToUnits(amount))
}

// RecordDscSupply records DSC being minted or burned
func (c *Collector) RecordDscSupply(direction string, amount math.Int) {
	c.DscSupplyFlow.WithLabelValues(direction).Add(ToUnits(amount))
}

// RecordLiquidation records a liquidation event
func (c *Collector) RecordLiquidation(token string, debtCovered, collateralSeized math.Int) {
	c.LiquidationsTotal.WithLabelValues(token).Inc()
	c.LiquidationDebtCover.WithLabelValues(token).Add(ToUnits(debtCovered))
	c.LiquidationCollateral.WithLabelValues(token).Add(ToUnits(collateralSeized))
}

// RecordOracleRound records a submitted round
func (c *Collector) RecordOracleRound(feedID string, answer math.Int, decimals uint32) {
	c.OracleRounds.WithLabelValues(feedID).Inc()
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	price, _ := new(big.Float).Quo(new(big.Float).SetInt(answer.BigInt()), scale).Float64()
	c.OraclePrice.WithLabelValues(feedID).Set(price)
}

// RecordOracleUnavailable records a price read that degraded to zero
func (c *Collector) RecordOracleUnavailable(token string) {
	c.OracleUnavailable.WithLabelValues(token).Inc()
}

// RecordAPIRequest records an API request
func (c *Collector) RecordAPIRequest(method, path, status string, latencyMs float64) {
	c.APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.APIRequestLatency.WithLabelValues(method, path).Observe(latencyMs)
}

// RecordRateLimitHit records a rejected request
func (c *Collector) RecordRateLimitHit(limitType string) {
	c.RateLimitHits.WithLabelValues(limitType).Inc()
}

// RecordWSConnection records WebSocket connection changes
func (c *Collector) RecordWSConnection(delta int) {
	c.WSConnectionsActive.Add(float64(delta))
}

// RecordWSMessage records a WebSocket message
func (c *Collector) RecordWSMessage(channel string) {
	c.WSMessagesTotal.WithLabelValues(channel).Inc()
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for measuring latency
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMs returns the elapsed time in milliseconds
func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}
