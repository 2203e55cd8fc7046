package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Earnings metrics
	PeriodsCreated   prometheus.Counter
	PeriodsFinalized prometheus.Counter
	EarningsAccrued  *prometheus.CounterVec

	// Payout metrics
	PayoutsTotal         *prometheus.CounterVec
	PayoutAmountTotal    *prometheus.CounterVec
	VerificationsTotal   *prometheus.CounterVec
	AutoPayoutsTriggered prometheus.Counter

	// Provider metrics
	ProviderCallDuration *prometheus.HistogramVec
	ProviderErrors       *prometheus.CounterVec

	// Scheduler metrics
	SchedulerRuns *prometheus.CounterVec
}

var metrics *Metrics

// Init initializes all Prometheus metrics
func Init() *Metrics {
	if metrics != nil {
		return metrics
	}

	metrics = &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		// Earnings metrics
		PeriodsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "earnings_periods_created_total",
				Help: "Total number of earnings periods created",
			},
		),
		PeriodsFinalized: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "earnings_periods_finalized_total",
				Help: "Total number of earnings periods finalized",
			},
		),
		EarningsAccrued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "earnings_accrued_usd_total",
				Help: "Total USD earnings frozen into periods, by source",
			},
			[]string{"source"},
		),

		// Payout metrics
		PayoutsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payouts_total",
				Help: "Total number of payout transactions by provider and final status",
			},
			[]string{"provider", "status"},
		),
		PayoutAmountTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payout_amount_usd_total",
				Help: "Total USD amount of completed payouts by provider",
			},
			[]string{"provider"},
		),
		VerificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_verifications_total",
				Help: "Total payout account verification attempts by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		AutoPayoutsTriggered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "auto_payouts_triggered_total",
				Help: "Total automatic payout triggers that created a transaction",
			},
		),

		// Provider metrics
		ProviderCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_call_duration_seconds",
				Help:    "External payout provider call latency in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider", "operation"},
		),
		ProviderErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_errors_total",
				Help: "Total errors from external payout providers",
			},
			[]string{"provider", "operation"},
		),

		// Scheduler metrics
		SchedulerRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduler_runs_total",
				Help: "Total scheduler job executions by job and outcome",
			},
			[]string{"job", "outcome"},
		),
	}

	return metrics
}

// Get returns the initialized metrics, initializing them if needed
func Get() *Metrics {
	if metrics == nil {
		return Init()
	}
	return metrics
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware records HTTP metrics for each request
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		m := Get()

		start := time.Now()
		m.HTTPRequestsInFlight.Inc()

		c.Next()

		m.HTTPRequestsInFlight.Dec()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
		).Observe(time.Since(start).Seconds())
	}
}

// ObserveProviderCall records the latency and outcome of a provider call
func ObserveProviderCall(provider, operation string, start time.Time, err error) {
	m := Get()
	m.ProviderCallDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.ProviderErrors.WithLabelValues(provider, operation).Inc()
	}
}
