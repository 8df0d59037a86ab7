package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// ConflictCodeKey is the Locals key handlers set when a guard rejects a
// request, so the metrics middleware can count the rule that fired.
const ConflictCodeKey = "conflict_code"

var histogramBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

type Metrics struct {
	requestTotal    *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	guardRejections *prometheus.CounterVec
	rateLimitHits   *prometheus.CounterVec
}

// NewMetrics registers the HTTP collectors on reg. Collectors already
// registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worksync",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "worksync",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
		guardRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worksync",
			Subsystem: "api",
			Name:      "guard_rejections_total",
			Help:      "Mutations rejected by a consistency rule, by conflict code",
		}, []string{"code"}),
		rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worksync",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"method"}),
	}

	m.requestTotal = register(reg, m.requestTotal)
	m.requestLatency = register(reg, m.requestLatency)
	m.guardRejections = register(reg, m.guardRejections)
	m.rateLimitHits = register(reg, m.rateLimitHits)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// Handler records count and latency per route, plus guard rejections flagged
// by handlers through ConflictCodeKey.
func (m *Metrics) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  c.Route().Path,
			"status": strconv.Itoa(status),
		}
		m.requestTotal.With(labels).Inc()
		m.requestLatency.With(labels).Observe(time.Since(start).Seconds())

		if code, ok := c.Locals(ConflictCodeKey).(string); ok && code != "" {
			m.guardRejections.WithLabelValues(code).Inc()
		}
		return err
	}
}

func (m *Metrics) recordRateLimitHit(method string) {
	if m == nil {
		return
	}
	m.rateLimitHits.WithLabelValues(method).Inc()
}
