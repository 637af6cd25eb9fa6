// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sosline"

type Metrics struct {
	registry *prometheus.Registry

	ConnectedSessions    prometheus.Gauge
	EventsOriginated     prometheus.Counter
	EventsCanceled       prometheus.Counter
	DuplicateOffers      prometheus.Counter
	PersistenceFailures  *prometheus.CounterVec
	Broadcasts           *prometheus.CounterVec
	NotificationFailures *prometheus.CounterVec
	RelayMessages        *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_sessions",
			Help:      "Number of live websocket sessions.",
		}),
		EventsOriginated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sos_originated_total",
			Help:      "SOS events persisted.",
		}),
		EventsCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sos_canceled_total",
			Help:      "SOS events canceled.",
		}),
		DuplicateOffers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sos_duplicate_offers_total",
			Help:      "Offers answered from the correlation token cache.",
		}),
		PersistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Event store failures by operation.",
		}, []string{"operation"}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_deliveries_total",
			Help:      "Messages queued on local sessions by message type.",
		}, []string{"type"}),
		NotificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Best-effort notifications that failed by channel.",
		}, []string{"channel"}),
		RelayMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cluster_relay_messages_total",
			Help:      "Room broadcasts exchanged with other instances.",
		}, []string{"direction"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "REST request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ConnectedSessions,
		m.EventsOriginated,
		m.EventsCanceled,
		m.DuplicateOffers,
		m.PersistenceFailures,
		m.Broadcasts,
		m.NotificationFailures,
		m.RelayMessages,
		m.HTTPRequestDuration,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GinMiddleware records request latency under the matched route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
