package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NewRegistry builds the process-wide prometheus registry.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Metrics exposes application-level instruments.
type Metrics struct {
	httpDuration  *prometheus.HistogramVec
	webhookEvents *prometheus.CounterVec
	sweepRuns     prometheus.Counter
	sweepNotified prometheus.Counter
}

// New registers the domain instruments on the given registry.
func New(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "billingsync_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billingsync_webhook_events_total",
			Help: "Inbound billing provider events by kind and result.",
		}, []string{"kind", "result"}),
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billingsync_trial_sweep_runs_total",
			Help: "Trial expiry sweep executions.",
		}),
		sweepNotified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billingsync_trial_sweep_notifications_total",
			Help: "Trial ending notifications created by the sweep.",
		}),
	}

	for _, c := range []prometheus.Collector{m.httpDuration, m.webhookEvents, m.sweepRuns, m.sweepNotified} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordWebhookEvent counts one inbound provider event.
func (m *Metrics) RecordWebhookEvent(kind, result string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(kind, result).Inc()
}

// RecordSweepRun counts one sweep execution.
func (m *Metrics) RecordSweepRun() {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
}

// RecordSweepNotification counts one notification created by the sweep.
func (m *Metrics) RecordSweepNotification() {
	if m == nil {
		return
	}
	m.sweepNotified.Inc()
}

// GinMiddleware observes request latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
