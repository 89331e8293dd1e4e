package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/synthflow/landing-platform/internal/funnel"
)

// FunnelMetrics exposes counters/histograms for the checkout funnel.
type FunnelMetrics struct {
	transitionsTotal   *prometheus.CounterVec
	eventsTotal        *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	completionSeconds  prometheus.Histogram
}

func NewFunnelMetrics(reg prometheus.Registerer) *FunnelMetrics {
	m := &FunnelMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "synthflow",
			Subsystem: "funnel",
			Name:      "transitions_total",
			Help:      "Total funnel step transitions",
		}, []string{"from", "to"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "synthflow",
			Subsystem: "analytics",
			Name:      "events_total",
			Help:      "Total analytics event deliveries per sink",
		}, []string{"event", "sink", "status"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "synthflow",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total operator notification sends",
		}, []string{"kind", "status"}),
		completionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "synthflow",
			Subsystem: "funnel",
			Name:      "completion_seconds",
			Help:      "Time from session start to reveal",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.eventsTotal, m.notificationsTotal, m.completionSeconds)
	return m
}

func (m *FunnelMetrics) ObserveTransition(from, to funnel.Step) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

func (m *FunnelMetrics) ObserveCompletion(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.completionSeconds.Observe(elapsed.Seconds())
}

func (m *FunnelMetrics) ObserveEvent(event, sink, status string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(event, sink, status).Inc()
}

func (m *FunnelMetrics) ObserveNotification(kind, status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(kind, status).Inc()
}
