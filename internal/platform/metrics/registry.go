package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry encapsula las métricas del servicio sin estado global.
// Todos los métodos aceptan receptor nil (métricas desactivadas, p.ej. en tests).
type Registry struct {
	registry *prometheus.Registry

	busPublished     *prometheus.CounterVec
	busDelivered     *prometheus.CounterVec
	busCallbackPanic *prometheus.CounterVec

	streamsActive *prometheus.GaugeVec
	framesDropped *prometheus.CounterVec

	webhookEvents     *prometheus.CounterVec
	duplicatesDropped prometheus.Counter

	upstreamTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec

	startTime prometheus.Gauge
}

func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,

		busPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bus_published_total",
				Help: "Events published on the fan-out bus",
			},
			[]string{"event_type"},
		),
		busDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bus_delivered_total",
				Help: "Callback invocations performed by the fan-out bus",
			},
			[]string{"event_type"},
		),
		busCallbackPanic: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bus_callback_failures_total",
				Help: "Subscriber callbacks that panicked during delivery",
			},
			[]string{"event_type"},
		),

		streamsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stream_connections_active",
				Help: "Open streaming connections",
			},
			[]string{"stream", "transport"},
		),
		framesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stream_frames_dropped_total",
				Help: "Frames dropped because a connection buffer was full",
			},
			[]string{"stream"},
		),

		webhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_events_total",
				Help: "Webhook callbacks received",
			},
			[]string{"event", "outcome"}, // outcome: published, duplicate, ignored, error
		),
		duplicatesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dedupe_suppressed_total",
				Help: "Identifiers rejected by the duplicate suppressor",
			},
		),

		upstreamTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_requests_total",
				Help: "Calls to external AI/TTS/shortening services",
			},
			[]string{"service", "status"}, // status: success, error
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_request_duration_seconds",
				Help:    "Latency of calls to external services",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"service"},
		),

		startTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "process_app_start_time_seconds",
				Help: "Unix timestamp when the application started",
			},
		),
	}

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(
		r.busPublished,
		r.busDelivered,
		r.busCallbackPanic,
		r.streamsActive,
		r.framesDropped,
		r.webhookEvents,
		r.duplicatesDropped,
		r.upstreamTotal,
		r.upstreamDuration,
		r.startTime,
	)

	r.startTime.SetToCurrentTime()

	return r
}

// Handler expone /metrics.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          r.registry,
	})
}

func (r *Registry) RecordPublish(eventType string, delivered, failed int) {
	if r == nil {
		return
	}
	r.busPublished.WithLabelValues(eventType).Inc()
	if delivered > 0 {
		r.busDelivered.WithLabelValues(eventType).Add(float64(delivered))
	}
	if failed > 0 {
		r.busCallbackPanic.WithLabelValues(eventType).Add(float64(failed))
	}
}

func (r *Registry) StreamOpened(stream, transport string) {
	if r == nil {
		return
	}
	r.streamsActive.WithLabelValues(stream, transport).Inc()
}

func (r *Registry) StreamClosed(stream, transport string) {
	if r == nil {
		return
	}
	r.streamsActive.WithLabelValues(stream, transport).Dec()
}

func (r *Registry) FrameDropped(stream string) {
	if r == nil {
		return
	}
	r.framesDropped.WithLabelValues(stream).Inc()
}

func (r *Registry) RecordWebhook(event, outcome string) {
	if r == nil {
		return
	}
	r.webhookEvents.WithLabelValues(event, outcome).Inc()
	if outcome == "duplicate" {
		r.duplicatesDropped.Inc()
	}
}

// RecordUpstream registra una llamada a un servicio externo.
func (r *Registry) RecordUpstream(service string, started time.Time, err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.upstreamTotal.WithLabelValues(service, status).Inc()
	r.upstreamDuration.WithLabelValues(service).Observe(time.Since(started).Seconds())
}
