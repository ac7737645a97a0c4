// Package observability exposes Prometheus collectors for the chat core.
// Every method is safe on a nil *Metrics so components can run unobserved.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	connectionsActive prometheus.Gauge
	roomsActive       prometheus.Gauge
	broadcasts        prometheus.Counter
	framesDelivered   prometheus.Counter
	peerSendFailures  prometheus.Counter
	messagesPersisted *prometheus.CounterVec
	sessionsClosed    *prometheus.CounterVec
	processRSS        prometheus.Gauge
	processCPU        prometheus.Gauge
}

// NewMetrics registers collectors on a private registry, so several
// instances can coexist in tests.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roomchat_connections_active",
			Help: "Connections currently registered in a room bucket",
		}),
		roomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roomchat_rooms_active",
			Help: "Rooms with at least one live connection",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomchat_broadcasts_total",
			Help: "Total number of room broadcasts",
		}),
		framesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomchat_frames_delivered_total",
			Help: "Total number of frames queued to peers by broadcasts",
		}),
		peerSendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomchat_peer_send_failures_total",
			Help: "Total number of peers dropped because a send failed",
		}),
		messagesPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomchat_messages_persisted_total",
			Help: "Chat messages written to storage, by detected language",
		}, []string{"lang"}),
		sessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomchat_sessions_closed_total",
			Help: "Sessions closed, by close code",
		}, []string{"code"}),
		processRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roomchat_process_resident_bytes",
			Help: "Resident memory of the server process",
		}),
		processCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roomchat_process_cpu_percent",
			Help: "CPU usage of the server process since it started",
		}),
	}
	m.registry.MustRegister(
		m.connectionsActive, m.roomsActive, m.broadcasts, m.framesDelivered,
		m.peerSendFailures, m.messagesPersisted, m.sessionsClosed,
		m.processRSS, m.processCPU,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnectionJoined() {
	if m != nil {
		m.connectionsActive.Inc()
	}
}

func (m *Metrics) ConnectionLeft() {
	if m != nil {
		m.connectionsActive.Dec()
	}
}

func (m *Metrics) RoomsActive(n int) {
	if m != nil {
		m.roomsActive.Set(float64(n))
	}
}

func (m *Metrics) Broadcast(delivered, failed int) {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
	m.framesDelivered.Add(float64(delivered))
	m.peerSendFailures.Add(float64(failed))
}

func (m *Metrics) MessagePersisted(lang string) {
	if m != nil {
		m.messagesPersisted.WithLabelValues(lang).Inc()
	}
}

func (m *Metrics) SessionClosed(code int) {
	if m != nil {
		m.sessionsClosed.WithLabelValues(strconv.Itoa(code)).Inc()
	}
}

func (m *Metrics) ProcessStats(rss uint64, cpuPercent float64) {
	if m != nil {
		m.processRSS.Set(float64(rss))
		m.processCPU.Set(cpuPercent)
	}
}
