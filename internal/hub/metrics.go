package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the gateway collectors. A nil Registerer builds
// unregistered collectors.
type Metrics struct {
	Connections   prometheus.Gauge
	Events        *prometheus.CounterVec
	MessagesSent  prometheus.Counter
	AuthFailures  *prometheus.CounterVec
	DroppedEvents prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "aura",
			Subsystem: "gateway",
			Name:      "connections",
			Help:      "Currently admitted WebSocket connections",
		}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aura",
			Subsystem: "gateway",
			Name:      "events_total",
			Help:      "Inbound events processed, by event name",
		}, []string{"event"}),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aura",
			Subsystem: "fanout",
			Name:      "messages_sent_total",
			Help:      "Messages persisted and fanned out",
		}),
		AuthFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aura",
			Subsystem: "gateway",
			Name:      "auth_failures_total",
			Help:      "Rejected handshakes, by reason",
		}, []string{"reason"}),
		DroppedEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aura",
			Subsystem: "gateway",
			Name:      "dropped_events_total",
			Help:      "Outbound events dropped because a client buffer was full or closed",
		}),
	}
}
