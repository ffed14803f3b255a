// Package metrics exposes engine activity as prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry so several engines
// can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	Messages   *prometheus.CounterVec
	Events     *prometheus.CounterVec
	RoomOps    *prometheus.CounterVec
	AuthOps    *prometheus.CounterVec
	ActiveRoom prometheus.Gauge
	Dropped    prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hashchat",
			Name:      "messages_total",
			Help:      "Messages appended to the active room, by origin and kind.",
		}, []string{"origin", "kind"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hashchat",
			Name:      "events_total",
			Help:      "Engine events published to subscribers, by kind.",
		}, []string{"kind"}),
		RoomOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hashchat",
			Name:      "room_operations_total",
			Help:      "Room create/join/leave attempts, by operation and outcome.",
		}, []string{"op", "outcome"}),
		AuthOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hashchat",
			Name:      "auth_operations_total",
			Help:      "Session transitions, by operation and outcome.",
		}, []string{"op", "outcome"}),
		ActiveRoom: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hashchat",
			Name:      "room_active",
			Help:      "1 while a room is active and the simulator is running.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hashchat",
			Name:      "events_dropped_total",
			Help:      "Events not delivered to a subscriber whose buffer was full.",
		}),
	}
	m.registry.MustRegister(m.Messages, m.Events, m.RoomOps, m.AuthOps, m.ActiveRoom, m.Dropped)
	return m
}

// Outcome labels an operation result.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
