package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsActive is the number of live WebSocket connections.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "frontrow",
		Name:      "connections_active",
		Help:      "Number of live WebSocket connections.",
	})

	// SeatsOccupied is the number of currently occupied seats.
	SeatsOccupied = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "frontrow",
		Name:      "seats_occupied",
		Help:      "Number of currently occupied seats.",
	})

	// SignalsRelayed counts forwarded signaling messages by kind.
	SignalsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "frontrow",
		Name:      "signals_relayed_total",
		Help:      "Signaling messages forwarded to a live target.",
	}, []string{"kind"})

	// SignalsDropped counts signaling messages dropped for a dead target.
	SignalsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "frontrow",
		Name:      "signals_dropped_total",
		Help:      "Signaling messages dropped because the target was not connected.",
	}, []string{"kind"})
)
