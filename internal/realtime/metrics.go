package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	envelopesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_realtime_envelopes_received_total",
		Help: "Inbound envelopes by type, including malformed frames.",
	}, []string{"type"})

	sendsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_realtime_sends_dropped_total",
		Help: "Outbound envelopes dropped because the channel was down.",
	})

	reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_realtime_reconnects_total",
		Help: "Reconnect attempts scheduled after unexpected closes.",
	})
)
