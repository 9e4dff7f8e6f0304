package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connected_clients",
		Help: "Number of peers currently in the connection set",
	})

	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Total messages handled by kind",
	}, []string{"kind"})

	RejectedConnections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_rejected_connections_total",
		Help: "Connections refused by the admission policy",
	})

	DroppedMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_dropped_messages_total",
		Help: "Outbound messages dropped because a peer's queue was full",
	})

	PeerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_peer_errors_total",
		Help: "Peer I/O failures by operation",
	}, []string{"op"})

	EventProcessingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_event_processing_seconds",
		Help:    "Time to process each event type",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(ConnectedClients)
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(RejectedConnections)
	prometheus.MustRegister(DroppedMessages)
	prometheus.MustRegister(PeerErrors)
	prometheus.MustRegister(EventProcessingDuration)
}
