package config

import (
	"net"
	"strconv"

	"github.com/andy6609/chat-fabric/internal/chat"
	"github.com/andy6609/chat-fabric/internal/wire"
)

const (
	// DefaultMetricsAddr serves /metrics for Prometheus.
	DefaultMetricsAddr = ":9090"

	DefaultLogLevel = "info"
)

// DefaultServer binds every interface on the well-known port and
// acknowledges the sender of each message.
func DefaultServer() Server {
	return Server{
		ListenAddr:  net.JoinHostPort("", strconv.Itoa(wire.DefaultPort)),
		MetricsAddr: DefaultMetricsAddr,
		AckMode:     chat.AckOriginator.String(),
		RejectDelay: chat.DefaultRejectDelay,
		LogLevel:    DefaultLogLevel,
	}
}

func DefaultClient() Client {
	return Client{Port: wire.DefaultPort}
}
