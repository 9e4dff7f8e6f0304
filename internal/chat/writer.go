package chat

import (
	"bufio"
	"net"
)

// StartOutboundWriter drains out onto conn until out is closed or a write
// fails. Messages must already be wire-encoded.
func StartOutboundWriter(conn net.Conn, out <-chan []byte) {
	go func() {
		w := bufio.NewWriter(conn)
		for msg := range out {
			// Best-effort. The read side reports a broken connection.
			if _, err := w.Write(msg); err != nil {
				PeerErrors.WithLabelValues("write").Inc()
				return
			}
			if err := w.Flush(); err != nil {
				PeerErrors.WithLabelValues("write").Inc()
				return
			}
		}
	}()
}
