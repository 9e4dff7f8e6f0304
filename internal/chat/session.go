package chat

import (
	"errors"
	"io"
)

// readPeer blocks on p's socket and turns every read into an event for
// the loop: data, a clean end-of-stream, or a read error. It returns
// after the first end-of-stream or error, or once post refuses the event.
func readPeer(p *Peer, bufSize int, post func(event) bool) {
	for {
		// Fresh buffer per read; the loop keeps the slice after we post it.
		buf := make([]byte, bufSize)
		n, err := p.Conn.Read(buf)
		if n > 0 {
			if !post(event{Type: eventData, Peer: p, Data: buf[:n]}) {
				return
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			post(event{Type: eventClosed, Peer: p})
			return
		}
		post(event{Type: eventReadError, Peer: p, Err: err})
		return
	}
}
