package chat

import (
	"fmt"
	"net"
	"strconv"
)

const (
	// MaxMessage is the largest number of bytes taken from a peer in one read.
	MaxMessage = 512

	RejectMessage = "You are banned!"
	AckMessage    = "Server: I hear you, dude..."
)

// JoinNotice is broadcast to existing peers when addr is admitted.
func JoinNotice(addr string) string {
	return addr + " has connected!"
}

type PeerState int

const (
	PeerConnecting PeerState = iota
	PeerAdmitted
	PeerActive
	PeerClosed
)

func (s PeerState) String() string {
	switch s {
	case PeerConnecting:
		return "connecting"
	case PeerAdmitted:
		return "admitted"
	case PeerActive:
		return "active"
	case PeerClosed:
		return "closed"
	}
	return "unknown"
}

// Peer is one established connection in the ConnectionSet.
type Peer struct {
	ID   uint64 // admission sequence, ascending from 1
	Conn net.Conn
	Addr string // host part of the remote address, the admission key
	Port int
	Out  chan []byte // encoded messages drained by the writer goroutine

	state PeerState
}

func (p *Peer) String() string {
	return net.JoinHostPort(p.Addr, strconv.Itoa(p.Port))
}

func (p *Peer) State() PeerState { return p.state }

// PeerInfo is a read-only view of a Peer handed out of the event loop.
type PeerInfo struct {
	ID   uint64
	Addr string
	Port int
}

// AckMode selects which peer receives the acknowledgement for a message.
type AckMode int

const (
	// AckOriginator acknowledges the peer that sent the data.
	AckOriginator AckMode = iota
	// AckLastAccepted acknowledges the most recently admitted peer,
	// whoever sent the data.
	AckLastAccepted
)

func (m AckMode) String() string {
	switch m {
	case AckOriginator:
		return "origin"
	case AckLastAccepted:
		return "last-accepted"
	}
	return fmt.Sprintf("AckMode(%d)", int(m))
}

// ParseAckMode accepts the names printed by AckMode.String.
func ParseAckMode(s string) (AckMode, error) {
	switch s {
	case "origin", "":
		return AckOriginator, nil
	case "last-accepted":
		return AckLastAccepted, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownAckMode, s)
}

type eventType int

const (
	eventAccept eventType = iota
	eventAcceptError
	eventData
	eventClosed
	eventReadError
	eventQuery
)

func (t eventType) String() string {
	switch t {
	case eventAccept:
		return "accept"
	case eventAcceptError:
		return "accept_error"
	case eventData:
		return "data"
	case eventClosed:
		return "closed"
	case eventReadError:
		return "read_error"
	case eventQuery:
		return "query"
	}
	return "unknown"
}

type event struct {
	Type  eventType
	Conn  net.Conn // accept
	Peer  *Peer
	Data  []byte
	Err   error
	Reply chan []PeerInfo // query
}

// order is the position of the event's handle within one wait cycle:
// the listening endpoint first, then peers by ascending admission.
func (e event) order() uint64 {
	switch e.Type {
	case eventAccept, eventAcceptError:
		return 0
	case eventQuery:
		return ^uint64(0)
	}
	return e.Peer.ID
}

var (
	ErrUnknownAckMode = errorString("unknown ack mode")
	ErrNotStarted     = errorString("server not started")
	ErrServerStopped  = errorString("server stopped")
)

type errorString string

func (e errorString) Error() string { return string(e) }

// OpError records a failed network operation and the endpoint involved.
type OpError struct {
	Op   string // "listen", "accept", "read", "write"
	Addr string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func peerAddr(a net.Addr) (string, int) {
	if tcp, ok := a.(*net.TCPAddr); ok {
		return tcp.IP.String(), tcp.Port
	}
	host, port, err := net.SplitHostPort(a.String())
	if err != nil {
		return a.String(), 0
	}
	n, _ := strconv.Atoi(port)
	return host, n
}
