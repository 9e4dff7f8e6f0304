package chat

import (
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/andy6609/chat-fabric/internal/wire"
)

// Options tunes a Server. Zero values take the defaults below, except
// RejectDelay where zero means no pause.
type Options struct {
	Addr             string
	Policy           AdmissionPolicy
	AckMode          AckMode
	AbortOnReadError bool          // a single peer's read error stops the whole server
	RejectDelay      time.Duration // pause between the rejection message and close; zero closes at once
	BufferSize       int           // bytes taken per read
	OutboundBuffer   int           // queued messages per peer before dropping
	EventBuffer      int
}

const (
	DefaultRejectDelay    = time.Second
	defaultOutboundBuffer = 32
	defaultEventBuffer    = 128
)

type Server struct {
	opts     Options
	logger   *slog.Logger
	listener net.Listener

	events   chan event
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup // accept loop, peer readers, rejections
	err      error          // written by the loop before doneCh closes

	// Owned by the loop goroutine.
	conns        *ConnectionSet
	nextID       uint64
	lastAccepted *Peer
}

func NewServer(opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Addr == "" {
		opts.Addr = net.JoinHostPort("", strconv.Itoa(wire.DefaultPort))
	}
	if opts.Policy == nil {
		opts.Policy = AllowAll
	}
	if opts.RejectDelay < 0 {
		opts.RejectDelay = 0
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = MaxMessage
	}
	if opts.OutboundBuffer <= 0 {
		opts.OutboundBuffer = defaultOutboundBuffer
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	return &Server{
		opts:   opts,
		logger: logger,
		events: make(chan event, opts.EventBuffer),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start binds the listening endpoint and launches the event loop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return &OpError{Op: "listen", Addr: s.opts.Addr, Err: err}
	}
	s.serve(ln)
	return nil
}

func (s *Server) serve(ln net.Listener) {
	s.listener = ln
	s.conns = NewConnectionSet(ln)

	s.wg.Add(1)
	go s.acceptLoop(ln)
	go s.run()

	s.logger.Info("waiting for connections", "addr", ln.Addr().String(),
		"ack_mode", s.opts.AckMode.String())
}

// Stop closes the listener and every peer, then waits for all goroutines.
func (s *Server) Stop() {
	if s.listener == nil {
		return
	}
	s.logger.Info("shutting down")

	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
	s.wg.Wait()

	s.logger.Info("shutdown complete")
}

// Done is closed when the event loop has exited, either through Stop or
// because of a fatal error.
func (s *Server) Done() <-chan struct{} { return s.doneCh }

// Err reports why the loop exited. It is nil after a plain Stop.
func (s *Server) Err() error {
	select {
	case <-s.doneCh:
		return s.err
	default:
		return nil
	}
}

// Addr is the bound listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ActivePeers asks the loop for the current connection set.
func (s *Server) ActivePeers() ([]PeerInfo, error) {
	if s.listener == nil {
		return nil, ErrNotStarted
	}
	reply := make(chan []PeerInfo, 1)
	if !s.post(event{Type: eventQuery, Reply: reply}) {
		return nil, errors.Join(ErrServerStopped, s.Err())
	}
	select {
	case peers := <-reply:
		return peers, nil
	case <-s.doneCh:
		return nil, errors.Join(ErrServerStopped, s.Err())
	}
}

func (s *Server) post(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.doneCh:
		return false
	}
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.post(event{Type: eventAcceptError, Err: err})
			}
			return
		}
		if !s.post(event{Type: eventAccept, Conn: conn}) {
			_ = conn.Close()
			return
		}
	}
}

func (s *Server) startPeer(p *Peer) {
	StartOutboundWriter(p.Conn, p.Out)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		readPeer(p, s.opts.BufferSize, s.post)
	}()
}

// reject tells conn it is banned, waits for the message to flush, and
// closes it. It runs off the loop so the pause stalls nobody else.
func (s *Server) reject(conn net.Conn, addr string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer conn.Close()

		if _, err := conn.Write(wire.Encode(RejectMessage)); err != nil {
			PeerErrors.WithLabelValues("write").Inc()
			s.logger.Warn("could not send rejection", "addr", addr, "error", err)
			return
		}
		if s.opts.RejectDelay == 0 {
			return
		}
		t := time.NewTimer(s.opts.RejectDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-s.doneCh:
		}
	}()
}
