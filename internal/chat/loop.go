package chat

import (
	"sort"
	"time"

	"github.com/andy6609/chat-fabric/internal/wire"
)

// run is the readiness loop. It blocks until at least one event is
// pending, takes every event already queued as one wait cycle, and
// dispatches them in handle order. Only this goroutine touches conns.
func (s *Server) run() {
	defer func() {
		s.closeAll()
		close(s.doneCh)
		// Posts fail from here on; release whatever slipped in before.
		s.drainEvents()
	}()

	for {
		var first event
		select {
		case first = <-s.events:
		case <-s.stopCh:
			return
		}

		batch := s.collect(first)
		for i, ev := range batch {
			if err := s.dispatch(ev); err != nil {
				s.err = err
				s.logger.Error("event loop stopped", "error", err)
				discard(batch[i+1:])
				return
			}
		}
	}
}

// collect returns first plus every event queued right now, ordered by
// handle: the listener, then peers in admission order. Events of one
// peer keep their arrival order.
func (s *Server) collect(first event) []event {
	batch := []event{first}
	for n := len(s.events); n > 0; n-- {
		batch = append(batch, <-s.events)
	}
	sortCycle(batch)
	return batch
}

func sortCycle(batch []event) {
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].order() < batch[j].order()
	})
}

func (s *Server) dispatch(ev event) error {
	start := time.Now()
	defer func() {
		EventProcessingDuration.WithLabelValues(ev.Type.String()).Observe(time.Since(start).Seconds())
	}()

	switch ev.Type {
	case eventAccept:
		s.acceptAndAdmit(ev)
	case eventAcceptError:
		return &OpError{Op: "accept", Addr: s.listener.Addr().String(), Err: ev.Err}
	case eventData:
		s.handleClientData(ev.Peer, ev.Data)
	case eventClosed:
		s.handleClosed(ev.Peer)
	case eventReadError:
		return s.handleReadError(ev.Peer, ev.Err)
	case eventQuery:
		ev.Reply <- s.snapshot()
	}
	return nil
}

// acceptAndAdmit is the only place the connection set grows.
func (s *Server) acceptAndAdmit(ev event) {
	addr, port := peerAddr(ev.Conn.RemoteAddr())

	if d := s.opts.Policy.Evaluate(addr); !d.Accept {
		s.logger.Info("client rejected", "addr", addr, "port", port, "reason", d.Reason)
		RejectedConnections.Inc()
		MessagesTotal.WithLabelValues("reject").Inc()
		s.reject(ev.Conn, addr)
		return
	}

	s.nextID++
	p := &Peer{
		ID:    s.nextID,
		Conn:  ev.Conn,
		Addr:  addr,
		Port:  port,
		Out:   make(chan []byte, s.opts.OutboundBuffer),
		state: PeerAdmitted,
	}
	s.conns.Add(p)
	s.lastAccepted = p
	ConnectedClients.Set(float64(s.conns.Len()))

	s.logger.Info("client connected", "peer", p.ID, "addr", addr, "port", port)
	s.startPeer(p)
	p.state = PeerActive

	notice := wire.Encode(JoinNotice(addr))
	for _, other := range s.conns.Except(p) {
		s.send(other, notice)
		MessagesTotal.WithLabelValues("join").Inc()
	}
}

func (s *Server) handleClientData(p *Peer, data []byte) {
	if !s.conns.Contains(p) {
		return
	}
	MessagesTotal.WithLabelValues("message").Inc()
	s.logger.Info("incoming message", "peer", p.ID, "addr", p.Addr, "text", wire.Text(data))

	target := s.ackTarget(p)
	if target == nil {
		s.logger.Warn("acknowledgement has no recipient", "peer", p.ID, "ack_mode", s.opts.AckMode.String())
		return
	}
	s.send(target, wire.Encode(AckMessage))
	MessagesTotal.WithLabelValues("ack").Inc()
}

func (s *Server) ackTarget(origin *Peer) *Peer {
	if s.opts.AckMode == AckLastAccepted {
		if s.conns.Contains(s.lastAccepted) {
			return s.lastAccepted
		}
		return nil
	}
	return origin
}

func (s *Server) handleClosed(p *Peer) {
	if !s.conns.Contains(p) {
		return
	}
	s.drop(p)
	MessagesTotal.WithLabelValues("disconnect").Inc()
	s.logger.Info("client disconnected", "peer", p.ID, "addr", p.Addr, "port", p.Port)
}

func (s *Server) handleReadError(p *Peer, err error) error {
	if !s.conns.Contains(p) {
		// We closed it ourselves.
		return nil
	}
	PeerErrors.WithLabelValues("read").Inc()
	opErr := &OpError{Op: "read", Addr: p.String(), Err: err}
	if s.opts.AbortOnReadError {
		return opErr
	}
	s.logger.Warn("dropping peer", "peer", p.ID, "error", opErr)
	s.drop(p)
	return nil
}

// send queues msg for p without blocking the loop. A full queue drops
// the message.
func (s *Server) send(p *Peer, msg []byte) {
	select {
	case p.Out <- msg:
	default:
		DroppedMessages.Inc()
		s.logger.Warn("outbound queue full, message dropped", "peer", p.ID)
	}
}

func (s *Server) drop(p *Peer) {
	s.conns.Remove(p)
	p.state = PeerClosed
	close(p.Out)
	_ = p.Conn.Close()
	ConnectedClients.Set(float64(s.conns.Len()))
}

func (s *Server) snapshot() []PeerInfo {
	peers := s.conns.Peers()
	out := make([]PeerInfo, 0, len(peers))
	for _, p := range peers {
		out = append(out, PeerInfo{ID: p.ID, Addr: p.Addr, Port: p.Port})
	}
	return out
}

func (s *Server) closeAll() {
	_ = s.listener.Close()
	for _, p := range s.conns.Peers() {
		s.drop(p)
	}
	s.drainEvents()
}

// drainEvents discards queued events.
func (s *Server) drainEvents() {
	for {
		select {
		case ev := <-s.events:
			discard([]event{ev})
		default:
			return
		}
	}
}

// discard closes accepted connections that will never be admitted.
func discard(evs []event) {
	for _, ev := range evs {
		if ev.Type == eventAccept {
			_ = ev.Conn.Close()
		}
	}
}
