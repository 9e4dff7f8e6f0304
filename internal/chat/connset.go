package chat

import (
	"net"
	"slices"
)

// ConnectionSet is the listening endpoint plus every established peer,
// kept in ascending admission order. It is owned by the event loop
// goroutine and is not safe for concurrent use.
type ConnectionSet struct {
	listener net.Listener
	peers    []*Peer
}

func NewConnectionSet(ln net.Listener) *ConnectionSet {
	return &ConnectionSet{listener: ln}
}

func (cs *ConnectionSet) Listener() net.Listener { return cs.listener }

// Add inserts p at its position by ID. Adding a peer twice is a no-op.
func (cs *ConnectionSet) Add(p *Peer) {
	i, found := slices.BinarySearchFunc(cs.peers, p.ID, func(q *Peer, id uint64) int {
		switch {
		case q.ID < id:
			return -1
		case q.ID > id:
			return 1
		}
		return 0
	})
	if found {
		return
	}
	cs.peers = slices.Insert(cs.peers, i, p)
}

// Remove reports whether p was a member.
func (cs *ConnectionSet) Remove(p *Peer) bool {
	i := slices.Index(cs.peers, p)
	if i < 0 {
		return false
	}
	cs.peers = slices.Delete(cs.peers, i, i+1)
	return true
}

func (cs *ConnectionSet) Contains(p *Peer) bool {
	return p != nil && slices.Contains(cs.peers, p)
}

// Len counts established peers; the listening endpoint is not included.
func (cs *ConnectionSet) Len() int { return len(cs.peers) }

// Peers returns a copy of the established peers in ascending order.
func (cs *ConnectionSet) Peers() []*Peer {
	return slices.Clone(cs.peers)
}

// Except returns every established peer other than p.
func (cs *ConnectionSet) Except(p *Peer) []*Peer {
	out := make([]*Peer, 0, len(cs.peers))
	for _, q := range cs.peers {
		if q != p {
			out = append(out, q)
		}
	}
	return out
}
