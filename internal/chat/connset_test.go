package chat

import "testing"

func ids(peers []*Peer) []uint64 {
	out := make([]uint64, 0, len(peers))
	for _, p := range peers {
		out = append(out, p.ID)
	}
	return out
}

func equalIDs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestConnectionSet_KeepsAdmissionOrder(t *testing.T) {
	ln := newPipeListener()
	cs := NewConnectionSet(ln)
	if cs.Listener() != ln {
		t.Fatal("listener not retained")
	}

	p1, p2, p3 := &Peer{ID: 1}, &Peer{ID: 2}, &Peer{ID: 3}
	cs.Add(p3)
	cs.Add(p1)
	cs.Add(p2)
	cs.Add(p2)

	if got := ids(cs.Peers()); !equalIDs(got, []uint64{1, 2, 3}) {
		t.Fatalf("peers = %v", got)
	}
	if cs.Len() != 3 {
		t.Fatalf("len = %d", cs.Len())
	}
}

func TestConnectionSet_RemoveAndExcept(t *testing.T) {
	cs := NewConnectionSet(nil)
	p1, p2, p3 := &Peer{ID: 1}, &Peer{ID: 2}, &Peer{ID: 3}
	for _, p := range []*Peer{p1, p2, p3} {
		cs.Add(p)
	}

	if got := ids(cs.Except(p2)); !equalIDs(got, []uint64{1, 3}) {
		t.Fatalf("except = %v", got)
	}
	if !cs.Remove(p2) {
		t.Fatal("remove p2 reported absent")
	}
	if cs.Remove(p2) {
		t.Fatal("second remove reported present")
	}
	if cs.Contains(p2) || !cs.Contains(p1) || cs.Contains(nil) {
		t.Fatal("membership wrong after remove")
	}
	if got := ids(cs.Peers()); !equalIDs(got, []uint64{1, 3}) {
		t.Fatalf("peers = %v", got)
	}
}

func TestConnectionSet_PeersIsACopy(t *testing.T) {
	cs := NewConnectionSet(nil)
	cs.Add(&Peer{ID: 1})
	snap := cs.Peers()
	snap[0] = &Peer{ID: 99}
	if cs.Peers()[0].ID != 1 {
		t.Fatal("snapshot aliases the set")
	}
}
