package chat

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andy6609/chat-fabric/internal/wire"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	srv := NewServer(opts, quietLogger())
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

type testPeer struct {
	conn net.Conn
	r    *bufio.Reader
}

func newTestPeer(t *testing.T, conn net.Conn) *testPeer {
	t.Helper()
	t.Cleanup(func() { _ = conn.Close() })
	return &testPeer{conn: conn, r: bufio.NewReader(conn)}
}

func dial(t *testing.T, srv *Server) *testPeer {
	t.Helper()
	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return newTestPeer(t, conn)
}

func (p *testPeer) localPort() int {
	if a, ok := p.conn.LocalAddr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

func (p *testPeer) send(t *testing.T, msg string) {
	t.Helper()
	if _, err := p.conn.Write(wire.Encode(msg)); err != nil {
		t.Fatalf("send %q: %v", msg, err)
	}
}

// next reads one null-terminated message.
func (p *testPeer) next(t *testing.T) string {
	t.Helper()
	_ = p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	defer p.conn.SetReadDeadline(time.Time{})
	msg, err := p.r.ReadString(wire.Terminator)
	if err != nil {
		t.Fatalf("read message: %v (partial %q)", err, msg)
	}
	return strings.TrimSuffix(msg, string(wire.Terminator))
}

// expectEOF asserts the server closed the stream.
func (p *testPeer) expectEOF(t *testing.T) {
	t.Helper()
	_ = p.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	b, err := p.r.ReadByte()
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got byte %q err %v", b, err)
	}
}

// expectSilence asserts nothing arrives within d.
func (p *testPeer) expectSilence(t *testing.T, d time.Duration) {
	t.Helper()
	_ = p.conn.SetReadDeadline(time.Now().Add(d))
	defer p.conn.SetReadDeadline(time.Time{})
	b, err := p.r.ReadByte()
	if err == nil {
		rest, _ := p.r.ReadString(wire.Terminator)
		t.Fatalf("unexpected message %q", string(b)+rest)
	}
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func waitForPeers(t *testing.T, srv *Server, n int) []PeerInfo {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		peers, err := srv.ActivePeers()
		if err != nil {
			t.Fatalf("active peers: %v", err)
		}
		if len(peers) == n {
			return peers
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d peers, have %d", n, len(peers))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// pipeListener hands out in-memory connections with chosen remote
// addresses.
type pipeListener struct {
	conns  chan net.Conn
	closed chan struct{}
	once   sync.Once
}

func newPipeListener() *pipeListener {
	return &pipeListener{conns: make(chan net.Conn), closed: make(chan struct{})}
}

func (l *pipeListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

func (l *pipeListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

func (l *pipeListener) Addr() net.Addr { return fakeAddr("pipe-listener:0") }

// connect returns the client end of a new connection whose server end
// reports remote as its peer address.
func (l *pipeListener) connect(t *testing.T, remote string) *testPeer {
	t.Helper()
	server, client := net.Pipe()
	l.push(t, &addrConn{Conn: server, remote: fakeAddr(remote)})
	return newTestPeer(t, client)
}

func (l *pipeListener) push(t *testing.T, conn net.Conn) {
	t.Helper()
	select {
	case l.conns <- conn:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not accept")
	}
}

type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }

type addrConn struct {
	net.Conn
	remote net.Addr
}

func (c *addrConn) RemoteAddr() net.Addr { return c.remote }

// failingConn reports err on every read.
type failingConn struct {
	net.Conn
	err error
}

func (c *failingConn) Read([]byte) (int, error) { return 0, c.err }

func servePipe(t *testing.T, opts Options) (*Server, *pipeListener) {
	t.Helper()
	ln := newPipeListener()
	srv := NewServer(opts, quietLogger())
	srv.serve(ln)
	t.Cleanup(srv.Stop)
	return srv, ln
}
