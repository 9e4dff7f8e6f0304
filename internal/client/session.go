// Package client runs the terminal side of a chat connection: one loop
// sends typed lines to the server while another prints what the server
// sends back.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/andy6609/chat-fabric/internal/wire"
)

const (
	// QuitCommand ends the session instead of being sent.
	QuitCommand = "quit"

	// BufferSize is the receive buffer used for each socket read.
	BufferSize = 256
)

// Dial connects to the server at addr. Name resolution is left to the
// dialer.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return conn, nil
}

// Session is a duplex session over one connection. The writer loop runs
// on the goroutine that calls Run and owns the decision to stop; the
// reader loop runs on its own goroutine.
type Session struct {
	conn   net.Conn
	in     io.Reader
	out    *syncWriter
	logger *slog.Logger

	// Prompt prints ">" before each line. Set it when in is a terminal.
	Prompt bool

	done     chan struct{} // closed once the session is shutting down
	stopOnce sync.Once
}

func NewSession(conn net.Conn, in io.Reader, out io.Writer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		conn:   conn,
		in:     in,
		out:    &syncWriter{w: out},
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Run blocks until the user quits, input ends, the server closes the
// stream, ctx is cancelled, or an I/O error occurs. Only the last case
// returns an error. The connection is closed on return.
func (s *Session) Run(ctx context.Context) error {
	readerErr := make(chan error, 1)
	go func() { readerErr <- s.readLoop() }()

	lines := make(chan string)
	go s.pumpInput(lines)

	s.out.printf("\nType something and press [RETURN] to send it to the server.\n")
	s.out.printf("Type '%s' to end the session.\n", QuitCommand)

	for {
		s.prompt()
		select {
		case line, ok := <-lines:
			if !ok {
				s.logger.Debug("input closed")
				return s.shutdown(readerErr)
			}
			if strings.TrimSpace(line) == QuitCommand {
				s.out.printf("Quitting...\n")
				return s.shutdown(readerErr)
			}
			if _, err := s.conn.Write(wire.Encode(line)); err != nil {
				s.stop()
				<-readerErr
				return fmt.Errorf("write message: %w", err)
			}
		case err := <-readerErr:
			s.stop()
			if err != nil {
				return err
			}
			s.out.printf("\nConnection closed by server.\n")
			return nil
		case <-ctx.Done():
			return s.shutdown(readerErr)
		}
	}
}

// shutdown signals the reader, closes the socket and waits for the reader
// to observe it.
func (s *Session) shutdown(readerErr <-chan error) error {
	s.stop()
	return <-readerErr
}

func (s *Session) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *Session) stopping() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// readLoop prints everything the server sends. It returns nil on a clean
// end-of-stream or when the session closed the socket under it.
func (s *Session) readLoop() error {
	s.logger.Debug("reader started")
	buf := make([]byte, BufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			for _, msg := range wire.Split(buf[:n]) {
				s.out.printf("%s\n", msg)
			}
			// No stale tail may reach the next, shorter message.
			clear(buf[:n])
		}
		if err == nil {
			continue
		}
		if s.stopping() || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("read from server: %w", err)
	}
}

// pumpInput forwards lines from in until it ends or the session stops.
func (s *Session) pumpInput(lines chan<- string) {
	defer close(lines)
	r := bufio.NewReader(s.in)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			select {
			case lines <- strings.TrimRight(line, "\r\n"):
			case <-s.done:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Warn("reading input", "error", err)
			}
			return
		}
	}
}

func (s *Session) prompt() {
	if s.Prompt {
		s.out.printf("\n>")
	}
}

// syncWriter serialises output from the two loops.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.w, format, args...)
}
