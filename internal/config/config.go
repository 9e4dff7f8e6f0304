// Package config holds the runtime configuration of the chat server and
// client, with defaults, an environment overlay and validation.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/andy6609/chat-fabric/internal/chat"
)

// Server configures chatsrv.
type Server struct {
	ListenAddr       string
	MetricsAddr      string // empty disables the metrics endpoint
	Banned           []string
	AckMode          string // "origin" or "last-accepted"
	AbortOnReadError bool
	RejectDelay      time.Duration
	LogLevel         string
}

// Client configures chatcli.
type Client struct {
	Host    string
	Port    int
	Verbose int
}

// Address is the host:port the client dials.
func (c *Client) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks that the server configuration is usable.
func (c *Server) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("listen address %q: %w", c.ListenAddr, err)
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("metrics address %q: %w", c.MetricsAddr, err)
		}
		if c.MetricsAddr == c.ListenAddr {
			return fmt.Errorf("metrics address must differ from listen address %q", c.ListenAddr)
		}
	}
	if _, err := chat.ParseAckMode(c.AckMode); err != nil {
		return err
	}
	if c.RejectDelay < 0 {
		return fmt.Errorf("reject delay must not be negative, got %s", c.RejectDelay)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	for _, b := range c.Banned {
		if strings.TrimSpace(b) == "" {
			return fmt.Errorf("banned address must not be empty")
		}
	}
	return nil
}

// Level parses LogLevel.
func (c *Server) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// Validate checks that the client configuration is usable.
func (c *Client) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("server host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", c.Port)
	}
	return nil
}

// Level maps the -v count onto a slog level: warnings by default, info
// with one -v, debug with two or more.
func (c *Client) Level() slog.Level {
	switch {
	case c.Verbose >= 2:
		return slog.LevelDebug
	case c.Verbose == 1:
		return slog.LevelInfo
	}
	return slog.LevelWarn
}
