// Command chatsrv accepts chat clients on a TCP port, announces each new
// peer to the others and acknowledges every message it receives.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/andy6609/chat-fabric/internal/chat"
	"github.com/andy6609/chat-fabric/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "chatsrv: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (config.Server, bool, error) {
	cfg := config.DefaultServer()
	config.LoadServerEnv(&cfg)

	fs := flag.NewFlagSet("chatsrv", flag.ContinueOnError)
	fs.StringVarP(&cfg.ListenAddr, "addr", "a", cfg.ListenAddr, "chat listen address")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "metrics listen address (empty disables)")
	fs.StringSliceVarP(&cfg.Banned, "ban", "b", cfg.Banned, "peer address to reject (repeatable)")
	fs.StringVar(&cfg.AckMode, "ack-mode", cfg.AckMode, "acknowledge the sender (origin) or the newest peer (last-accepted)")
	fs.BoolVar(&cfg.AbortOnReadError, "abort-on-read-error", cfg.AbortOnReadError, "stop the server when any peer read fails")
	fs.DurationVar(&cfg.RejectDelay, "reject-delay", cfg.RejectDelay, "pause before closing a rejected connection")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cfg, true, nil
		}
		return cfg, false, err
	}
	if fs.NArg() > 0 {
		return cfg, false, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return cfg, false, cfg.Validate()
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, help, err := parseFlags(args)
	if err != nil || help {
		return err
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: level,
	}))

	ackMode, _ := chat.ParseAckMode(cfg.AckMode)
	srv := chat.NewServer(chat.Options{
		Addr:             cfg.ListenAddr,
		Policy:           chat.NewDenylist(cfg.Banned...),
		AckMode:          ackMode,
		AbortOnReadError: cfg.AbortOnReadError,
		RejectDelay:      cfg.RejectDelay,
	}, logger)
	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		return err
	}

	var metrics *http.Server
	if cfg.MetricsAddr != "" {
		metrics = serveMetrics(cfg.MetricsAddr, logger)
	}

	select {
	case <-ctx.Done():
	case <-srv.Done():
	}
	srv.Stop()

	if metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metrics.Shutdown(shutdownCtx)
	}
	return srv.Err()
}

func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	hs := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics endpoint started", "addr", addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", "error", err)
		}
	}()
	return hs
}
