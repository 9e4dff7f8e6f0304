// Command chatcli connects to a chatsrv instance, sends every line typed
// on stdin and prints what the server sends back.
//
//	chatcli [flags] <host>
//
// Typing quit ends the session.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/andy6609/chat-fabric/internal/client"
	"github.com/andy6609/chat-fabric/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	prompt := term.IsTerminal(int(os.Stdin.Fd()))
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, prompt); err != nil {
		fmt.Fprintf(os.Stderr, "chatcli: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage: chatcli [flags] <host>")

func parseFlags(args []string) (config.Client, bool, error) {
	cfg := config.DefaultClient()
	config.LoadClientEnv(&cfg)

	fs := flag.NewFlagSet("chatcli", flag.ContinueOnError)
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "server port")
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "increase diagnostic output (repeatable)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cfg, true, nil
		}
		return cfg, false, err
	}
	switch fs.NArg() {
	case 0:
		if cfg.Host == "" {
			return cfg, false, errUsage
		}
	case 1:
		cfg.Host = fs.Arg(0)
	default:
		return cfg, false, errUsage
	}
	return cfg, false, cfg.Validate()
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, prompt bool) error {
	cfg, help, err := parseFlags(args)
	if err != nil || help {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))

	conn, err := client.Dial(ctx, cfg.Address())
	if err != nil {
		return err
	}
	logger.Info("connected", "addr", conn.RemoteAddr().String())

	sess := client.NewSession(conn, stdin, stdout, logger)
	sess.Prompt = prompt
	return sess.Run(ctx)
}
