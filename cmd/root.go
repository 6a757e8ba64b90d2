// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"tcpreq/config"
	"tcpreq/internal/core"
	"tcpreq/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X tcpreq/cmd.version=1.1.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdout receives --version and --dry-run output.
var stdout io.Writer = os.Stdout //nolint:gochecknoglobals

// Execute parses args and runs the appropriate tcpreq mode.
func Execute(ctx context.Context, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg := config.Default()
	config.LoadFromEnv(cfg)
	envVerbose := cfg.Verbose // CountVarP zeroes its target

	fs := flag.NewFlagSet("tcpreq", flag.ContinueOnError)

	// ── exchange ─────────────────────────────────────────────────
	timeoutSec := int(cfg.Timeout / time.Second)
	fs.IntVarP(&timeoutSec, "timeout", "w", timeoutSec, "Per-stage timeout in seconds")
	fs.StringVarP(&cfg.Data, "data", "d", cfg.Data, "Request payload (default: read stdin)")
	fs.BoolVarP(&cfg.Hex, "hex", "x", cfg.Hex, "Payload is hex; print replies as hex")
	fs.IntVarP(&cfg.BufferSize, "buffer", "b", cfg.BufferSize, "Reply buffer size in bytes")
	fs.IntVarP(&cfg.Repeat, "repeat", "r", cfg.Repeat, "Number of sequential exchanges")

	// ── responder ────────────────────────────────────────────────
	fs.BoolVarP(&cfg.Listen, "listen", "l", cfg.Listen, "Run a responder instead of a request")
	fs.IntVarP(&cfg.LocalPort, "port", "p", cfg.LocalPort, "Listen port (with -l) or local source port")
	fs.BoolVarP(&cfg.KeepOpen, "keep-open", "k", cfg.KeepOpen, "Serve multiple connections (with -l)")
	fs.StringVar(&cfg.Respond, "respond", cfg.Respond, "Responder behavior: echo, fixed, silent, mute")
	fs.StringVar(&cfg.Reply, "reply", cfg.Reply, "Reply for --respond fixed")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── SOCKS proxy ──────────────────────────────────────────────
	fs.StringVar(&cfg.Proxy, "proxy", cfg.Proxy, "SOCKS5 proxy host:port")
	fs.StringVar(&cfg.ProxyAuth, "proxy-auth", cfg.ProxyAuth, "SOCKS5 credentials user:pass")

	// ── output ───────────────────────────────────────────────────
	fs.BoolVar(&cfg.Notify, "notify", cfg.Notify, "Show failures in a notification box")
	fs.BoolVar(&cfg.Stats, "stats", cfg.Stats, "Print exchange metrics as JSON on exit")
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate and print the plan without connecting")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !fs.Changed("verbose") {
		cfg.Verbose = envVerbose
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "tcpreq %s\n", version)
		return nil
	}

	cfg.Timeout = time.Duration(timeoutSec) * time.Second

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.DryRun {
		fmt.Fprintf(stdout, "dry run: %s\n", mode)
		return nil
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Listen {
		if len(remaining) > 0 {
			return fmt.Errorf("listen mode takes no positional arguments (use -p <port>)")
		}
		return nil
	}

	// Request mode: ip port.  Either may also come from the environment.
	switch len(remaining) {
	case 0:
	case 1:
		cfg.Host = remaining[0]
	case 2:
		cfg.Host = remaining[0]
		port, err := config.ParsePort(remaining[1])
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		cfg.Port = port
	default:
		return fmt.Errorf("too many arguments – expected <ip> <port>")
	}
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `tcpreq – TCP request/response tool v%s

Sends one request to a TCP server and prints the reply.  Each stage
(connect, send, receive) is bounded by the timeout.

Usage:
  tcpreq [options] <ip> <port>                Send a request
  tcpreq -l -p <port> [--respond MODE]        Run a responder
  tcpreq -T user@gateway <ip> <port>          Through an SSH tunnel
  tcpreq --proxy host:port <ip> <port>        Through a SOCKS5 proxy

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  TCPREQ_HOST, TCPREQ_PORT, TCPREQ_TIMEOUT, TCPREQ_DATA, ... mirror the
  flags and are also read from .env.local and .env.

Examples:
  tcpreq -d 'PING' 10.0.0.5 7000              One request
  echo "status" | tcpreq -w 2 ::1 9000        Payload from stdin
  tcpreq -x -d '01 02 0a' 10.0.0.5 502        Binary request, hex reply
  tcpreq -l -p 9000 -k --respond echo         Local echo responder
`)
}
