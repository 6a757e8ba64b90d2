package core

import (
	"fmt"
	"io"
	"os"

	"tcpreq/config"
	"tcpreq/internal/client"
	"tcpreq/internal/metrics"
	"tcpreq/internal/notify"
	"tcpreq/internal/responder"
	"tcpreq/internal/transport"
	"tcpreq/util"
)

// Build constructs the appropriate Mode from the given configuration.
// Nothing is dialled or bound until the mode runs.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Listen {
		return buildListen(cfg, logger)
	}
	return buildRequest(cfg, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildRequest(cfg *config.Config, logger *util.Logger) (Mode, error) {
	dialer, via, err := buildDialer(cfg, logger)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if cfg.Data != "" {
		if payload, err = cfg.Payload(); err != nil {
			return nil, err
		}
	}

	var notifier notify.Notifier
	if cfg.Notify {
		notifier = notify.NewConsole(os.Stderr)
	}

	return &RequestMode{
		Client: client.Config{
			Address:  cfg.Host,
			Port:     cfg.Port,
			Timeout:  cfg.Timeout,
			Log:      logger.Sink(),
			Notify:   cfg.Notify,
			Notifier: notifier,
			Opener:   transport.NewOpener(dialer),
			Metrics:  metrics.New(),
			Logger:   logger,
		},
		Via:        via,
		Payload:    payload,
		BufferSize: cfg.BufferSize,
		Repeat:     cfg.Repeat,
		Hex:        cfg.Hex,
		Stats:      cfg.Stats,
		Logger:     logger,
	}, nil
}

func buildListen(cfg *config.Config, logger *util.Logger) (Mode, error) {
	behavior, err := responder.ParseBehavior(cfg.Respond)
	if err != nil {
		return nil, err
	}
	return &ListenMode{
		Address:  fmt.Sprintf(":%d", cfg.LocalPort),
		Behavior: behavior,
		Reply:    []byte(cfg.Reply),
		KeepOpen: cfg.KeepOpen,
		Timeout:  cfg.Timeout,
		Logger:   logger,
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config
// and a short description of the route for logs and --dry-run.
func buildDialer(cfg *config.Config, logger *util.Logger) (transport.Dialer, string, error) {
	switch {
	case cfg.TunnelEnabled:
		sshCfg := &transport.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   config.DefaultConnTimeout,
		}
		via := "ssh " + util.FormatAddr(cfg.TunnelHost, cfg.TunnelPort)
		if cfg.TunnelUser != "" {
			via = "ssh " + cfg.TunnelUser + "@" + util.FormatAddr(cfg.TunnelHost, cfg.TunnelPort)
		}
		return transport.NewSSHDialer(sshCfg, logger), via, nil

	case cfg.Proxy != "":
		d, err := transport.NewSOCKSDialer(cfg.Proxy, cfg.ProxyAuth, cfg.Timeout)
		if err != nil {
			return nil, "", err
		}
		return d, "socks5 " + cfg.Proxy, nil

	default:
		// No dial timeout: the client's connect wait bounds the dial.
		return &transport.TCPDialer{LocalPort: cfg.LocalPort}, "tcp", nil
	}
}

// stdio returns r and w, or the process streams when they are nil.
func stdio(r io.Reader, w io.Writer) (io.Reader, io.Writer) {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return r, w
}
