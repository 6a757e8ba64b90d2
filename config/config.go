// Package config defines the runtime configuration for tcpreq and
// provides helpers for parsing tunnel specifications and ports.
package config

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ncerr "tcpreq/internal/errors"
	"tcpreq/util"
)

// Config holds every tuneable for a single tcpreq run.
type Config struct {
	// ── Exchange ─────────────────────────────────────────────────────
	Host       string        // literal IP of the server
	Port       int           // server port
	LocalPort  int           // -p: listen port in listen mode
	Timeout    time.Duration // per-stage wait
	Data       string        // request payload; stdin when empty
	Hex        bool          // Data is hex and the reply is printed as hex
	BufferSize int           // reply buffer length
	Repeat     int           // sequential exchanges on one client

	// ── Responder ────────────────────────────────────────────────────
	Listen   bool
	KeepOpen bool
	Respond  string // echo, fixed, silent, mute
	Reply    string // answer for "fixed"

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw [user@]host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── SOCKS proxy ──────────────────────────────────────────────────
	Proxy     string // host:port
	ProxyAuth string // user:pass

	// ── Output ───────────────────────────────────────────────────────
	Notify  bool
	Stats   bool
	Verbose int
	DryRun  bool
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Timeout:    DefaultTimeout,
		BufferSize: DefaultBufferSize,
		Repeat:     1,
		Respond:    DefaultRespond,
	}
}

// Payload returns the request bytes from Data, decoding hex when asked.
func (c *Config) Payload() ([]byte, error) {
	if !c.Hex {
		return []byte(c.Data), nil
	}
	return DecodeHex(c.Data)
}

// DecodeHex accepts hex digits with optional whitespace between bytes.
func DecodeHex(s string) ([]byte, error) {
	clean := strings.Join(strings.Fields(s), "")
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return b, nil
}

// ── Port helpers ─────────────────────────────────────────────────────

// ParsePort accepts a decimal port in 1-65535.
func ParsePort(spec string) (int, error) {
	port, err := strconv.Atoi(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", spec)
	}
	if !util.ValidPort(port) {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || !util.ValidPort(port) {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec into the Tunnel* fields.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &ncerr.ConfigError{Field: "tunnel", Value: c.TunnelSpec, Message: err.Error()}
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Failures are returned as *errors.ConfigError.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return &ncerr.ConfigError{Field: "timeout", Value: c.Timeout,
			Message: "must be positive"}
	}

	if c.Listen {
		if c.LocalPort == 0 {
			return &ncerr.ConfigError{Field: "port", Message: "listen mode requires -p <port>"}
		}
		if !util.ValidPort(c.LocalPort) {
			return &ncerr.ConfigError{Field: "port", Value: c.LocalPort, Message: "out of range 1-65535"}
		}
		if c.TunnelEnabled || c.Proxy != "" {
			return &ncerr.ConfigError{Field: "listen", Message: "listen mode cannot use a tunnel or proxy"}
		}
		switch c.Respond {
		case "echo", "fixed", "silent", "mute":
		default:
			return &ncerr.ConfigError{Field: "respond", Value: c.Respond,
				Message: "unknown behavior", Hint: "use echo, fixed, silent or mute"}
		}
		if c.Respond == "fixed" && c.Reply == "" {
			return &ncerr.ConfigError{Field: "reply", Message: "fixed responder needs a reply"}
		}
		return nil
	}

	if c.Host == "" {
		return &ncerr.ConfigError{Field: "host", Message: "server address is required",
			Hint: "use --help for usage"}
	}
	if _, err := util.ParseIP(c.Host); err != nil {
		return &ncerr.ConfigError{Field: "host", Value: c.Host, Message: err.Error(),
			Hint: "tcpreq does not resolve names; pass a literal IPv4 or IPv6 address"}
	}
	if !util.ValidPort(c.Port) {
		return &ncerr.ConfigError{Field: "port", Value: c.Port, Message: "destination port must be 1-65535"}
	}
	if c.BufferSize < 0 {
		return &ncerr.ConfigError{Field: "buffer", Value: c.BufferSize, Message: "must not be negative"}
	}
	if c.Repeat < 1 {
		return &ncerr.ConfigError{Field: "repeat", Value: c.Repeat, Message: "must be at least 1"}
	}
	if c.Hex {
		if _, err := DecodeHex(c.Data); err != nil {
			return &ncerr.ConfigError{Field: "data", Value: c.Data, Message: err.Error()}
		}
	}

	if c.TunnelEnabled && c.Proxy != "" {
		return &ncerr.ConfigError{Field: "proxy", Message: "--proxy and --tunnel are mutually exclusive"}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &ncerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}
	if c.ProxyAuth != "" && c.Proxy == "" {
		return &ncerr.ConfigError{Field: "proxy-auth", Message: "requires --proxy"}
	}
	return nil
}
