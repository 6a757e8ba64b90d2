package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, .env files, and environment variable loading.

const (
	// DefaultTimeout bounds each exchange stage.
	DefaultTimeout = 5 * time.Second

	// DefaultBufferSize is the reply buffer length.
	DefaultBufferSize = 4096

	// DefaultRespond is the responder behavior in listen mode.
	DefaultRespond = "echo"

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultConnTimeout is the SSH handshake timeout.
	DefaultConnTimeout = 30 * time.Second

	// EnvPrefix starts every supported environment variable.
	EnvPrefix = "TCPREQ_"
)

// DotEnvFiles are loaded in order; earlier files win.
var DotEnvFiles = []string{".env.local", ".env"}
