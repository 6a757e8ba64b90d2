// Package core is the orchestration layer.  It composes transports,
// the exchange client and the responder into complete operational
// modes and provides a builder that selects the right mode from a
// Config.
//
// Architecture layers (bottom → top):
//
//	signal, transport  →  client, responder  →  core  →  cmd (CLI)
package core

import (
	"context"
	"fmt"
)

// Mode represents a complete operational mode of tcpreq (request or
// listen).  Each mode owns its full lifecycle from setup to teardown.
// String describes what Run would do, for --dry-run.
type Mode interface {
	Run(ctx context.Context) error
	fmt.Stringer
}
