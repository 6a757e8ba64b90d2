// Package transport provides the connection layer underneath the
// exchange client.  A [Dialer] decides how bytes reach the server
// (plain TCP, an SSH tunnel, a SOCKS5 proxy); an [Endpoint] wraps one
// connection attempt behind asynchronous Begin* operations that report
// completion through callbacks running on their own goroutines.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}

// Endpoint is a single-use, callback-driven connection.  Each Begin*
// call returns immediately; its callback fires exactly once, on a
// goroutine owned by the endpoint, when the operation finishes.
type Endpoint interface {
	// BeginConnect starts connecting to address.
	BeginConnect(address string, done func(err error))

	// BeginSend starts writing p.  The endpoint does not retain p
	// beyond the callback.
	BeginSend(p []byte, done func(n int, err error))

	// BeginReceive starts a single read into p.
	BeginReceive(p []byte, done func(n int, err error))

	// Shutdown half-closes both directions of an established
	// connection.  It returns ErrNotConnected when nothing is open.
	Shutdown() error

	// Close releases the connection and aborts pending operations.
	// Close is idempotent.
	Close() error
}

// Opener hands out a fresh Endpoint per exchange.
type Opener interface {
	Open(ctx context.Context) (Endpoint, error)

	// Close releases the opener's dialer.
	Close() error
}

// NewOpener returns an Opener whose endpoints dial with d.
func NewOpener(d Dialer) Opener {
	return &dialerOpener{dialer: d, network: "tcp"}
}

type dialerOpener struct {
	dialer  Dialer
	network string
}

func (o *dialerOpener) Open(ctx context.Context) (Endpoint, error) {
	return NewEndpoint(ctx, o.dialer, o.network), nil
}

func (o *dialerOpener) Close() error { return o.dialer.Close() }
