package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	ncerr "tcpreq/internal/errors"
)

// TCPDialer establishes plain TCP connections, optionally binding to a
// specific source port.
type TCPDialer struct {
	Timeout   time.Duration
	LocalPort int // optional source-port binding (0 = ephemeral)

	// KeepAlive is passed to net.Dialer.  Exchanges are short-lived,
	// so zero disables keep-alive probes instead of using Go's default.
	KeepAlive time.Duration
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	keepAlive := d.KeepAlive
	if keepAlive == 0 {
		keepAlive = -1
	}
	dialer := net.Dialer{Timeout: d.Timeout, KeepAlive: keepAlive}

	if d.LocalPort > 0 {
		a, err := net.ResolveTCPAddr(network, fmt.Sprintf(":%d", d.LocalPort))
		if err != nil {
			return nil, fmt.Errorf("resolve local addr: %w", err)
		}
		dialer.LocalAddr = a
	}

	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, ncerr.Wrap("dial", address, err)
	}
	return conn, nil
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
