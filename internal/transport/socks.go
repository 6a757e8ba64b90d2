package transport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	ncerr "tcpreq/internal/errors"
)

// SOCKSDialer reaches the server through a SOCKS5 proxy.
type SOCKSDialer struct {
	proxyAddr string
	dialer    proxy.ContextDialer
}

// NewSOCKSDialer builds a dialer for the proxy at addr.  auth is
// "user:pass" or empty for no authentication.
func NewSOCKSDialer(addr, auth string, timeout time.Duration) (*SOCKSDialer, error) {
	var pa *proxy.Auth
	if auth != "" {
		user, pass, ok := strings.Cut(auth, ":")
		if !ok || user == "" {
			return nil, fmt.Errorf("invalid proxy auth %q – expected user:pass", auth)
		}
		pa = &proxy.Auth{User: user, Password: pass}
	}

	d, err := proxy.SOCKS5("tcp", addr, pa, &net.Dialer{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("socks5 %s: %w", addr, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks5 %s: dialer does not support contexts", addr)
	}
	return &SOCKSDialer{proxyAddr: addr, dialer: cd}, nil
}

// Dial connects to address via the proxy.
func (d *SOCKSDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := d.dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, ncerr.Wrap("socks5 dial", d.proxyAddr, err)
	}
	return conn, nil
}

// Close is a no-op; the proxy dialer holds no connections.
func (d *SOCKSDialer) Close() error { return nil }
