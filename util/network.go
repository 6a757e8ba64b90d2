package util

import (
	"fmt"
	"net"
	"strconv"
)

// DefaultBufSize is the standard buffer size for network I/O (32 KiB).
const DefaultBufSize = 32 * 1024

// ParseIP parses a textual IPv4 or IPv6 address.  Hostnames are
// rejected; the exchange client only dials literal addresses.
func ParseIP(host string) (net.IP, error) {
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("cannot parse %q as an IP address", host)
	}
	return ip, nil
}

// ValidPort reports whether port is in the TCP range 1-65535.
func ValidPort(port int) bool {
	return port >= 1 && port <= 65535
}

// FormatAddr returns "host:port", bracketing IPv6 literals.
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// FindFreePort returns an available TCP port on 127.0.0.1.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
