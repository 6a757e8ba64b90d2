// Package responder runs a minimal TCP server that answers exchanges.
//
// It backs `tcpreq -l` and doubles as the stub server in tests: each
// Behavior reproduces one server pattern a client has to cope with.
package responder

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"tcpreq/util"
)

// Behavior selects how an accepted connection is answered.
type Behavior int

const (
	// Echo writes back every chunk it reads.
	Echo Behavior = iota
	// Fixed reads one chunk and answers with Reply.
	Fixed
	// Silent reads everything but never replies.
	Silent
	// Mute accepts and then neither reads nor writes.
	Mute
)

var behaviorNames = map[Behavior]string{
	Echo:   "echo",
	Fixed:  "fixed",
	Silent: "silent",
	Mute:   "mute",
}

func (b Behavior) String() string {
	if s, ok := behaviorNames[b]; ok {
		return s
	}
	return "unknown"
}

// ParseBehavior maps a name such as "echo" to its Behavior.
func ParseBehavior(s string) (Behavior, error) {
	for b, name := range behaviorNames {
		if name == s {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown responder behavior %q (want echo, fixed, silent or mute)", s)
}

// Responder accepts connections on Address and answers them according
// to Behavior.  With KeepOpen it serves connections concurrently until
// the context ends; otherwise it returns after the first one.
type Responder struct {
	Address  string // "host:port"; port 0 picks a free one
	Behavior Behavior
	Reply    []byte        // answer for Fixed
	KeepOpen bool          // serve more than one connection
	Timeout  time.Duration // per-connection deadline, 0 = none
	Record   bool          // keep every chunk read for Received
	Logger   *util.Logger

	mu       sync.Mutex
	ln       net.Listener
	accepted int
	received [][]byte
	wg       sync.WaitGroup
}

// Listen binds the listener without serving, so callers can read
// [Responder.Addr] before starting [Responder.Serve].
func (r *Responder) Listen() error {
	ln, err := net.Listen("tcp", r.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", r.Address, err)
	}
	r.mu.Lock()
	r.ln = ln
	r.mu.Unlock()
	r.logger().Verbose("responder listening on %s (%s)", ln.Addr(), r.Behavior)
	return nil
}

// Addr returns the bound address, or "" before Listen.
func (r *Responder) Addr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ln == nil {
		return ""
	}
	return r.ln.Addr().String()
}

// Port returns the bound TCP port, or 0 before Listen.
func (r *Responder) Port() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ln == nil {
		return 0
	}
	return r.ln.Addr().(*net.TCPAddr).Port
}

// Run listens and serves until ctx is done.
func (r *Responder) Run(ctx context.Context) error {
	if err := r.Listen(); err != nil {
		return err
	}
	return r.Serve(ctx)
}

// Serve accepts connections on a listener opened by Listen.
func (r *Responder) Serve(ctx context.Context) error {
	r.mu.Lock()
	ln := r.ln
	r.mu.Unlock()
	if ln == nil {
		return fmt.Errorf("responder: Serve called before Listen")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		ln.Close()
		r.wg.Wait()
	}()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}

		r.mu.Lock()
		r.accepted++
		r.mu.Unlock()
		r.logger().Verbose("connection from %s", conn.RemoteAddr())

		if !r.KeepOpen {
			r.serveConn(ctx, conn)
			return nil
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.serveConn(ctx, conn)
		}()
	}
}

// Accepted returns how many connections have been accepted.
func (r *Responder) Accepted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accepted
}

// Received returns a copy of every chunk read so far, in order.  It is
// empty unless Record is set.
func (r *Responder) Received() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.received))
	copy(out, r.received)
	return out
}

func (r *Responder) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if r.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(r.Timeout)) //nolint:errcheck
	}

	// Unblock pending reads when the server shuts down.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	switch r.Behavior {
	case Mute:
		<-ctx.Done()
	case Silent:
		r.drain(conn, nil)
	case Fixed:
		buf := make([]byte, util.DefaultBufSize)
		n, err := conn.Read(buf)
		if n > 0 {
			r.record(buf[:n])
		}
		if err != nil && err != io.EOF {
			return
		}
		if _, err := conn.Write(r.Reply); err != nil {
			r.logger().Debug("responder write: %v", err)
		}
		r.drain(conn, nil)
	default:
		r.drain(conn, conn)
	}
}

// drain reads until EOF or error, echoing each chunk to w when w is
// non-nil.
func (r *Responder) drain(conn net.Conn, w io.Writer) {
	buf := make([]byte, util.DefaultBufSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			r.record(buf[:n])
			if w != nil {
				if _, werr := w.Write(buf[:n]); werr != nil {
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func (r *Responder) record(p []byte) {
	if !r.Record {
		return
	}
	r.mu.Lock()
	r.received = append(r.received, append([]byte(nil), p...))
	r.mu.Unlock()
}

func (r *Responder) logger() *util.Logger {
	if r.Logger == nil {
		return util.Nop()
	}
	return r.Logger
}
