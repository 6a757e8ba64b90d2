package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"syscall"

	ncerr "tcpreq/internal/errors"
)

type closeWriter interface{ CloseWrite() error }
type closeReader interface{ CloseRead() error }

// asyncEndpoint runs each Begin* operation on its own goroutine against
// a connection obtained from a Dialer.
type asyncEndpoint struct {
	dialer  Dialer
	network string
	ctx     context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// NewEndpoint returns an Endpoint that connects through d.  Cancelling
// ctx, or closing the endpoint, aborts an in-flight connect.
func NewEndpoint(ctx context.Context, d Dialer, network string) Endpoint {
	ctx, cancel := context.WithCancel(ctx)
	return &asyncEndpoint{
		dialer:  d,
		network: network,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (e *asyncEndpoint) BeginConnect(address string, done func(error)) {
	go func() {
		conn, err := e.dialer.Dial(e.ctx, e.network, address)
		if err == nil {
			err = e.attach(conn)
		}
		done(err)
	}()
}

func (e *asyncEndpoint) BeginSend(p []byte, done func(int, error)) {
	conn, err := e.current()
	if err != nil {
		go done(0, err)
		return
	}
	go func() {
		n, err := conn.Write(p)
		done(n, ncerr.Wrap("write", remote(conn), err))
	}()
}

// BeginReceive treats an orderly close by the peer as a successful
// read of whatever arrived before it, possibly zero bytes.
func (e *asyncEndpoint) BeginReceive(p []byte, done func(int, error)) {
	conn, err := e.current()
	if err != nil {
		go done(0, err)
		return
	}
	go func() {
		n, err := conn.Read(p)
		if errors.Is(err, io.EOF) {
			err = nil
		}
		done(n, ncerr.Wrap("read", remote(conn), err))
	}()
}

// Shutdown half-closes both directions.  A peer that already closed or
// reset the connection leaves nothing to shut down, so ENOTCONN counts
// as success.  Only the first real failure is returned.
func (e *asyncEndpoint) Shutdown() error {
	conn, err := e.current()
	if err != nil {
		return err
	}
	var steps []func() error
	if cw, ok := conn.(closeWriter); ok {
		steps = append(steps, cw.CloseWrite)
	}
	if cr, ok := conn.(closeReader); ok {
		steps = append(steps, cr.CloseRead)
	}
	for _, step := range steps {
		if err := step(); err != nil && !errors.Is(err, syscall.ENOTCONN) {
			return err
		}
	}
	return nil
}

func (e *asyncEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.cancel()
	if e.conn != nil {
		return e.conn.Close()
	}
	return nil
}

// attach stores a freshly dialled connection, or closes it when the
// endpoint was closed while the dial was in flight.
func (e *asyncEndpoint) attach(conn net.Conn) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.closed:
		conn.Close()
		return ncerr.ErrClosed
	case e.conn != nil:
		conn.Close()
		return errors.New("endpoint already connected")
	}
	e.conn = conn
	return nil
}

func (e *asyncEndpoint) current() (net.Conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ncerr.ErrClosed
	}
	if e.conn == nil {
		return nil, ncerr.ErrNotConnected
	}
	return e.conn, nil
}

func remote(conn net.Conn) string {
	if a := conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
