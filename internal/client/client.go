// Package client turns the asynchronous connect/send/receive operations
// of a transport endpoint into one blocking request/response call.
//
// Each call opens a fresh endpoint, walks it through three stages and
// waits on one completion signal per stage with the configured timeout.
// The endpoint is shut down and closed on every path, and the signals
// are reset so the same Client can serve the next call.
//
// A Client runs one exchange at a time.  Callers that share a Client
// between goroutines must serialize their calls.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	ncerr "tcpreq/internal/errors"
	"tcpreq/internal/metrics"
	"tcpreq/internal/notify"
	"tcpreq/internal/signal"
	"tcpreq/internal/transport"
	"tcpreq/util"
)

// DefaultTimeout bounds each of the three stage waits.
const DefaultTimeout = 5 * time.Second

// LogFunc consumes one failure message of the form "category: text".
type LogFunc func(message string)

// Config describes the server and the optional collaborators.
type Config struct {
	Address string        // literal IPv4 or IPv6 address
	Port    int           // 1-65535
	Timeout time.Duration // per-stage wait, 0 means DefaultTimeout

	Log      LogFunc         // failure sink, nil is silent
	Notify   bool            // also present failures through Notifier
	Notifier notify.Notifier // user-facing presentation hook

	Opener  transport.Opener   // nil dials plain TCP
	Metrics *metrics.Collector // nil disables metrics
	Logger  *util.Logger       // stage tracing, nil is silent
}

// Client is the exchange orchestrator.
type Client struct {
	addr       string
	timeout    time.Duration
	log        LogFunc
	notifier   notify.Notifier
	opener     transport.Opener
	ownsOpener bool
	metrics    *metrics.Collector
	logger     *util.Logger

	connectDone *signal.Signal
	sendDone    *signal.Signal
	receiveDone *signal.Signal

	closed    atomic.Bool
	closeOnce sync.Once
}

// New validates cfg and returns a ready Client.
func New(cfg Config) (*Client, error) {
	ip, err := util.ParseIP(cfg.Address)
	if err != nil {
		return nil, err
	}
	if !util.ValidPort(cfg.Port) {
		return nil, fmt.Errorf("port %d out of range 1-65535", cfg.Port)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout %v must not be negative", cfg.Timeout)
	}

	c := &Client{
		addr:        util.FormatAddr(ip.String(), cfg.Port),
		timeout:     cfg.Timeout,
		log:         cfg.Log,
		opener:      cfg.Opener,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		connectDone: signal.New(),
		sendDone:    signal.New(),
		receiveDone: signal.New(),
	}
	if c.timeout == 0 {
		c.timeout = DefaultTimeout
	}
	if cfg.Notify {
		c.notifier = cfg.Notifier
	}
	// The connect wait bounds the dial, and cleanup cancels it.
	if c.opener == nil {
		c.opener = transport.NewOpener(&transport.TCPDialer{})
		c.ownsOpener = true
	}
	if c.logger == nil {
		c.logger = util.Nop()
	}
	return c, nil
}

// Addr returns the server address as "ip:port".
func (c *Client) Addr() string { return c.addr }

// Timeout returns the per-stage wait.
func (c *Client) Timeout() time.Duration { return c.timeout }

// SendReceive sends input and reads one reply into output, reporting
// only whether the exchange succeeded.  At most len(output) bytes are
// received and output is left untouched on failure.
func (c *Client) SendReceive(input, output []byte) bool {
	_, err := c.Exchange(context.Background(), input, output)
	return err == nil
}

// Exchange is SendReceive with cancellation and a detailed result: the
// number of reply bytes written to output, or a *errors.StageError.
// Cancelling ctx ends the current stage as if its wait had timed out.
func (c *Client) Exchange(ctx context.Context, input, output []byte) (n int, err error) {
	if c.closed.Load() {
		return 0, ncerr.Stage(ncerr.Disposed, "", nil)
	}

	x := newAttempt()
	c.metrics.ExchangeStarted()
	defer func() {
		if r := recover(); r != nil {
			n = 0
			err = c.fail(x, ncerr.TransportException, fmt.Errorf("panic: %v", r), categoryExchange, titleException)
		}
		if err != nil {
			c.metrics.ExchangeFailed(ncerr.KindOf(err).String(), err.Error())
			c.logger.Verbose("[%s] %s failed: %v", x.id, x.stage(), err)
			x.enter(StageFailed)
			return
		}
		c.metrics.ExchangeSucceeded(time.Since(x.started))
		c.logger.Verbose("[%s] received %d bytes from %s", x.id, n, c.addr)
	}()

	if len(input) == 0 {
		return 0, c.fail(x, ncerr.EmptyInput, nil, categoryExchange, titleExchange)
	}

	ep, err := c.opener.Open(ctx)
	if err != nil {
		return 0, c.fail(x, ncerr.TransportException, err, categoryExchange, titleException)
	}
	defer c.cleanup(x, ep)

	return c.run(ctx, x, ep, input, output)
}

// run drives the connect, send and receive stages in order.
func (c *Client) run(ctx context.Context, x *attempt, ep transport.Endpoint, input, output []byte) (int, error) {
	x.enter(StageConnecting)
	c.logger.Debug("[%s] connecting to %s", x.id, c.addr)
	c.connectDone.Reset()
	ep.BeginConnect(c.addr, c.onConnect(x))
	if !c.connectDone.WaitContext(ctx, c.timeout) {
		if cerr := x.connectErr(); cerr != nil {
			if ncerr.IsTimeout(cerr) {
				return 0, c.fail(x, ncerr.ConnectTimeout, cerr, categoryExchange, titleExchange)
			}
			return 0, c.fail(x, ncerr.ConnectFailure, cerr, categoryExchange, titleExchange)
		}
		return 0, c.fail(x, ncerr.ConnectTimeout, ctx.Err(), categoryExchange, titleExchange)
	}

	// The transport may still be writing after a send timeout, so it
	// gets its own copy of the caller's bytes.
	x.enter(StageSending)
	c.logger.Debug("[%s] sending %d bytes", x.id, len(input))
	c.sendDone.Reset()
	ep.BeginSend(bytes.Clone(input), c.onSend(x))
	if !c.sendDone.WaitContext(ctx, c.timeout) {
		return 0, c.fail(x, ncerr.SendTimeout, ctx.Err(), categoryExchange, titleExchange)
	}
	sent, serr := x.sendResult()
	if serr != nil {
		return 0, c.fail(x, ncerr.SendFailure, serr, categoryExchange, titleExchange)
	}
	c.metrics.BytesSent(int64(sent))

	// One read, capped to the caller's buffer.  A late read after a
	// timeout lands in scratch, never in output.
	x.enter(StageReceiving)
	c.logger.Debug("[%s] receiving up to %d bytes", x.id, len(output))
	scratch := make([]byte, len(output))
	c.receiveDone.Reset()
	ep.BeginReceive(scratch, c.onReceive(x))
	if !c.receiveDone.WaitContext(ctx, c.timeout) {
		if rerr := x.receiveErr(); rerr != nil {
			return 0, c.fail(x, ncerr.ReceiveFailure, rerr, categoryExchange, titleExchange)
		}
		return 0, c.fail(x, ncerr.ReceiveTimeout, ctx.Err(), categoryExchange, titleExchange)
	}
	n := copy(output, scratch[:x.receivedBytes()])
	c.metrics.BytesReceived(int64(n))

	x.enter(StageDone)
	return n, nil
}

// cleanup shuts the endpoint down and re-arms the signals.  Its own
// failures, panics included, are reported but never change the
// exchange result.
func (c *Client) cleanup(x *attempt, ep transport.Endpoint) {
	x.finish()
	c.release(x, "shutdown", ep.Shutdown, ncerr.ErrNotConnected)
	c.release(x, "close", ep.Close, net.ErrClosed)

	c.connectDone.Reset()
	c.sendDone.Reset()
	c.receiveDone.Reset()
	c.logger.Debug("[%s] endpoint released", x.id)
}

// release runs one cleanup step, reporting any error other than benign
// and any panic as a TransportException.
func (c *Client) release(x *attempt, op string, step func() error, benign error) {
	defer func() {
		if r := recover(); r != nil {
			c.fail(x, ncerr.TransportException, fmt.Errorf("%s: panic: %v", op, r), categoryCleanup, titleException) //nolint:errcheck
		}
	}()
	if err := step(); err != nil && !errors.Is(err, benign) {
		c.fail(x, ncerr.TransportException, fmt.Errorf("%s: %w", op, err), categoryCleanup, titleException) //nolint:errcheck
	}
}

// Close releases the stage signals and, when the Client created it,
// the transport opener.  Close is idempotent; a closed Client rejects
// further exchanges.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.connectDone.Dispose()
		c.sendDone.Dispose()
		c.receiveDone.Dispose()
		if c.ownsOpener {
			err = c.opener.Close()
		}
	})
	return err
}

// ── attempt state ────────────────────────────────────────────────────

// attempt holds what the completion callbacks of one call report back.
// Callbacks that fire after the call ended write here and nowhere else.
type attempt struct {
	id      string
	started time.Time

	mu       sync.Mutex
	current  Stage
	done     bool
	connErr  error
	sent     int
	sendErr  error
	received int
	recvErr  error
}

func newAttempt() *attempt {
	return &attempt{id: uuid.NewString(), started: time.Now()}
}

func (x *attempt) enter(s Stage) {
	x.mu.Lock()
	x.current = s
	x.mu.Unlock()
}

func (x *attempt) stage() Stage {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.current
}

func (x *attempt) finish() {
	x.mu.Lock()
	x.done = true
	x.mu.Unlock()
}

func (x *attempt) finished() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.done
}

func (x *attempt) connectErr() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.connErr
}

func (x *attempt) sendResult() (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.sent, x.sendErr
}

func (x *attempt) receiveErr() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.recvErr
}

func (x *attempt) receivedBytes() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.received
}
