package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	ncerr "tcpreq/internal/errors"
	"tcpreq/internal/metrics"
	"tcpreq/internal/notify"
	"tcpreq/internal/responder"
	"tcpreq/internal/transport"
	"tcpreq/util"
)

const testTimeout = 150 * time.Millisecond

// ── helpers ──────────────────────────────────────────────────────────

// recorder collects log sink lines.
type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) log(m string) {
	r.mu.Lock()
	r.lines = append(r.lines, m)
	r.mu.Unlock()
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// startResponder serves on a random loopback port until the test ends.
func startResponder(t *testing.T, b responder.Behavior, reply []byte) *responder.Responder {
	t.Helper()
	r := &responder.Responder{
		Address:  "127.0.0.1:0",
		Behavior: b,
		Reply:    reply,
		KeepOpen: true,
	}
	if err := r.Listen(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Serve(ctx) //nolint:errcheck
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func newClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 9
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = testTimeout
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// stubEndpoint runs the configured step functions on goroutines.  A nil
// step never completes.
type stubEndpoint struct {
	connect func(done func(error))
	send    func(p []byte, done func(int, error))
	receive func(p []byte, done func(int, error))

	mu        sync.Mutex
	connects  int
	sent      [][]byte
	shutdowns int
	closes    int
}

func (e *stubEndpoint) BeginConnect(_ string, done func(error)) {
	e.mu.Lock()
	e.connects++
	e.mu.Unlock()
	if e.connect != nil {
		go e.connect(done)
	}
}

func (e *stubEndpoint) BeginSend(p []byte, done func(int, error)) {
	e.mu.Lock()
	e.sent = append(e.sent, p)
	e.mu.Unlock()
	if e.send != nil {
		go e.send(p, done)
	}
}

func (e *stubEndpoint) BeginReceive(p []byte, done func(int, error)) {
	if e.receive != nil {
		go e.receive(p, done)
	}
}

func (e *stubEndpoint) Shutdown() error {
	e.mu.Lock()
	e.shutdowns++
	e.mu.Unlock()
	return ncerr.ErrNotConnected
}

func (e *stubEndpoint) Close() error {
	e.mu.Lock()
	e.closes++
	e.mu.Unlock()
	return nil
}

func (e *stubEndpoint) counts() (connects, shutdowns, closes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connects, e.shutdowns, e.closes
}

// stubOpener hands out the endpoints built by make, one per Open.
type stubOpener struct {
	make func(i int) *stubEndpoint

	mu        sync.Mutex
	endpoints []*stubEndpoint
	closes    int
}

func (o *stubOpener) Open(context.Context) (transport.Endpoint, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ep := o.make(len(o.endpoints))
	o.endpoints = append(o.endpoints, ep)
	return ep, nil
}

func (o *stubOpener) Close() error {
	o.mu.Lock()
	o.closes++
	o.mu.Unlock()
	return nil
}

func (o *stubOpener) opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.endpoints)
}

func (o *stubOpener) endpoint(i int) *stubEndpoint {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.endpoints[i]
}

func connectOK(done func(error)) { done(nil) }

func sendAll(p []byte, done func(int, error)) { done(len(p), nil) }

func replyWith(s string) func([]byte, func(int, error)) {
	return func(p []byte, done func(int, error)) { done(copy(p, s), nil) }
}

func assertKind(t *testing.T, err error, want ncerr.Kind) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want kind %v", err, want)
	}
}

// ── construction ─────────────────────────────────────────────────────

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"hostname", Config{Address: "localhost", Port: 80}},
		{"empty address", Config{Port: 80}},
		{"port zero", Config{Address: "127.0.0.1"}},
		{"port too large", Config{Address: "127.0.0.1", Port: 70000}},
		{"negative timeout", Config{Address: "127.0.0.1", Port: 80, Timeout: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{Address: "::1", Port: 8080})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if c.Timeout() != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.Timeout(), DefaultTimeout)
	}
	if c.Addr() != "[::1]:8080" {
		t.Errorf("Addr = %q", c.Addr())
	}
}

// ── happy path ───────────────────────────────────────────────────────

func TestSendReceive_Echo(t *testing.T) {
	r := startResponder(t, responder.Echo, nil)
	m := metrics.New()
	c := newClient(t, Config{Port: r.Port(), Timeout: 2 * time.Second, Metrics: m})

	out := make([]byte, 64)
	if !c.SendReceive([]byte("hello"), out) {
		t.Fatal("SendReceive returned false")
	}
	if !bytes.HasPrefix(out, []byte("hello")) {
		t.Errorf("output = %q", out[:8])
	}
	if m.SucceededExchanges() != 1 || m.TotalBytesOut() != 5 || m.TotalBytesIn() != 5 {
		t.Errorf("metrics = %+v", m.Snapshot())
	}
}

func TestExchange_OutputCapacityCapsReceive(t *testing.T) {
	reply := bytes.Repeat([]byte("z"), 100)
	r := startResponder(t, responder.Fixed, reply)
	c := newClient(t, Config{Port: r.Port(), Timeout: 2 * time.Second})

	out := make([]byte, 10)
	n, err := c.Exchange(context.Background(), []byte("q"), out)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if n != 10 || string(out) != strings.Repeat("z", 10) {
		t.Errorf("n=%d out=%q", n, out)
	}
}

func TestExchange_ZeroLengthOutput(t *testing.T) {
	o := &stubOpener{make: func(int) *stubEndpoint {
		return &stubEndpoint{connect: connectOK, send: sendAll, receive: replyWith("ignored")}
	}}
	c := newClient(t, Config{Opener: o})

	n, err := c.Exchange(context.Background(), []byte("x"), nil)
	if err != nil || n != 0 {
		t.Errorf("n=%d err=%v", n, err)
	}
}

func TestExchange_CopiesInput(t *testing.T) {
	o := &stubOpener{make: func(int) *stubEndpoint {
		return &stubEndpoint{connect: connectOK, send: sendAll, receive: replyWith("ok")}
	}}
	c := newClient(t, Config{Opener: o})

	in := []byte("abc")
	if !c.SendReceive(in, make([]byte, 4)) {
		t.Fatal("SendReceive returned false")
	}
	in[0] = 'X'
	if got := string(o.endpoint(0).sent[0]); got != "abc" {
		t.Errorf("transport saw %q after caller mutated input", got)
	}
}

// ── failures ─────────────────────────────────────────────────────────

func TestExchange_EmptyInput(t *testing.T) {
	o := &stubOpener{make: func(int) *stubEndpoint { return &stubEndpoint{} }}
	rec := &recorder{}
	c := newClient(t, Config{Opener: o, Log: rec.log})

	if c.SendReceive(nil, make([]byte, 8)) {
		t.Fatal("empty input should fail")
	}
	_, err := c.Exchange(context.Background(), []byte{}, make([]byte, 8))
	assertKind(t, err, ncerr.EmptyInput)
	if o.opened() != 0 {
		t.Errorf("opened %d endpoints for empty input", o.opened())
	}
	if lines := rec.all(); len(lines) != 2 || lines[0] != "exchange: no data to send" {
		t.Errorf("log = %q", lines)
	}
}

func TestExchange_ConnectTimeout(t *testing.T) {
	o := &stubOpener{make: func(int) *stubEndpoint { return &stubEndpoint{} }}
	rec := &recorder{}
	c := newClient(t, Config{Opener: o, Log: rec.log})

	start := time.Now()
	_, err := c.Exchange(context.Background(), []byte("ping"), make([]byte, 8))
	elapsed := time.Since(start)

	assertKind(t, err, ncerr.ConnectTimeout)
	if elapsed < testTimeout || elapsed > testTimeout+time.Second {
		t.Errorf("returned after %v, want about %v", elapsed, testTimeout)
	}
	if lines := rec.all(); len(lines) != 1 || lines[0] != "exchange: could not connect to server" {
		t.Errorf("log = %q", lines)
	}
	connects, shutdowns, closes := o.endpoint(0).counts()
	if connects != 1 || shutdowns != 1 || closes != 1 {
		t.Errorf("connects=%d shutdowns=%d closes=%d", connects, shutdowns, closes)
	}
}

// deadlineDialer fails with a timeout after its own deadline, the way
// net.Dialer does against a host that drops SYNs.
type deadlineDialer struct{ after time.Duration }

func (d deadlineDialer) Dial(ctx context.Context, _, address string) (net.Conn, error) {
	select {
	case <-time.After(d.after):
		return nil, ncerr.Wrap("dial", address, context.DeadlineExceeded)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (deadlineDialer) Close() error { return nil }

func TestExchange_DialTimeoutIsConnectTimeout(t *testing.T) {
	tests := []struct {
		name  string
		after time.Duration
	}{
		{"before wait", testTimeout / 3},
		{"with wait", testTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			c := newClient(t, Config{
				Opener: transport.NewOpener(deadlineDialer{after: tt.after}),
				Log:    rec.log,
			})
			for i := 0; i < 5; i++ {
				_, err := c.Exchange(context.Background(), []byte("ping"), make([]byte, 8))
				assertKind(t, err, ncerr.ConnectTimeout)
			}
			// Give callbacks racing the cleanup time to land.
			time.Sleep(testTimeout / 2)
			lines := rec.all()
			if len(lines) != 5 {
				t.Fatalf("log = %q, want one entry per exchange", lines)
			}
			for _, l := range lines {
				if l != "exchange: could not connect to server" {
					t.Errorf("log line = %q", l)
				}
			}
		})
	}
}

func TestExchange_ConnectFailureIsLogged(t *testing.T) {
	boom := errors.New("boom")
	o := &stubOpener{make: func(int) *stubEndpoint {
		return &stubEndpoint{connect: func(done func(error)) { done(boom) }}
	}}
	rec := &recorder{}
	c := newClient(t, Config{Opener: o, Log: rec.log})

	_, err := c.Exchange(context.Background(), []byte("ping"), make([]byte, 8))
	assertKind(t, err, ncerr.ConnectFailure)
	if !errors.Is(err, boom) {
		t.Errorf("cause lost: %v", err)
	}
	lines := rec.all()
	if len(lines) != 2 || lines[0] != "connect callback: boom" ||
		lines[1] != "exchange: could not connect to server: boom" {
		t.Errorf("log = %q", lines)
	}
}

func TestExchange_ConnectRefused(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	c := newClient(t, Config{Port: port})

	_, err = c.Exchange(context.Background(), []byte("ping"), make([]byte, 8))
	if k := ncerr.KindOf(err); k != ncerr.ConnectFailure && k != ncerr.ConnectTimeout {
		t.Errorf("kind = %v, want a connect failure", k)
	}
}

func TestExchange_SendTimeout(t *testing.T) {
	o := &stubOpener{make: func(int) *stubEndpoint {
		return &stubEndpoint{connect: connectOK}
	}}
	rec := &recorder{}
	c := newClient(t, Config{Opener: o, Log: rec.log})

	_, err := c.Exchange(context.Background(), []byte("ping"), make([]byte, 8))
	assertKind(t, err, ncerr.SendTimeout)
	if lines := rec.all(); len(lines) != 1 || lines[0] != "exchange: send timed out" {
		t.Errorf("log = %q", lines)
	}
}

func TestExchange_SendFailure(t *testing.T) {
	broken := errors.New("broken pipe")
	o := &stubOpener{make: func(int) *stubEndpoint {
		return &stubEndpoint{
			connect: connectOK,
			send:    func(_ []byte, done func(int, error)) { done(0, broken) },
		}
	}}
	c := newClient(t, Config{Opener: o})

	_, err := c.Exchange(context.Background(), []byte("ping"), make([]byte, 8))
	assertKind(t, err, ncerr.SendFailure)
	if !errors.Is(err, broken) {
		t.Errorf("cause lost: %v", err)
	}
}

func TestExchange_ReceiveTimeoutLeavesOutput(t *testing.T) {
	r := startResponder(t, responder.Silent, nil)
	rec := &recorder{}
	c := newClient(t, Config{Port: r.Port(), Log: rec.log})

	out := bytes.Repeat([]byte{0xAA}, 16)
	if c.SendReceive([]byte("ping"), out) {
		t.Fatal("silent server should time out")
	}
	if !bytes.Equal(out, bytes.Repeat([]byte{0xAA}, 16)) {
		t.Errorf("output modified: %x", out)
	}
	if lines := rec.all(); len(lines) != 1 || lines[0] != "exchange: receive timed out" {
		t.Errorf("log = %q", lines)
	}
}

func TestExchange_ReceiveFailureLeavesOutput(t *testing.T) {
	reset := errors.New("connection reset")
	o := &stubOpener{make: func(int) *stubEndpoint {
		return &stubEndpoint{
			connect: connectOK,
			send:    sendAll,
			receive: func(p []byte, done func(int, error)) {
				copy(p, "junk")
				done(4, reset)
			},
		}
	}}
	rec := &recorder{}
	c := newClient(t, Config{Opener: o, Log: rec.log})

	out := make([]byte, 8)
	_, err := c.Exchange(context.Background(), []byte("ping"), out)
	assertKind(t, err, ncerr.ReceiveFailure)
	if !bytes.Equal(out, make([]byte, 8)) {
		t.Errorf("output modified: %q", out)
	}
	lines := rec.all()
	if len(lines) != 2 || lines[0] != "receive callback: connection reset" {
		t.Errorf("log = %q", lines)
	}
}

func TestExchange_ContextCancelEndsStage(t *testing.T) {
	o := &stubOpener{make: func(int) *stubEndpoint {
		return &stubEndpoint{connect: connectOK, send: sendAll}
	}}
	c := newClient(t, Config{Opener: o, Timeout: 10 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Exchange(ctx, []byte("ping"), make([]byte, 8))
	assertKind(t, err, ncerr.ReceiveTimeout)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("cause = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancellation did not end the wait")
	}
}

func TestExchange_PanicBecomesTransportException(t *testing.T) {
	o := &stubOpener{make: func(int) *stubEndpoint {
		return &stubEndpoint{connect: connectOK, send: sendAll}
	}}
	rec := &recorder{}
	c := newClient(t, Config{Opener: panicOpener{o}, Log: rec.log})

	_, err := c.Exchange(context.Background(), []byte("ping"), make([]byte, 8))
	assertKind(t, err, ncerr.TransportException)
	if _, _, closes := o.endpoint(0).counts(); closes != 1 {
		t.Errorf("endpoint closes = %d, want 1", closes)
	}
	if lines := rec.all(); len(lines) != 1 || lines[0] != "exchange: panic: receive exploded" {
		t.Errorf("log = %q", lines)
	}
}

// panicOpener wraps stub endpoints so that BeginReceive panics.
type panicOpener struct{ *stubOpener }

func (p panicOpener) Open(ctx context.Context) (transport.Endpoint, error) {
	ep, err := p.stubOpener.Open(ctx)
	return panicEndpoint{ep.(*stubEndpoint)}, err
}

type panicEndpoint struct{ *stubEndpoint }

func (panicEndpoint) BeginReceive([]byte, func(int, error)) { panic("receive exploded") }

// shutdownPanicOpener wraps stub endpoints so that Shutdown panics.
type shutdownPanicOpener struct{ *stubOpener }

func (p shutdownPanicOpener) Open(ctx context.Context) (transport.Endpoint, error) {
	ep, err := p.stubOpener.Open(ctx)
	return shutdownPanicEndpoint{ep.(*stubEndpoint)}, err
}

type shutdownPanicEndpoint struct{ *stubEndpoint }

func (shutdownPanicEndpoint) Shutdown() error { panic("shutdown exploded") }

func TestExchange_CleanupPanicKeepsResult(t *testing.T) {
	o := &stubOpener{make: func(int) *stubEndpoint {
		return &stubEndpoint{connect: connectOK, send: sendAll, receive: replyWith("pong")}
	}}
	rec := &recorder{}
	c := newClient(t, Config{Opener: shutdownPanicOpener{o}, Log: rec.log})

	out := make([]byte, 8)
	n, err := c.Exchange(context.Background(), []byte("ping"), out)
	if err != nil || string(out[:n]) != "pong" {
		t.Fatalf("Exchange = %d, %v", n, err)
	}
	if _, _, closes := o.endpoint(0).counts(); closes != 1 {
		t.Errorf("endpoint closes = %d, want 1", closes)
	}
	if lines := rec.all(); len(lines) != 1 || lines[0] != "cleanup: shutdown: panic: shutdown exploded" {
		t.Errorf("log = %q", lines)
	}
}

// ── peer teardown ────────────────────────────────────────────────────

// startPeer accepts connections on loopback and hands each to handle.
func startPeer(t *testing.T, handle func(net.Conn)) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(conn)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestExchange_PeerTeardownIsNotACleanupFailure(t *testing.T) {
	tests := []struct {
		name   string
		handle func(net.Conn)
		wantOK bool
	}{
		{"reply then close", func(conn net.Conn) {
			buf := make([]byte, 16)
			conn.Read(buf)           //nolint:errcheck
			conn.Write([]byte("hi")) //nolint:errcheck
			conn.Close()
		}, true},
		{"reset after read", func(conn net.Conn) {
			buf := make([]byte, 16)
			conn.Read(buf)                   //nolint:errcheck
			conn.(*net.TCPConn).SetLinger(0) //nolint:errcheck
			conn.Close()
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := startPeer(t, tt.handle)
			rec := &recorder{}
			notes := &recorder{}
			c := newClient(t, Config{
				Port:     port,
				Timeout:  500 * time.Millisecond,
				Log:      rec.log,
				Notify:   true,
				Notifier: notify.Func(func(_, title string) { notes.log(title) }),
			})
			for i := 0; i < 3; i++ {
				out := make([]byte, 8)
				n, err := c.Exchange(context.Background(), []byte("hello"), out)
				if ok := err == nil; ok != tt.wantOK {
					t.Fatalf("Exchange = %d, %v", n, err)
				}
				if tt.wantOK && string(out[:n]) != "hi" {
					t.Errorf("reply = %q", out[:n])
				}
			}
			for _, l := range rec.all() {
				if strings.HasPrefix(l, categoryCleanup+":") {
					t.Errorf("unexpected cleanup entry %q", l)
				}
			}
			if tt.wantOK && len(rec.all()) != 0 {
				t.Errorf("log = %q, want nothing on success", rec.all())
			}
			for _, title := range notes.all() {
				if title == titleException {
					t.Error("notifier fired an Exception box")
				}
			}
		})
	}
}

// ── reuse ────────────────────────────────────────────────────────────

func TestExchange_ReusableAfterFailure(t *testing.T) {
	o := &stubOpener{make: func(i int) *stubEndpoint {
		if i == 0 {
			return &stubEndpoint{connect: connectOK}
		}
		return &stubEndpoint{connect: connectOK, send: sendAll, receive: replyWith("pong")}
	}}
	c := newClient(t, Config{Opener: o})

	if c.SendReceive([]byte("ping"), make([]byte, 8)) {
		t.Fatal("first exchange should time out in send")
	}
	out := make([]byte, 8)
	n, err := c.Exchange(context.Background(), []byte("ping"), out)
	if err != nil || string(out[:n]) != "pong" {
		t.Fatalf("second exchange: n=%d err=%v", n, err)
	}
	if o.opened() != 2 {
		t.Errorf("opened %d endpoints, want one per call", o.opened())
	}
	for _, s := range []interface{ IsSet() bool }{c.connectDone, c.sendDone, c.receiveDone} {
		if s.IsSet() {
			t.Error("signal left set after exchange")
		}
	}
}

// TestExchange_LateCallbackDoesNotLeak fires a send completion from a
// finished call and checks the next call still waits for its own.
func TestExchange_LateCallbackDoesNotLeak(t *testing.T) {
	var late func(int, error)
	var mu sync.Mutex
	o := &stubOpener{make: func(i int) *stubEndpoint {
		if i == 0 {
			return &stubEndpoint{
				connect: connectOK,
				send: func(_ []byte, done func(int, error)) {
					mu.Lock()
					late = done
					mu.Unlock()
				},
			}
		}
		return &stubEndpoint{connect: connectOK}
	}}
	c := newClient(t, Config{Opener: o})

	_, err := c.Exchange(context.Background(), []byte("one"), make([]byte, 8))
	assertKind(t, err, ncerr.SendTimeout)

	mu.Lock()
	late(3, nil)
	mu.Unlock()

	_, err = c.Exchange(context.Background(), []byte("two"), make([]byte, 8))
	assertKind(t, err, ncerr.SendTimeout)
}

// ── notifier ─────────────────────────────────────────────────────────

func TestExchange_Notifier(t *testing.T) {
	type note struct{ message, title string }
	var mu sync.Mutex
	var notes []note
	n := notify.Func(func(message, title string) {
		mu.Lock()
		notes = append(notes, note{message, title})
		mu.Unlock()
	})
	o := &stubOpener{make: func(int) *stubEndpoint { return &stubEndpoint{connect: connectOK} }}

	quiet := newClient(t, Config{Opener: o, Notifier: n})
	quiet.SendReceive([]byte("x"), make([]byte, 1))
	mu.Lock()
	if len(notes) != 0 {
		t.Errorf("notifier called while disabled: %v", notes)
	}
	mu.Unlock()

	loud := newClient(t, Config{Opener: o, Notifier: n, Notify: true})
	loud.SendReceive([]byte("x"), make([]byte, 1))
	mu.Lock()
	defer mu.Unlock()
	if len(notes) != 1 || notes[0] != (note{"send timed out", titleExchange}) {
		t.Errorf("notes = %v", notes)
	}
}

func TestExchange_NotifyWithoutNotifier(t *testing.T) {
	o := &stubOpener{make: func(int) *stubEndpoint { return &stubEndpoint{} }}
	c := newClient(t, Config{Opener: o, Notify: true})
	if c.SendReceive([]byte("x"), make([]byte, 1)) {
		t.Fatal("expected connect timeout")
	}
}

// ── disposal ─────────────────────────────────────────────────────────

func TestClose_Idempotent(t *testing.T) {
	o := &stubOpener{make: func(int) *stubEndpoint { return &stubEndpoint{} }}
	c, err := New(Config{Address: "127.0.0.1", Port: 9, Opener: o})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if o.closes != 0 {
		t.Error("Close must not close a caller-supplied opener")
	}

	_, err = c.Exchange(context.Background(), []byte("x"), make([]byte, 1))
	assertKind(t, err, ncerr.Disposed)
	if c.SendReceive([]byte("x"), make([]byte, 1)) {
		t.Error("SendReceive after Close should fail")
	}
	if o.opened() != 0 {
		t.Error("closed client opened an endpoint")
	}
}

func TestStage_String(t *testing.T) {
	if StageReceiving.String() != "receive" || Stage(42).String() != "stage(42)" {
		t.Errorf("unexpected names %q %q", StageReceiving, Stage(42))
	}
}
