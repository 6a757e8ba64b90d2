// Package metrics provides lightweight, lock-free counters for
// tracking request/response exchanges.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks exchange outcomes, byte counts and latency.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	exchangesTotal  atomic.Int64
	exchangesOK     atomic.Int64
	exchangesFailed atomic.Int64
	bytesIn         atomic.Int64
	bytesOut        atomic.Int64
	latencyTotal    atomic.Int64 // nanoseconds across successful exchanges

	mu           sync.RWMutex
	startTime    time.Time
	failures     map[string]int64
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now(), failures: make(map[string]int64)}
}

// ── Exchange metrics ─────────────────────────────────────────────────

// ExchangeStarted counts an attempted exchange.
func (c *Collector) ExchangeStarted() {
	if c == nil {
		return
	}
	c.exchangesTotal.Add(1)
}

// ExchangeSucceeded records a completed exchange and its latency.
func (c *Collector) ExchangeSucceeded(latency time.Duration) {
	if c == nil {
		return
	}
	c.exchangesOK.Add(1)
	c.latencyTotal.Add(int64(latency))
}

// ExchangeFailed records a failed exchange under kind, keeping msg as
// the most recent error.
func (c *Collector) ExchangeFailed(kind, msg string) {
	if c == nil {
		return
	}
	c.exchangesFailed.Add(1)
	c.mu.Lock()
	c.failures[kind]++
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// TotalExchanges returns the number of attempted exchanges.
func (c *Collector) TotalExchanges() int64 {
	if c == nil {
		return 0
	}
	return c.exchangesTotal.Load()
}

// SucceededExchanges returns the number of successful exchanges.
func (c *Collector) SucceededExchanges() int64 {
	if c == nil {
		return 0
	}
	return c.exchangesOK.Load()
}

// FailedExchanges returns the number of failed exchanges.
func (c *Collector) FailedExchanges() int64 {
	if c == nil {
		return 0
	}
	return c.exchangesFailed.Load()
}

// Failures returns how many exchanges failed with kind.
func (c *Collector) Failures(kind string) int64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failures[kind]
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string           `json:"uptime"`
	ExchangesTotal   int64            `json:"exchanges_total"`
	ExchangesOK      int64            `json:"exchanges_ok"`
	ExchangesFailed  int64            `json:"exchanges_failed"`
	Failures         map[string]int64 `json:"failures,omitempty"`
	BytesIn          int64            `json:"bytes_in"`
	BytesOut         int64            `json:"bytes_out"`
	AvgLatency       string           `json:"avg_latency,omitempty"`
	LastError        string           `json:"last_error,omitempty"`
	LastErrorMessage string           `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:          time.Since(c.startTime).Truncate(time.Second).String(),
		ExchangesTotal:  c.exchangesTotal.Load(),
		ExchangesOK:     c.exchangesOK.Load(),
		ExchangesFailed: c.exchangesFailed.Load(),
		BytesIn:         c.bytesIn.Load(),
		BytesOut:        c.bytesOut.Load(),
	}
	if len(c.failures) > 0 {
		s.Failures = make(map[string]int64, len(c.failures))
		for k, v := range c.failures {
			s.Failures[k] = v
		}
	}
	if ok := s.ExchangesOK; ok > 0 {
		s.AvgLatency = (time.Duration(c.latencyTotal.Load() / ok)).String()
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
