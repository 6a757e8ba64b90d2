package client

import (
	"fmt"

	ncerr "tcpreq/internal/errors"
)

// Stage is the point an exchange has reached.
type Stage int

const (
	StageIdle Stage = iota
	StageConnecting
	StageSending
	StageReceiving
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageConnecting:
		return "connect"
	case StageSending:
		return "send"
	case StageReceiving:
		return "receive"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Log categories.
const (
	categoryExchange = "exchange"
	categoryConnect  = "connect callback"
	categoryReceive  = "receive callback"
	categoryCleanup  = "cleanup"
)

// Notification titles.
const (
	titleExchange  = "Send/Receive"
	titleConnect   = "Connect callback"
	titleReceive   = "Receive callback"
	titleException = "Exception"
)

// failText is the user-facing message for each failure kind.
var failText = map[ncerr.Kind]string{
	ncerr.EmptyInput:     "no data to send",
	ncerr.ConnectTimeout: "could not connect to server",
	ncerr.ConnectFailure: "could not connect to server",
	ncerr.SendTimeout:    "send timed out",
	ncerr.SendFailure:    "send failed",
	ncerr.ReceiveTimeout: "receive timed out",
	ncerr.ReceiveFailure: "receive failed",
}

// onConnect records a connect error for the orchestrator and leaves the
// signal unset; the wait then runs out and reports ConnectFailure.  A
// dial that timed out is reported once, as ConnectTimeout.
func (c *Client) onConnect(x *attempt) func(error) {
	return func(err error) {
		if err == nil {
			c.connectDone.Set()
			return
		}
		x.mu.Lock()
		x.connErr = err
		x.mu.Unlock()
		if ncerr.IsTimeout(err) {
			c.logger.Debug("[%s] dial timed out: %v", x.id, err)
			return
		}
		c.callbackFailed(x, categoryConnect, titleConnect, err)
	}
}

// onSend stores the outcome before setting the signal, so the
// orchestrator always sees it once the wait returns.
func (c *Client) onSend(x *attempt) func(int, error) {
	return func(n int, err error) {
		x.mu.Lock()
		x.sent, x.sendErr = n, err
		x.mu.Unlock()
		c.sendDone.Set()
	}
}

func (c *Client) onReceive(x *attempt) func(int, error) {
	return func(n int, err error) {
		if err != nil {
			x.mu.Lock()
			x.recvErr = err
			x.mu.Unlock()
			c.callbackFailed(x, categoryReceive, titleReceive, err)
			return
		}
		x.mu.Lock()
		x.received = n
		x.mu.Unlock()
		c.receiveDone.Set()
	}
}

// callbackFailed reports a callback error unless the exchange is
// already over; errors caused by cleanup itself are only traced.
func (c *Client) callbackFailed(x *attempt, category, title string, err error) {
	if x.finished() {
		c.logger.Debug("[%s] late %s: %v", x.id, category, err)
		return
	}
	c.report(category, err.Error(), title)
}

// fail reports a failure through the sink and the notifier and returns
// it as a *StageError.
func (c *Client) fail(x *attempt, kind ncerr.Kind, cause error, category, title string) error {
	msg, ok := failText[kind]
	if !ok {
		msg = kind.String()
		if cause != nil {
			msg = cause.Error()
		}
	} else if cause != nil && !kind.IsTimeout() {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	c.report(category, msg, title)
	c.logger.Debug("[%s] %s", x.id, msg)
	return ncerr.Stage(kind, c.addr, cause)
}

func (c *Client) report(category, message, title string) {
	if c.log != nil {
		c.log(category + ": " + message)
	}
	if c.notifier != nil {
		c.notifier.Notify(message, title)
	}
}
