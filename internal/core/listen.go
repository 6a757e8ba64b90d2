package core

import (
	"context"
	"fmt"
	"time"

	"tcpreq/internal/responder"
	"tcpreq/util"
)

// ListenMode runs a responder.  With KeepOpen=true it serves
// connections concurrently until the context ends; otherwise it
// handles one connection and returns.
type ListenMode struct {
	Address  string // ":port"
	Behavior responder.Behavior
	Reply    []byte
	KeepOpen bool
	Timeout  time.Duration // per-connection deadline
	Logger   *util.Logger

	// ready, when set, receives the responder once it is listening.
	ready func(*responder.Responder)
}

func (m *ListenMode) String() string {
	s := fmt.Sprintf("listen on %s, respond %s", m.Address, m.Behavior)
	if m.Behavior == responder.Fixed {
		s += fmt.Sprintf(" %q", m.Reply)
	}
	if m.KeepOpen {
		s += ", keep open"
	}
	return s
}

// Run binds the listener and serves until done.
func (m *ListenMode) Run(ctx context.Context) error {
	r := &responder.Responder{
		Address:  m.Address,
		Behavior: m.Behavior,
		Reply:    m.Reply,
		KeepOpen: m.KeepOpen,
		Timeout:  m.Timeout,
		Logger:   m.Logger,
	}
	if err := r.Listen(); err != nil {
		return err
	}
	m.Logger.Info("listening on %s (%s)", r.Addr(), m.Behavior)
	if m.ready != nil {
		m.ready(r)
	}

	err := r.Serve(ctx)
	m.Logger.Verbose("served %d connection(s)", r.Accepted())
	return err
}
