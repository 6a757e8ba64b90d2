package core

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"tcpreq/config"
	"tcpreq/internal/client"
	"tcpreq/util"
)

// RequestMode sends one payload to the server Repeat times on a single
// client and writes every reply to Stdout.
type RequestMode struct {
	Client     client.Config
	Via        string // route description: "tcp", "ssh gw:22", ...
	Payload    []byte // nil reads the payload from Stdin
	BufferSize int
	Repeat     int
	Hex        bool // decode stdin as hex and print replies as hex
	Stats      bool // print a metrics summary to Stderr
	Logger     *util.Logger

	// Stdin/Stdout/Stderr default to the process streams when nil.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (m *RequestMode) String() string {
	return fmt.Sprintf("request %s via %s, payload %s (timeout %v per stage, buffer %d, repeat %d)",
		util.FormatAddr(m.Client.Address, m.Client.Port), m.Via, describeBytes(m.Payload),
		m.Client.Timeout, m.BufferSize, m.repeat())
}

// Run performs the exchanges.  Each failure has already been reported
// through the client's log sink; Run only summarises them.
func (m *RequestMode) Run(ctx context.Context) error {
	stdin, stdout := stdio(m.Stdin, m.Stdout)

	payload, err := m.payload(stdin)
	if err != nil {
		return err
	}

	c, err := client.New(m.Client)
	if err != nil {
		return err
	}
	defer func() {
		c.Close()
		if m.Client.Opener != nil {
			if err := m.Client.Opener.Close(); err != nil {
				m.Logger.Debug("closing transport: %v", err)
			}
		}
	}()

	m.Logger.Verbose("exchanging with %s via %s", c.Addr(), m.Via)

	out := make([]byte, m.BufferSize)
	total, failed := m.repeat(), 0
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			failed += total - i
			break
		}
		n, err := c.Exchange(ctx, payload, out)
		if err != nil {
			failed++
			continue
		}
		if err := m.writeReply(stdout, out[:n]); err != nil {
			return fmt.Errorf("writing reply: %w", err)
		}
	}

	if m.Stats {
		fmt.Fprintln(m.stderr(), m.Client.Metrics.JSON())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d exchanges failed", failed, total)
	}
	return nil
}

func (m *RequestMode) payload(stdin io.Reader) ([]byte, error) {
	if m.Payload != nil {
		return m.Payload, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if m.Hex {
		return config.DecodeHex(string(data))
	}
	return data, nil
}

func (m *RequestMode) writeReply(w io.Writer, p []byte) error {
	if m.Hex {
		_, err := io.WriteString(w, hex.EncodeToString(p)+"\n")
		return err
	}
	_, err := w.Write(p)
	return err
}

func (m *RequestMode) repeat() int {
	if m.Repeat < 1 {
		return 1
	}
	return m.Repeat
}

func (m *RequestMode) stderr() io.Writer {
	if m.Stderr != nil {
		return m.Stderr
	}
	return os.Stderr
}

// describeBytes shows what would be sent, truncated for display.
func describeBytes(p []byte) string {
	const limit = 32
	switch {
	case p == nil:
		return "from stdin"
	case len(p) > limit:
		return fmt.Sprintf("%q… (%d bytes)", p[:limit], len(p))
	default:
		return fmt.Sprintf("%q", p)
	}
}
