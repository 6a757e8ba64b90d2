package transport

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	ncerr "tcpreq/internal/errors"
	"tcpreq/util"
)

// SSHConfig holds everything needed to reach an SSH gateway.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration
}

func (c *SSHConfig) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SSHDialer forwards connections through an SSH gateway with
// ssh.Client.Dial.  The gateway session is opened on the first Dial
// and shared by every later exchange until Close.
type SSHDialer struct {
	config *SSHConfig
	logger *util.Logger

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHDialer returns a dialer for the given gateway.  Nothing is
// dialled until the first call to Dial.
func NewSSHDialer(cfg *SSHConfig, logger *util.Logger) *SSHDialer {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = util.Nop()
	}
	return &SSHDialer{config: cfg, logger: logger}
}

// Dial opens a forwarded connection to address through the gateway.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	client, err := d.session(ctx)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("ssh: forwarding %s %s", network, address)
	conn, err := client.DialContext(ctx, network, address)
	if err != nil {
		return nil, ncerr.WrapSSH("channel", d.config.Host, d.config.Port, err)
	}
	return conn, nil
}

// Close tears down the gateway session, if one is open.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

// session returns the live gateway client, handshaking on first use.
func (d *SSHDialer) session(ctx context.Context) (*ssh.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		return d.client, nil
	}

	auth, err := BuildAuthMethods(d.config)
	if err != nil {
		return nil, ncerr.WrapSSH("auth", d.config.Host, d.config.Port, err)
	}
	hostKeys, err := hostKeyCallback(d.config)
	if err != nil {
		return nil, ncerr.WrapSSH("hostkey", d.config.Host, d.config.Port, err)
	}

	addr := d.config.addr()
	d.logger.Verbose("ssh: connecting to gateway %s as %s", addr, d.config.User)

	var nd net.Dialer
	tcpConn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, ncerr.Wrap("dial", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, &ssh.ClientConfig{
		User:            d.config.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         d.config.ConnTimeout,
	})
	if err != nil {
		tcpConn.Close()
		return nil, ncerr.WrapSSH("handshake", d.config.Host, d.config.Port, err)
	}

	d.client = ssh.NewClient(sshConn, chans, reqs)
	go d.watch(d.client)

	d.logger.Verbose("ssh: gateway session established")
	return d.client, nil
}

// watch forgets client once the gateway drops it so the next Dial
// handshakes again.
func (d *SSHDialer) watch(client *ssh.Client) {
	err := client.Wait()

	d.mu.Lock()
	if d.client == client {
		d.client = nil
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Debug("ssh: gateway session closed: %v", err)
	}
}
