package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
)

// defaultKeyNames are tried in order when no auth method is configured.
var defaultKeyNames = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// readSecret prompts on stderr and reads a line from the terminal
// without echo.  Tests replace it.
var readSecret = func(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)
	return term.ReadPassword(int(os.Stdin.Fd()))
}

// BuildAuthMethods assembles the SSH authentication methods for cfg:
// explicit key, then agent, then password.  With none configured it
// falls back to the agent plus the usual key files.
func BuildAuthMethods(cfg *SSHConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if cfg.KeyPath != "" {
		m, err := keyFileAuth(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", cfg.KeyPath, err)
		}
		methods = append(methods, m)
	}
	if cfg.UseAgent {
		m, err := agentAuth()
		if err != nil {
			return nil, fmt.Errorf("ssh-agent: %w", err)
		}
		methods = append(methods, m)
	}
	if cfg.PromptPass {
		pass, err := readSecret("SSH password: ")
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		methods = append(methods, ssh.Password(string(pass)))
	}

	if len(methods) == 0 {
		methods = fallbackAuthMethods()
	}
	if len(methods) == 0 {
		return nil, errors.New("no SSH authentication methods available – " +
			"use --ssh-key, --ssh-password, or --ssh-agent")
	}
	return methods, nil
}

func keyFileAuth(path string) (ssh.AuthMethod, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		pass, perr := readSecret(fmt.Sprintf("Enter passphrase for %s: ", path))
		if perr != nil {
			return nil, fmt.Errorf("reading passphrase: %w", perr)
		}
		signer, err = ssh.ParsePrivateKeyWithPassphrase(data, pass)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing key: %w", err)
	}
	return ssh.PublicKeys(signer), nil
}

func agentAuth() (ssh.AuthMethod, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, errors.New("SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("connecting to agent at %s: %w", sock, err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

func fallbackAuthMethods() []ssh.AuthMethod {
	var out []ssh.AuthMethod
	if m, err := agentAuth(); err == nil {
		out = append(out, m)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return out
	}
	for _, name := range defaultKeyNames {
		p := filepath.Join(home, ".ssh", name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if m, err := keyFileAuth(p); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// hostKeyCallback verifies against known_hosts in strict mode and
// accepts any key otherwise.
func hostKeyCallback(cfg *SSHConfig) (ssh.HostKeyCallback, error) {
	if !cfg.StrictHostKey {
		//nolint:gosec // user opted out of host key checking
		return ssh.InsecureIgnoreHostKey(), nil
	}

	path := cfg.KnownHosts
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts from %s: %w", path, err)
	}
	return cb, nil
}
