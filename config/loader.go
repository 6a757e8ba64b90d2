package config

// loader.go - configuration loading from .env files and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. .env.local, then .env  (this file, via godotenv)
//   4. Defaults   (defaults.go)

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads files into the process environment.  Variables that
// are already set are left alone, so the real environment beats every
// file and earlier files beat later ones.  Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = DotEnvFiles
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the TCPREQ_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := env("HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("PORT"); v > 0 {
		cfg.Port = v
	}
	if v := envInt("TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}
	if v := env("DATA"); v != "" {
		cfg.Data = v
	}
	if envBool("HEX") {
		cfg.Hex = true
	}
	if v := envInt("BUFFER"); v > 0 {
		cfg.BufferSize = v
	}
	if v := envInt("REPEAT"); v > 0 {
		cfg.Repeat = v
	}

	// Responder
	if envBool("LISTEN") {
		cfg.Listen = true
	}
	if v := envInt("LOCAL_PORT"); v > 0 {
		cfg.LocalPort = v
	}
	if envBool("KEEP_OPEN") {
		cfg.KeepOpen = true
	}
	if v := env("RESPOND"); v != "" {
		cfg.Respond = strings.ToLower(v)
	}
	if v := env("REPLY"); v != "" {
		cfg.Reply = v
	}

	// SSH tunnel
	if v := env("TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := env("SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := env("KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// SOCKS proxy
	if v := env("PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := env("PROXY_AUTH"); v != "" {
		cfg.ProxyAuth = v
	}

	// Output
	if envBool("NOTIFY") {
		cfg.Notify = true
	}
	if envBool("STATS") {
		cfg.Stats = true
	}
	if v := envInt("VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func env(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func envInt(key string) int {
	v := env(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(env(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
