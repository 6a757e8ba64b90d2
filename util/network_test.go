package util

import (
	"testing"
)

func TestParseIP(t *testing.T) {
	tests := []struct {
		host    string
		wantErr bool
	}{
		{"127.0.0.1", false},
		{"::1", false},
		{"fe80::1", false},
		{"example.com", true},
		{"", true},
		{"300.1.1.1", true},
	}

	for _, tt := range tests {
		ip, err := ParseIP(tt.host)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIP(%q) err=%v wantErr=%v", tt.host, err, tt.wantErr)
			continue
		}
		if err == nil && ip == nil {
			t.Errorf("ParseIP(%q) returned nil IP without error", tt.host)
		}
	}
}

func TestValidPort(t *testing.T) {
	for _, p := range []int{1, 80, 65535} {
		if !ValidPort(p) {
			t.Errorf("ValidPort(%d) = false", p)
		}
	}
	for _, p := range []int{0, -1, 65536} {
		if ValidPort(p) {
			t.Errorf("ValidPort(%d) = true", p)
		}
	}
}

func TestFormatAddr(t *testing.T) {
	if got := FormatAddr("1.2.3.4", 22); got != "1.2.3.4:22" {
		t.Errorf("got %q, want %q", got, "1.2.3.4:22")
	}
	if got := FormatAddr("::1", 443); got != "[::1]:443" {
		t.Errorf("got %q, want %q", got, "[::1]:443")
	}
}

func TestFindFreePort(t *testing.T) {
	port, err := FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	if !ValidPort(port) {
		t.Errorf("port %d out of range", port)
	}
}
