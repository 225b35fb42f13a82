package discovery

import (
	"testing"
)

func TestDaemon_String(t *testing.T) {
	daemon := &Daemon{
		Instance: "esimd on lab-pi",
		Hostname: "lab-pi.local.",
		IP:       "192.168.4.16",
		Port:     7420,
	}

	expected := "esimd on lab-pi (lab-pi.local.) at 192.168.4.16:7420"
	if daemon.String() != expected {
		t.Errorf("Daemon.String() = %v, want %v", daemon.String(), expected)
	}
}

func TestDaemon_URL(t *testing.T) {
	tests := []struct {
		name     string
		daemon   *Daemon
		expected string
	}{
		{
			name: "plain websocket",
			daemon: &Daemon{
				IP:       "192.168.4.16",
				Port:     7420,
				Metadata: map[string]string{"path": "/v1/ws", "tls": "0"},
			},
			expected: "ws://192.168.4.16:7420/v1/ws",
		},
		{
			name: "tls",
			daemon: &Daemon{
				IP:       "10.0.0.5",
				Port:     8443,
				Metadata: map[string]string{"path": "/v1/ws", "tls": "1"},
			},
			expected: "wss://10.0.0.5:8443/v1/ws",
		},
		{
			name: "no metadata falls back to default path",
			daemon: &Daemon{
				IP:   "10.0.0.5",
				Port: 7420,
			},
			expected: "ws://10.0.0.5:7420" + DefaultPath,
		},
		{
			name: "ipv6 is bracketed",
			daemon: &Daemon{
				IP:   "fe80::1",
				Port: 7420,
			},
			expected: "ws://[fe80::1]:7420" + DefaultPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.daemon.URL(); got != tt.expected {
				t.Errorf("Daemon.URL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDaemon_GetMetadata(t *testing.T) {
	daemon := &Daemon{
		Metadata: map[string]string{
			"path":    "/v1/ws",
			"version": "0.3.0",
		},
	}

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"existing key", "path", "/v1/ws"},
		{"another existing key", "version", "0.3.0"},
		{"non-existent key", "missing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := daemon.GetMetadata(tt.key); got != tt.expected {
				t.Errorf("Daemon.GetMetadata(%v) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestDaemon_GetMetadata_NilMap(t *testing.T) {
	daemon := &Daemon{Metadata: nil}

	if got := daemon.GetMetadata("anything"); got != "" {
		t.Errorf("Daemon.GetMetadata() with nil map = %v, want empty string", got)
	}
	if daemon.TLS() {
		t.Error("Daemon.TLS() with nil map = true, want false")
	}
}
