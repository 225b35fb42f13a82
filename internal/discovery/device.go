package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Daemon represents a discovered esimd instance on the network
type Daemon struct {
	// Instance is the advertised instance name (e.g., "esimd on lab-pi")
	Instance string

	// Hostname is the mDNS hostname (e.g., "lab-pi.local.")
	Hostname string

	// IP is the address to connect to, IPv4 when available
	IP string

	// Port is the websocket port
	Port int

	// Metadata contains the TXT record data
	// Fields set by esimd: "version", "path", "tls"
	Metadata map[string]string

	// DiscoveredAt is when the daemon was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the daemon
func (d *Daemon) String() string {
	return fmt.Sprintf("%s (%s) at %s", d.Instance, d.Hostname, d.Address())
}

// Address returns host:port, bracketing IPv6 addresses.
func (d *Daemon) Address() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// TLS reports whether the daemon advertised a TLS listener.
func (d *Daemon) TLS() bool {
	return d.GetMetadata(TxtTLS) == "1"
}

// URL returns the websocket URL to dial.
func (d *Daemon) URL() string {
	scheme := "ws"
	if d.TLS() {
		scheme = "wss"
	}
	path := d.GetMetadata(TxtPath)
	if path == "" {
		path = DefaultPath
	}
	return fmt.Sprintf("%s://%s%s", scheme, d.Address(), path)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Daemon) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
