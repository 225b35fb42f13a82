package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/config"
	"github.com/esimkit/esimctl/internal/logging"
	"github.com/esimkit/esimctl/internal/protocol"
)

const (
	// ServiceType is the mDNS service type esimd advertises
	ServiceType = "_esimd._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for daemon discovery
	DefaultScanTimeout = time.Duration(config.DefaultDiscoveryTimeout) * time.Second

	// DefaultPath is assumed when a daemon advertises no path
	DefaultPath = protocol.Path
)

// TXT record keys.
const (
	TxtVersion = "version"
	TxtPath    = "path"
	TxtTLS     = "tls"
)

// Scanner handles mDNS daemon discovery
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Browse collects every daemon that answers before the timeout, sorted by
// instance name. Repeated answers from one instance are merged.
func (s *Scanner) Browse(ctx context.Context) ([]*Daemon, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var (
		mu    sync.Mutex
		found = make(map[string]*Daemon)
	)

	err := s.browse(ctx, func(d *Daemon) bool {
		mu.Lock()
		found[d.Instance] = d
		mu.Unlock()
		return false
	})
	if err != nil {
		return nil, err
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	daemons := make([]*Daemon, 0, len(found))
	for _, d := range found {
		daemons = append(daemons, d)
	}
	sort.Slice(daemons, func(i, j int) bool { return daemons[i].Instance < daemons[j].Instance })
	return daemons, nil
}

// Find waits for the daemon named instance. An empty instance accepts the
// first daemon that answers.
func (s *Scanner) Find(ctx context.Context, instance string) (*Daemon, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	daemonChan := make(chan *Daemon, 1)
	err := s.browse(ctx, func(d *Daemon) bool {
		if instance != "" && d.Instance != instance {
			return false
		}
		select {
		case daemonChan <- d:
		default:
		}
		cancel()
		return true
	})
	if err != nil {
		return nil, err
	}

	select {
	case d := <-daemonChan:
		return d, nil
	case <-ctx.Done():
		select {
		case d := <-daemonChan:
			return d, nil
		default:
		}
		if instance == "" {
			return nil, fmt.Errorf("no esimd found within %s", s.Timeout)
		}
		return nil, fmt.Errorf("esimd %q not found within %s", instance, s.Timeout)
	}
}

// browse feeds parsed entries to found until ctx is done or found returns true.
func (s *Scanner) browse(ctx context.Context, found func(*Daemon) bool) error {
	entries := make(chan *zeroconf.ServiceEntry)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				d := s.parseServiceEntry(entry)
				if d == nil {
					continue
				}
				logging.Debug("Discovered esimd",
					zap.String("instance", d.Instance),
					zap.String("addr", d.Address()),
				)
				if found(d) {
					return
				}
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a Daemon
// Returns nil if the entry has no usable address
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Daemon {
	if entry == nil || entry.Instance == "" {
		return nil
	}

	// Prefer IPv4
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = config.DefaultDaemonPort
	}

	return &Daemon{
		Instance:     unescapeInstance(entry.Instance),
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     parseText(entry.Text),
		DiscoveredAt: time.Now(),
	}
}

// parseText splits "key=value" TXT strings. A bare key maps to "".
func parseText(text []string) map[string]string {
	metadata := make(map[string]string, len(text))
	for _, txt := range text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}
	return metadata
}

// unescapeInstance undoes the DNS escaping zeroconf leaves on instance names.
func unescapeInstance(name string) string {
	return strings.ReplaceAll(name, `\ `, " ")
}
