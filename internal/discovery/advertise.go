package discovery

import (
	"context"
	"fmt"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/logging"
	"github.com/esimkit/esimctl/internal/version"
)

// Advertisement describes what esimd announces.
type Advertisement struct {
	Instance string
	Port     int
	Path     string
	TLS      bool
}

// Text renders the TXT records.
func (a Advertisement) Text() []string {
	path := a.Path
	if path == "" {
		path = DefaultPath
	}
	tls := "0"
	if a.TLS {
		tls = "1"
	}
	return []string{
		TxtVersion + "=" + version.Version,
		TxtPath + "=" + path,
		TxtTLS + "=" + tls,
	}
}

// Advertise registers a on all interfaces until ctx is done.
func Advertise(ctx context.Context, a Advertisement) error {
	if a.Instance == "" {
		return fmt.Errorf("advertisement needs an instance name")
	}
	if a.Port <= 0 {
		return fmt.Errorf("invalid advertised port: %d", a.Port)
	}

	server, err := zeroconf.Register(a.Instance, ServiceType, ServiceDomain, a.Port, a.Text(), nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	defer server.Shutdown()

	logging.Info("Advertising esimd",
		zap.String("instance", a.Instance),
		zap.String("service", ServiceType),
		zap.Int("port", a.Port),
	)

	<-ctx.Done()
	logging.Debug("Stopped mDNS advertisement", zap.String("instance", a.Instance))
	return nil
}
