package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esimkit/esimctl/internal/protocol"
	"github.com/esimkit/esimctl/internal/tasks"
)

func selfSigned(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "esimd test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}

func TestNewTLSConfigFromMemory(t *testing.T) {
	certPEM, keyPEM := selfSigned(t)

	cfg, err := NewTLSConfigFromMemory(certPEM, keyPEM)
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)

	_, err = NewTLSConfigFromMemory([]byte("not a cert"), keyPEM)
	assert.Error(t, err)
}

func TestGetTLSInfo(t *testing.T) {
	assert.Equal(t, false, GetTLSInfo(nil)["enabled"])

	certPEM, keyPEM := selfSigned(t)
	cfg, err := NewTLSConfigFromMemory(certPEM, keyPEM)
	require.NoError(t, err)

	info := GetTLSInfo(cfg)
	assert.Equal(t, true, info["enabled"])
	assert.Equal(t, 1, info["num_certs"])
}

func TestServer_TLSFromFiles(t *testing.T) {
	certPEM, keyPEM := selfSigned(t)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, certPEM, 0600))
	require.NoError(t, os.WriteFile(keyPath, keyPEM, 0600))

	manager := tasks.NewManager(&heldBackend{release: make(chan error)})
	defer manager.Close()

	srv, err := New(&Config{Host: "127.0.0.1", CertPath: certPath, KeyPath: keyPath}, manager)
	require.NoError(t, err)
	require.True(t, srv.TLS())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	addr, err := srv.Addr(ctx)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	require.True(t, pool.AppendCertsFromPEM(certPEM))
	dialer := websocket.Dialer{TLSClientConfig: &tls.Config{RootCAs: pool}}

	ws, _, err := dialer.Dial("wss://"+addr.String()+protocol.Path, nil)
	require.NoError(t, err)
	defer func() { _ = ws.Close() }()

	reply := call(t, ws, protocol.NewSlotsRequest())
	assert.NoError(t, reply.Err())

	// Plain websocket against the TLS listener fails the handshake.
	_, _, err = websocket.DefaultDialer.Dial("ws://"+addr.String()+protocol.Path, nil)
	assert.Error(t, err)
}
