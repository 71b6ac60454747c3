// Package tlsconfig builds the TLS configuration used to serve the
// websocket endpoint over wss. Client authentication is deliberately out of
// scope; only the server presents a certificate.
package tlsconfig

import (
	"crypto/tls"
	"fmt"
)

// Config holds the paths to the server's certificate and private key.
type Config struct {
	CertPath string
	KeyPath  string
}

// Setup loads the key pair and returns a TLS 1.3 server configuration.
func Setup(config *Config) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(config.CertPath, config.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	return &tls.Config{
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
	}, nil
}
