package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// HTTPTLS builds the *tls.Config of the placement API.
// Returns nil, nil if no cert/key is configured (plaintext mode). When a
// client CA is set, clients must present a certificate signed by it.
func (c *Config) HTTPTLS() (*tls.Config, error) {
	if c.HTTPTLSCert == "" && c.HTTPTLSKey == "" {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(c.HTTPTLSCert, c.HTTPTLSKey)
	if err != nil {
		return nil, fmt.Errorf("load api server cert: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if c.HTTPTLSClientCA != "" {
		caPEM, err := os.ReadFile(c.HTTPTLSClientCA)
		if err != nil {
			return nil, fmt.Errorf("read api client CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse api client CA")
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsConfig, nil
}
