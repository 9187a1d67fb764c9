package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// HTTPClientConfig holds connection settings for a bank endpoint
type HTTPClientConfig struct {
	// A payment adapter talks to a single host, so one limit covers the pool
	MaxConnsPerHost int
	IdleConns       int
	IdleConnTimeout time.Duration

	DialTimeout         time.Duration
	TLSHandshakeTimeout time.Duration
	KeepAlive           time.Duration

	InsecureSkipVerify bool // Test terminals only
	MinTLSVersion      uint16
}

// BankClientConfig returns a pool tuned for a single acquiring bank host.
// Bank responses are small XML documents, so compression is left off.
func BankClientConfig() *HTTPClientConfig {
	return &HTTPClientConfig{
		MaxConnsPerHost: 50,
		IdleConns:       20,
		IdleConnTimeout: 90 * time.Second,

		DialTimeout:         10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		KeepAlive:           60 * time.Second,

		MinTLSVersion: tls.VersionTLS12,
	}
}

// NewHTTPClient creates a pooled client. timeout bounds the whole exchange,
// including provisioning delays on the bank side.
func NewHTTPClient(cfg *HTTPClientConfig, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: cfg.KeepAlive}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			MaxConnsPerHost:     cfg.MaxConnsPerHost,
			MaxIdleConns:        cfg.IdleConns,
			MaxIdleConnsPerHost: cfg.IdleConns,
			IdleConnTimeout:     cfg.IdleConnTimeout,
			TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
			DisableCompression:  true,
			ForceAttemptHTTP2:   true,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify,
				MinVersion:         cfg.MinTLSVersion,
			},
		},
	}
}
