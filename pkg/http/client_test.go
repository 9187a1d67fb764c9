package http

import (
	"crypto/tls"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBankClientConfig(t *testing.T) {
	cfg := BankClientConfig()

	assert.LessOrEqual(t, cfg.IdleConns, cfg.MaxConnsPerHost)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinTLSVersion)
	assert.False(t, cfg.InsecureSkipVerify)
}

func TestNewHTTPClient(t *testing.T) {
	cfg := BankClientConfig()
	cfg.InsecureSkipVerify = true

	client := NewHTTPClient(cfg, 15*time.Second)

	assert.Equal(t, 15*time.Second, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)
	assert.True(t, transport.DisableCompression)
	assert.Equal(t, cfg.MaxConnsPerHost, transport.MaxConnsPerHost)
	assert.Equal(t, cfg.IdleConns, transport.MaxIdleConnsPerHost)
}
