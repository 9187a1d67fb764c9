package ports

import (
	"context"
	"time"
)

// Transport sends an encoded request body to the bank and returns the raw response body.
// Implementations own connection handling, retries and timeouts.
type Transport interface {
	Send(ctx context.Context, body []byte) ([]byte, error)
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc func(ctx context.Context, body []byte) ([]byte, error)

// Send calls f(ctx, body)
func (f TransportFunc) Send(ctx context.Context, body []byte) ([]byte, error) {
	return f(ctx, body)
}

// TransportEvent describes one exchange with the bank
type TransportEvent struct {
	URL          string
	RequestBody  []byte
	ResponseBody []byte // Empty in BeforeRequest
	StatusCode   int
	Elapsed      time.Duration
	Err          error
}

// TransportListener observes outbound requests, e.g. for communication logging
type TransportListener interface {
	BeforeRequest(ctx context.Context, event *TransportEvent)
	AfterRequest(ctx context.Context, event *TransportEvent)
}
