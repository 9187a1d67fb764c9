package transport

import (
	"context"
	"net/url"

	"github.com/blackbunny/paranoia/internal/adapters/ports"
	"go.uber.org/zap"
)

// CommunicationLogger logs every bank exchange at debug level
type CommunicationLogger struct {
	logger *zap.Logger
	mask   func(string) string
}

// NewCommunicationLogger creates a listener that logs request and response
// documents. mask hides sensitive fields in the request document; nil logs it as is.
func NewCommunicationLogger(logger *zap.Logger, mask func(string) string) *CommunicationLogger {
	if mask == nil {
		mask = func(s string) string { return s }
	}
	return &CommunicationLogger{logger: logger, mask: mask}
}

// BeforeRequest logs the outbound document
func (c *CommunicationLogger) BeforeRequest(ctx context.Context, event *ports.TransportEvent) {
	c.logger.Debug("Sending bank request",
		zap.String("url", event.URL),
		zap.String("request", c.requestDocument(event.RequestBody)),
	)
}

// AfterRequest logs the bank answer or the transport error
func (c *CommunicationLogger) AfterRequest(ctx context.Context, event *ports.TransportEvent) {
	if event.Err != nil {
		c.logger.Debug("Bank request failed",
			zap.String("url", event.URL),
			zap.Int("status_code", event.StatusCode),
			zap.Duration("elapsed", event.Elapsed),
			zap.Error(event.Err),
		)
		return
	}

	c.logger.Debug("Received bank response",
		zap.String("url", event.URL),
		zap.Int("status_code", event.StatusCode),
		zap.Duration("elapsed", event.Elapsed),
		zap.String("response", string(event.ResponseBody)),
	)
}

// requestDocument unwraps form-encoded bodies so the masked document is logged
func (c *CommunicationLogger) requestDocument(body []byte) string {
	form, err := url.ParseQuery(string(body))
	if err != nil || len(form) == 0 {
		return c.mask(string(body))
	}
	for _, values := range form {
		if len(values) > 0 && len(values[0]) > 0 && values[0][0] == '<' {
			return c.mask(values[0])
		}
	}
	return c.mask(string(body))
}
