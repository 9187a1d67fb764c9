package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blackbunny/paranoia/internal/adapters/ports"
	pkghttp "github.com/blackbunny/paranoia/pkg/http"
	"github.com/blackbunny/paranoia/pkg/observability"
	"github.com/blackbunny/paranoia/pkg/resilience"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	formContentType = "application/x-www-form-urlencoded"

	// DefaultMaxResponseSize caps how much of a bank reply is read
	DefaultMaxResponseSize int64 = 64 << 10
)

// Config contains configuration for the HTTP transport
type Config struct {
	// Bank endpoint the form body is posted to
	URL string

	// HTTP client timeout
	Timeout time.Duration

	// TLS configuration
	InsecureSkipVerify bool

	// Retries apply only to errors matching RetryableErrors. Defaults match
	// failures raised before the bank could have received the request.
	MaxRetries      int
	RetryableErrors []string

	// Outbound rate limit in requests per second; 0 disables limiting
	RateLimit float64
	RateBurst int

	CircuitBreaker CircuitBreakerConfig

	// Replies longer than this many bytes fail with ErrResponseTooLarge
	MaxResponseSize int64
}

// DefaultConfig returns the default transport configuration for a bank URL
func DefaultConfig(url string) *Config {
	return &Config{
		URL:             url,
		Timeout:         60 * time.Second,
		MaxRetries:      2,
		RetryableErrors: []string{"connection refused", "no such host"},
		RateBurst:       1,
		CircuitBreaker:  DefaultCircuitBreakerConfig(),
		MaxResponseSize: DefaultMaxResponseSize,
	}
}

// ErrResponseTooLarge is returned when a reply exceeds Config.MaxResponseSize
var ErrResponseTooLarge = errors.New("bank response too large")

// StatusError is returned when the bank answers with a server error status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bank returned status %d: %s", e.StatusCode, e.Body)
}

// HTTPTransport posts form-encoded bodies to a bank endpoint and implements ports.Transport
type HTTPTransport struct {
	config         *Config
	client         ports.HTTPClient
	logger         *zap.Logger
	circuitBreaker *CircuitBreaker
	backoff        resilience.BackoffStrategy
	limiter        *rate.Limiter
	listeners      []ports.TransportListener
}

// NewHTTPTransport creates a bank transport. A nil client uses the pooled bank HTTP client.
func NewHTTPTransport(config *Config, client ports.HTTPClient, logger *zap.Logger, listeners ...ports.TransportListener) *HTTPTransport {
	if client == nil {
		clientConfig := pkghttp.BankClientConfig()
		clientConfig.InsecureSkipVerify = config.InsecureSkipVerify
		client = pkghttp.NewHTTPClient(clientConfig, config.Timeout)
	}

	breakerConfig := config.CircuitBreaker
	if breakerConfig.OnStateChange == nil {
		breakerConfig.OnStateChange = func(from, to CircuitState) {
			logger.Warn("Bank circuit breaker changed state",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	return &HTTPTransport{
		config:         config,
		client:         client,
		logger:         logger,
		circuitBreaker: NewCircuitBreaker(breakerConfig),
		backoff:        resilience.DefaultExponentialBackoff(),
		limiter:        limiter,
		listeners:      listeners,
	}
}

// Send posts body to the bank and returns the raw response body
func (t *HTTPTransport) Send(ctx context.Context, body []byte) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var response []byte
	err := t.circuitBreaker.Call(func() error {
		var lastErr error
		for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
			if attempt > 0 {
				t.logger.Info("Retrying bank request",
					zap.Int("attempt", attempt),
					zap.Int("max_retries", t.config.MaxRetries),
				)
				observability.RecordBankRetry()
				if err := resilience.Wait(ctx, t.backoff, attempt-1); err != nil {
					return fmt.Errorf("retry cancelled: %w", err)
				}
			}

			response, lastErr = t.post(ctx, body)
			if lastErr == nil {
				return nil
			}
			if !t.isRetryable(lastErr) {
				return lastErr
			}
			t.logger.Warn("Retryable bank error occurred",
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
		}
		return fmt.Errorf("failed after %d retries: %w", t.config.MaxRetries, lastErr)
	})

	if err != nil {
		if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests) {
			t.logger.Warn("Circuit breaker rejected bank request",
				zap.String("circuit_state", t.circuitBreaker.State().String()),
			)
		}
		return nil, err
	}

	return response, nil
}

// post performs a single HTTP exchange
func (t *HTTPTransport) post(ctx context.Context, body []byte) ([]byte, error) {
	event := &ports.TransportEvent{URL: t.config.URL, RequestBody: body}
	t.notifyBefore(ctx, event)

	startTime := time.Now()
	respBody, statusCode, err := t.do(ctx, body)

	event.ResponseBody = respBody
	event.StatusCode = statusCode
	event.Elapsed = time.Since(startTime)
	event.Err = err
	t.notifyAfter(ctx, event)

	return respBody, err
}

func (t *HTTPTransport) do(ctx context.Context, body []byte) ([]byte, int, error) {
	defer observability.TrackBankRequest()()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", formContentType)

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	limit := t.config.MaxResponseSize
	if limit <= 0 {
		limit = DefaultMaxResponseSize
	}
	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, limit+1))
	if err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(respBody)) > limit {
		return nil, httpResp.StatusCode, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, limit)
	}

	if httpResp.StatusCode >= http.StatusInternalServerError {
		return respBody, httpResp.StatusCode, &StatusError{StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	return respBody, httpResp.StatusCode, nil
}

// isRetryable determines if an error should trigger a retry
func (t *HTTPTransport) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, retryable := range t.config.RetryableErrors {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}

	return false
}

func (t *HTTPTransport) notifyBefore(ctx context.Context, event *ports.TransportEvent) {
	for _, l := range t.listeners {
		l.BeforeRequest(ctx, event)
	}
}

func (t *HTTPTransport) notifyAfter(ctx context.Context, event *ports.TransportEvent) {
	for _, l := range t.listeners {
		l.AfterRequest(ctx, event)
	}
}

// CircuitState reports the circuit breaker state, for health checks
func (t *HTTPTransport) CircuitState() string {
	return t.circuitBreaker.State().String()
}
