package posnet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blackbunny/paranoia/internal/adapters/ports"
	"github.com/blackbunny/paranoia/pkg/observability"
	"go.uber.org/zap"
)

// BankName labels Posnet in logs, metrics and audit records
const BankName = "posnet"

// Config contains configuration for the Posnet adapter
type Config struct {
	Credentials Credentials

	// Posnet currency code sent for currencies without a mapping
	DefaultCurrency string

	// Reject unknown currencies instead of falling back to DefaultCurrency
	StrictCurrency bool
}

// DefaultConfig returns the lenient TRY-defaulting configuration for the given credentials
func DefaultConfig(creds Credentials) *Config {
	return &Config{
		Credentials:     creds,
		DefaultCurrency: CurrencyCodeTRY,
	}
}

// adapter implements ports.PaymentAdapter for Posnet
type adapter struct {
	config    *Config
	formatter formatter
	transport ports.Transport
	audit     ports.AuditRecorder
	logger    *zap.Logger
}

// NewAdapter creates a Posnet payment adapter. audit may be nil.
func NewAdapter(config *Config, transport ports.Transport, audit ports.AuditRecorder, logger *zap.Logger) ports.PaymentAdapter {
	defaultCurrency := config.DefaultCurrency
	if defaultCurrency == "" {
		defaultCurrency = CurrencyCodeTRY
	}

	return &adapter{
		config:    config,
		formatter: formatter{defaultCurrency: defaultCurrency},
		transport: transport,
		audit:     audit,
		logger:    logger,
	}
}

func (a *adapter) Sale(ctx context.Context, req *ports.Request) (*ports.PaymentResponse, error) {
	return a.Process(ctx, ports.TransactionTypeSale, req)
}

func (a *adapter) PreAuthorization(ctx context.Context, req *ports.Request) (*ports.PaymentResponse, error) {
	return a.Process(ctx, ports.TransactionTypePreAuthorization, req)
}

func (a *adapter) PostAuthorization(ctx context.Context, req *ports.Request) (*ports.PaymentResponse, error) {
	return a.Process(ctx, ports.TransactionTypePostAuthorization, req)
}

func (a *adapter) Refund(ctx context.Context, req *ports.Request) (*ports.PaymentResponse, error) {
	return a.Process(ctx, ports.TransactionTypeRefund, req)
}

func (a *adapter) Cancel(ctx context.Context, req *ports.Request) (*ports.PaymentResponse, error) {
	return a.Process(ctx, ports.TransactionTypeCancel, req)
}

// Process builds the transaction payload, sends it and parses the bank response
func (a *adapter) Process(ctx context.Context, txType ports.TransactionType, req *ports.Request) (*ports.PaymentResponse, error) {
	build, ok := builders[txType]
	if !ok {
		return nil, fmt.Errorf("unsupported transaction type: %s", txType)
	}

	if err := a.validateRequest(txType, req); err != nil {
		a.logger.Error("Invalid Posnet request",
			zap.String("transaction_type", string(txType)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	body, err := buildEnvelope(req, build(req, a.formatter), a.config.Credentials)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Processing Posnet transaction",
		zap.String("transaction_type", string(txType)),
		zap.String("order_id", req.OrderID),
		zap.String("amount", req.Amount.String()),
		zap.String("transaction_id", req.TransactionID),
	)

	startTime := time.Now()
	raw, err := a.transport.Send(ctx, body)
	elapsed := time.Since(startTime)
	if err != nil {
		a.logger.Error("Failed to send Posnet request",
			zap.String("transaction_type", string(txType)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		observability.RecordBankTransaction(BankName, string(txType), observability.StatusFailed, "", elapsed)
		a.record(ctx, txType, req, nil, "", err, elapsed)
		return nil, fmt.Errorf("posnet %s request failed: %w", txType, err)
	}

	resp, err := ParseResponse(raw)
	if err != nil {
		a.logger.Error("Failed to parse Posnet response",
			zap.String("transaction_type", string(txType)),
			zap.Int("body_length", len(raw)),
			zap.Error(err),
		)
		observability.RecordBankTransaction(BankName, string(txType), observability.StatusFailed, "", elapsed)
		a.record(ctx, txType, req, nil, string(raw), err, elapsed)
		return nil, err
	}

	status := observability.StatusApproved
	if !resp.IsSuccess {
		status = observability.StatusDeclined
	}
	observability.RecordBankTransaction(BankName, string(txType), status, resp.ResponseCode, elapsed)

	a.logger.Info("Processed Posnet transaction",
		zap.String("transaction_type", string(txType)),
		zap.Bool("is_success", resp.IsSuccess),
		zap.String("response_code", resp.ResponseCode),
		zap.String("response_message", resp.ResponseMessage),
		zap.String("transaction_id", resp.TransactionID),
		zap.Duration("elapsed", elapsed),
	)

	a.record(ctx, txType, req, resp, resp.RawData, nil, elapsed)
	return resp, nil
}

// validateRequest checks the invariants a builder cannot report
func (a *adapter) validateRequest(txType ports.TransactionType, req *ports.Request) error {
	if req == nil {
		return errors.New("request is required")
	}
	if txType == ports.TransactionTypeCancel {
		return nil
	}
	if req.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Message: "must not be negative"}
	}
	if a.config.StrictCurrency {
		if _, ok := CurrencyCode(req.Currency); !ok {
			return &ValidationError{Field: "currency", Message: fmt.Sprintf("unsupported currency %q", req.Currency)}
		}
	}
	return nil
}

// record writes the exchange to the audit trail. Audit failures never fail the payment.
func (a *adapter) record(ctx context.Context, txType ports.TransactionType, req *ports.Request, resp *ports.PaymentResponse, rawResponse string, callErr error, elapsed time.Duration) {
	if a.audit == nil {
		return
	}

	entry := &ports.AuditEntry{
		Bank:            BankName,
		TransactionType: txType,
		OrderID:         req.OrderID,
		RequestData:     MaskDocument(req.RawData),
		ResponseData:    rawResponse,
		Elapsed:         elapsed,
		CreatedAt:       time.Now().UTC(),
	}
	if resp != nil {
		entry.IsSuccess = resp.IsSuccess
		entry.ResponseCode = resp.ResponseCode
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}

	if err := a.audit.Record(ctx, entry); err != nil {
		a.logger.Warn("Failed to record Posnet exchange",
			zap.String("transaction_type", string(txType)),
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
	}
}
