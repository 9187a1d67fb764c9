package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// TransactionType identifies one of the lifecycle operations every bank adapter supports
type TransactionType string

const (
	TransactionTypeSale              TransactionType = "sale"              // Authorize and capture
	TransactionTypePreAuthorization  TransactionType = "preauthorization"  // Hold funds only
	TransactionTypePostAuthorization TransactionType = "postauthorization" // Capture a previous hold
	TransactionTypeRefund            TransactionType = "refund"            // Return captured funds
	TransactionTypeCancel            TransactionType = "cancel"            // Void a sale or capture
)

// TransactionTypes lists every supported transaction type in lifecycle order
func TransactionTypes() []TransactionType {
	return []TransactionType{
		TransactionTypeSale,
		TransactionTypePreAuthorization,
		TransactionTypePostAuthorization,
		TransactionTypeRefund,
		TransactionTypeCancel,
	}
}

// Currency is the provider-agnostic currency of a request
type Currency string

const (
	CurrencyTRY Currency = "TRY"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// Request is the normalized payment request handed to a bank adapter.
//
// TransactionID and AuthCode reference an earlier transaction and are copied
// by the caller from a previous PaymentResponse before capture, refund or
// cancel. RawData is written by the adapter with the outbound document, so a
// single Request must not be shared by concurrent calls.
type Request struct {
	CardNumber   string
	SecurityCode string
	ExpireMonth  string
	ExpireYear   string

	Amount      decimal.Decimal // Major units (e.g. 10.50 TRY)
	Currency    Currency
	OrderID     string
	Installment int

	TransactionID string
	AuthCode      string

	RawData string
}

// PaymentResponse is the normalized result of one bank round trip
type PaymentResponse struct {
	IsSuccess       bool
	ResponseCode    string
	ResponseMessage string

	// OrderID is empty when the bank omits it; callers fall back to the
	// order id they sent.
	OrderID       string
	TransactionID string
	AuthCode      string

	RawData string // Verbatim response body
}

// PaymentAdapter is the public contract of a bank adapter.
// A declined transaction is a response with IsSuccess false, not an error.
type PaymentAdapter interface {
	Sale(ctx context.Context, req *Request) (*PaymentResponse, error)
	PreAuthorization(ctx context.Context, req *Request) (*PaymentResponse, error)
	PostAuthorization(ctx context.Context, req *Request) (*PaymentResponse, error)
	Refund(ctx context.Context, req *Request) (*PaymentResponse, error)
	Cancel(ctx context.Context, req *Request) (*PaymentResponse, error)

	// Process runs the build, send and parse pipeline for any transaction type
	Process(ctx context.Context, txType TransactionType, req *Request) (*PaymentResponse, error)
}
