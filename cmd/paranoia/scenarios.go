package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/blackbunny/paranoia/internal/adapters/ports"
	"github.com/blackbunny/paranoia/internal/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// stepResult is the outcome of one scenario step
type stepResult struct {
	Name     string
	Response *ports.PaymentResponse
}

// scenarioRunner drives lifecycle scenarios against a payment adapter
type scenarioRunner struct {
	adapter  ports.PaymentAdapter
	card     config.TestCardConfig
	currency ports.Currency
	logger   *zap.Logger
	results  []stepResult
}

type scenarioFunc func(ctx context.Context, r *scenarioRunner) error

var scenarios = map[string]scenarioFunc{
	"sale-cancel":             saleCancel,
	"sale-refund":             saleRefund,
	"partial-refunds":         partialRefunds,
	"preauth-postauth-cancel": preAuthPostAuthCancel,
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newScenarioRunner(adapter ports.PaymentAdapter, card config.TestCardConfig, currency ports.Currency, logger *zap.Logger) *scenarioRunner {
	return &scenarioRunner{
		adapter:  adapter,
		card:     card,
		currency: currency,
		logger:   logger,
	}
}

// run executes the named scenario and returns every step it completed
func (r *scenarioRunner) run(ctx context.Context, name string) ([]stepResult, error) {
	scenario, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (available: %s)", name, strings.Join(scenarioNames(), ", "))
	}
	r.results = nil
	err := scenario(ctx, r)
	return r.results, err
}

// newOrder creates a card request for a fresh order
func (r *scenarioRunner) newOrder(amount int64) *ports.Request {
	return &ports.Request{
		CardNumber:   r.card.CardNumber,
		SecurityCode: r.card.SecurityCode,
		ExpireMonth:  r.card.ExpireMonth,
		ExpireYear:   r.card.ExpireYear,
		Amount:       decimal.NewFromInt(amount),
		Currency:     r.currency,
		OrderID:      newOrderID(),
		Installment:  1,
	}
}

// step runs one transaction and checks its outcome against wantSuccess
func (r *scenarioRunner) step(ctx context.Context, name string, txType ports.TransactionType, req *ports.Request, wantSuccess bool) (*ports.PaymentResponse, error) {
	resp, err := r.adapter.Process(ctx, txType, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	r.results = append(r.results, stepResult{Name: name, Response: resp})

	r.logger.Info("Scenario step finished",
		zap.String("step", name),
		zap.Bool("is_success", resp.IsSuccess),
		zap.String("response_code", resp.ResponseCode),
	)

	if resp.IsSuccess != wantSuccess {
		return resp, fmt.Errorf("%s: expected success=%t, got success=%t (%s)", name, wantSuccess, resp.IsSuccess, resp.ResponseMessage)
	}
	return resp, nil
}

// reference copies the identifiers of an approved transaction onto req
func reference(req *ports.Request, resp *ports.PaymentResponse) *ports.Request {
	req.TransactionID = resp.TransactionID
	req.AuthCode = resp.AuthCode
	return req
}

func saleCancel(ctx context.Context, r *scenarioRunner) error {
	req := r.newOrder(100)
	sale, err := r.step(ctx, "sale", ports.TransactionTypeSale, req, true)
	if err != nil {
		return err
	}
	_, err = r.step(ctx, "cancel sale", ports.TransactionTypeCancel, reference(req, sale), true)
	return err
}

func saleRefund(ctx context.Context, r *scenarioRunner) error {
	req := r.newOrder(100)
	sale, err := r.step(ctx, "sale", ports.TransactionTypeSale, req, true)
	if err != nil {
		return err
	}
	_, err = r.step(ctx, "full refund", ports.TransactionTypeRefund, reference(req, sale), true)
	return err
}

func partialRefunds(ctx context.Context, r *scenarioRunner) error {
	req := r.newOrder(10)
	sale, err := r.step(ctx, "sale", ports.TransactionTypeSale, req, true)
	if err != nil {
		return err
	}
	reference(req, sale)

	refunds := []struct {
		amount      int64
		wantSuccess bool
	}{
		{2, true},
		{5, true},
		{5, false}, // exceeds the remaining refundable amount
	}
	for _, refund := range refunds {
		req.Amount = decimal.NewFromInt(refund.amount)
		name := fmt.Sprintf("refund %d", refund.amount)
		if _, err := r.step(ctx, name, ports.TransactionTypeRefund, req, refund.wantSuccess); err != nil {
			return err
		}
	}
	return nil
}

func preAuthPostAuthCancel(ctx context.Context, r *scenarioRunner) error {
	req := r.newOrder(100)
	preauth, err := r.step(ctx, "preauthorization", ports.TransactionTypePreAuthorization, req, true)
	if err != nil {
		return err
	}

	postauth, err := r.step(ctx, "postauthorization", ports.TransactionTypePostAuthorization, reference(req, preauth), true)
	if err != nil {
		return err
	}

	if _, err := r.step(ctx, "cancel postauthorization", ports.TransactionTypeCancel, reference(req, postauth), true); err != nil {
		return err
	}
	_, err = r.step(ctx, "cancel preauthorization", ports.TransactionTypeCancel, reference(req, preauth), true)
	return err
}

// newOrderID returns a 24 character alphanumeric order id
func newOrderID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:24]
}
