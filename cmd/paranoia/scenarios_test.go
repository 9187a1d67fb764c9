package main

import (
	"context"
	"testing"

	"github.com/blackbunny/paranoia/internal/adapters/ports"
	"github.com/blackbunny/paranoia/internal/adapters/posnet"
	"github.com/blackbunny/paranoia/internal/adapters/posnet/posnettest"
	"github.com/blackbunny/paranoia/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testCard = config.TestCardConfig{
	CardNumber:   "4506349116608409",
	SecurityCode: "000",
	ExpireMonth:  "03",
	ExpireYear:   "2027",
}

func newTestRunner(bank *posnettest.Bank) *scenarioRunner {
	adapter := posnet.NewAdapter(posnet.DefaultConfig(posnet.Credentials{
		Username:   "user",
		Password:   "s3cret",
		MerchantID: "6706598320",
		TerminalID: "67005551",
	}), bank, nil, zap.NewNop())
	return newScenarioRunner(adapter, testCard, ports.CurrencyTRY, zap.NewNop())
}

func stepNames(results []stepResult) []string {
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	return names
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		scenario  string
		wantSteps []string
	}{
		{scenario: "sale-cancel", wantSteps: []string{"sale", "cancel sale"}},
		{scenario: "sale-refund", wantSteps: []string{"sale", "full refund"}},
		{scenario: "partial-refunds", wantSteps: []string{"sale", "refund 2", "refund 5", "refund 5"}},
		{
			scenario:  "preauth-postauth-cancel",
			wantSteps: []string{"preauthorization", "postauthorization", "cancel postauthorization", "cancel preauthorization"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			results, err := newTestRunner(posnettest.NewBank()).run(context.Background(), tt.scenario)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSteps, stepNames(results))
		})
	}
}

func TestScenario_PartialRefundsDeclinesOverRefund(t *testing.T) {
	results, err := newTestRunner(posnettest.NewBank()).run(context.Background(), "partial-refunds")
	require.NoError(t, err)
	require.Len(t, results, 4)

	last := results[3].Response
	assert.False(t, last.IsSuccess)
	assert.Equal(t, posnettest.RespCodeAmountExceeded, last.ResponseCode)
}

func TestScenario_FailsOnUnexpectedDecline(t *testing.T) {
	bank := posnettest.NewBank()
	bank.MerchantID = "0000000000"

	results, err := newTestRunner(bank).run(context.Background(), "sale-cancel")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sale: expected success=true, got success=false")
	assert.Len(t, results, 1)
}

func TestScenario_Unknown(t *testing.T) {
	_, err := newTestRunner(posnettest.NewBank()).run(context.Background(), "void")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "partial-refunds")
}

func TestScenario_NewOrderUsesTestCard(t *testing.T) {
	runner := newTestRunner(posnettest.NewBank())

	req := runner.newOrder(10)

	assert.Equal(t, testCard.CardNumber, req.CardNumber)
	assert.Equal(t, "10", req.Amount.String())
	assert.Equal(t, ports.CurrencyTRY, req.Currency)
	assert.Len(t, req.OrderID, 24)
	assert.NotEqual(t, req.OrderID, runner.newOrder(10).OrderID)
}
