package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/blackbunny/paranoia/internal/adapters/ports"
	"github.com/blackbunny/paranoia/internal/config"
	"github.com/blackbunny/paranoia/pkg/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type options struct {
	configPath  string
	action      string
	scenario    string
	amount      string
	currency    string
	orderID     string
	installment int

	transactionID string
	authCode      string

	cardNumber   string
	securityCode string
	expireMonth  string
	expireYear   string

	metricsAddr string
}

func main() {
	opts := parseFlags(os.Args[1:])
	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "paranoia:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) *options {
	opts := &options{}
	fs := flag.NewFlagSet("paranoia", flag.ExitOnError)
	fs.StringVar(&opts.configPath, "config", "", "YAML config file (PARANOIA_ environment variables override it)")
	fs.StringVar(&opts.action, "action", "", "Transaction to send: "+strings.Join(actionNames(), ", "))
	fs.StringVar(&opts.scenario, "scenario", "", "Lifecycle scenario to run: "+strings.Join(scenarioNames(), ", "))
	fs.StringVar(&opts.amount, "amount", "1", "Amount in major units")
	fs.StringVar(&opts.currency, "currency", string(ports.CurrencyTRY), "Currency: TRY, USD or EUR")
	fs.StringVar(&opts.orderID, "order", "", "Order id (generated when empty)")
	fs.IntVar(&opts.installment, "installment", 1, "Installment count")
	fs.StringVar(&opts.transactionID, "transaction-id", "", "Host log key of the referenced transaction")
	fs.StringVar(&opts.authCode, "auth-code", "", "Auth code of the referenced transaction")
	fs.StringVar(&opts.cardNumber, "card", "", "Card number (defaults to testcard.card_number)")
	fs.StringVar(&opts.securityCode, "cvc", "", "Card security code (defaults to testcard.security_code)")
	fs.StringVar(&opts.expireMonth, "expire-month", "", "Card expiry month (defaults to testcard.expire_month)")
	fs.StringVar(&opts.expireYear, "expire-year", "", "Card expiry year (defaults to testcard.expire_year)")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address (overrides metrics.addr)")
	fs.Parse(args)
	return opts
}

func actionNames() []string {
	names := make([]string, 0, len(ports.TransactionTypes()))
	for _, t := range ports.TransactionTypes() {
		names = append(names, string(t))
	}
	return names
}

func run(opts *options, out io.Writer) error {
	if (opts.action == "") == (opts.scenario == "") {
		return errors.New("exactly one of -action or -scenario is required")
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}

	logger, err := initLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	if cfg.Metrics.Addr != "" {
		healthChecker := observability.NewHealthChecker(deps.dbPool, deps.transport.CircuitState)
		server := observability.StartMetricsServer(cfg.Metrics.Addr, healthChecker, logger)
		defer observability.ShutdownMetricsServer(server)
		logger.Info("Metrics server listening", zap.String("addr", cfg.Metrics.Addr))
	}

	card := mergeCard(cfg.TestCard, opts)

	if opts.scenario != "" {
		runner := newScenarioRunner(deps.adapter, card, ports.Currency(opts.currency), logger)
		results, err := runner.run(ctx, opts.scenario)
		for _, result := range results {
			if encodeErr := writeResponse(out, result.Name, result.Response); encodeErr != nil {
				return encodeErr
			}
		}
		return err
	}

	req, err := buildRequest(opts, card)
	if err != nil {
		return err
	}
	resp, err := deps.adapter.Process(ctx, ports.TransactionType(opts.action), req)
	if err != nil {
		return err
	}
	return writeResponse(out, opts.action, resp)
}

// mergeCard overlays card flags on the configured test card
func mergeCard(card config.TestCardConfig, opts *options) config.TestCardConfig {
	if opts.cardNumber != "" {
		card.CardNumber = opts.cardNumber
	}
	if opts.securityCode != "" {
		card.SecurityCode = opts.securityCode
	}
	if opts.expireMonth != "" {
		card.ExpireMonth = opts.expireMonth
	}
	if opts.expireYear != "" {
		card.ExpireYear = opts.expireYear
	}
	return card
}

func buildRequest(opts *options, card config.TestCardConfig) (*ports.Request, error) {
	amount, err := decimal.NewFromString(opts.amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", opts.amount, err)
	}

	orderID := opts.orderID
	if orderID == "" {
		orderID = newOrderID()
	}

	return &ports.Request{
		CardNumber:    card.CardNumber,
		SecurityCode:  card.SecurityCode,
		ExpireMonth:   card.ExpireMonth,
		ExpireYear:    card.ExpireYear,
		Amount:        amount,
		Currency:      ports.Currency(opts.currency),
		OrderID:       orderID,
		Installment:   opts.installment,
		TransactionID: opts.transactionID,
		AuthCode:      opts.authCode,
	}, nil
}

type responseOutput struct {
	Step            string `json:"step"`
	IsSuccess       bool   `json:"is_success"`
	ResponseCode    string `json:"response_code,omitempty"`
	ResponseMessage string `json:"response_message"`
	OrderID         string `json:"order_id,omitempty"`
	TransactionID   string `json:"transaction_id,omitempty"`
	AuthCode        string `json:"auth_code,omitempty"`
}

func writeResponse(out io.Writer, step string, resp *ports.PaymentResponse) error {
	return json.NewEncoder(out).Encode(responseOutput{
		Step:            step,
		IsSuccess:       resp.IsSuccess,
		ResponseCode:    resp.ResponseCode,
		ResponseMessage: resp.ResponseMessage,
		OrderID:         resp.OrderID,
		TransactionID:   resp.TransactionID,
		AuthCode:        resp.AuthCode,
	})
}
