package posnet

import (
	"fmt"
	"strings"

	"github.com/blackbunny/paranoia/internal/adapters/ports"
	"github.com/shopspring/decimal"
)

// Posnet currency codes
const (
	CurrencyCodeTRY = "TR"
	CurrencyCodeUSD = "US"
	CurrencyCodeEUR = "EU"
)

var currencyCodes = map[ports.Currency]string{
	ports.CurrencyTRY: CurrencyCodeTRY,
	ports.CurrencyUSD: CurrencyCodeUSD,
	ports.CurrencyEUR: CurrencyCodeEUR,
}

var hundred = decimal.NewFromInt(100)

// FormatExpireDate returns the YYMM expiry expected by Posnet.
// The year contributes its last two characters; both parts are zero padded to
// width 2. Out of range values are formatted, not rejected.
func FormatExpireDate(month, year string) string {
	if len(year) > 2 {
		year = year[len(year)-2:]
	}
	return padLeft(year, 2) + padLeft(month, 2)
}

// FormatInstallment zero pads the installment count to width 2
func FormatInstallment(installment int) string {
	return fmt.Sprintf("%02d", installment)
}

// FormatAmount converts a major unit amount to minor units.
// Fractions are truncated before scaling: 12.75 becomes 1200, not 1275.
func FormatAmount(amount decimal.Decimal) int64 {
	return amount.Truncate(0).Mul(hundred).IntPart()
}

// FormatCurrency maps a currency to its Posnet code, using fallback for unknown currencies
func FormatCurrency(currency ports.Currency, fallback string) string {
	if code, ok := CurrencyCode(currency); ok {
		return code
	}
	return fallback
}

// CurrencyCode returns the Posnet code of a currency and whether it is supported
func CurrencyCode(currency ports.Currency) (string, bool) {
	code, ok := currencyCodes[currency]
	return code, ok
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// formatter carries the configuration the field formatters need
type formatter struct {
	defaultCurrency string
}

func (f formatter) currency(c ports.Currency) string {
	return FormatCurrency(c, f.defaultCurrency)
}
