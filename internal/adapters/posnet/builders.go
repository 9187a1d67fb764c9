package posnet

import (
	"github.com/blackbunny/paranoia/internal/adapters/ports"
)

// Loyalty point fields are mandatory in Posnet requests but unused here
const noPoints = "000000"

// cancelTransaction is the reverse discriminator. Posnet accepts it for both
// sale and capture cancels.
const cancelTransaction = "sale"

type cardTransaction struct {
	CardNumber    string `xml:"ccno"`
	ExpireDate    string `xml:"expDate"`
	SecurityCode  string `xml:"cvc"`
	Amount        int64  `xml:"amount"`
	CurrencyCode  string `xml:"currencyCode"`
	OrderID       string `xml:"orderID"`
	Installment   string `xml:"installment"`
	ExtraPoint    string `xml:"extraPoint"`
	MultiplePoint string `xml:"multiplePoint"`
}

type captureTransaction struct {
	HostLogKey    string `xml:"hostLogKey"`
	AuthCode      string `xml:"authCode"`
	Amount        int64  `xml:"amount"`
	CurrencyCode  string `xml:"currencyCode"`
	Installment   string `xml:"installment"`
	ExtraPoint    string `xml:"extraPoint"`
	MultiplePoint string `xml:"multiplePoint"`
}

type refundTransaction struct {
	HostLogKey   string `xml:"hostLogKey"`
	Amount       int64  `xml:"amount"`
	CurrencyCode string `xml:"currencyCode"`
}

type reverseTransaction struct {
	Transaction string `xml:"transaction"`
	HostLogKey  string `xml:"hostLogKey"`
	AuthCode    string `xml:"authCode"`
}

// payload holds exactly one transaction node
type payload struct {
	Sale    *cardTransaction    `xml:"sale,omitempty"`
	Auth    *cardTransaction    `xml:"auth,omitempty"`
	Capt    *captureTransaction `xml:"capt,omitempty"`
	Return  *refundTransaction  `xml:"return,omitempty"`
	Reverse *reverseTransaction `xml:"reverse,omitempty"`
}

type builderFunc func(req *ports.Request, f formatter) payload

// builders is the dispatch table from transaction type to request builder
var builders = map[ports.TransactionType]builderFunc{
	ports.TransactionTypeSale:              buildSale,
	ports.TransactionTypePreAuthorization:  buildPreAuthorization,
	ports.TransactionTypePostAuthorization: buildPostAuthorization,
	ports.TransactionTypeRefund:            buildRefund,
	ports.TransactionTypeCancel:            buildCancel,
}

func newCardTransaction(req *ports.Request, f formatter) *cardTransaction {
	return &cardTransaction{
		CardNumber:    req.CardNumber,
		ExpireDate:    FormatExpireDate(req.ExpireMonth, req.ExpireYear),
		SecurityCode:  req.SecurityCode,
		Amount:        FormatAmount(req.Amount),
		CurrencyCode:  f.currency(req.Currency),
		OrderID:       req.OrderID,
		Installment:   FormatInstallment(req.Installment),
		ExtraPoint:    noPoints,
		MultiplePoint: noPoints,
	}
}

func buildSale(req *ports.Request, f formatter) payload {
	return payload{Sale: newCardTransaction(req, f)}
}

func buildPreAuthorization(req *ports.Request, f formatter) payload {
	return payload{Auth: newCardTransaction(req, f)}
}

func buildPostAuthorization(req *ports.Request, f formatter) payload {
	return payload{Capt: &captureTransaction{
		HostLogKey:    req.TransactionID,
		AuthCode:      req.AuthCode,
		Amount:        FormatAmount(req.Amount),
		CurrencyCode:  f.currency(req.Currency),
		Installment:   FormatInstallment(req.Installment),
		ExtraPoint:    noPoints,
		MultiplePoint: noPoints,
	}}
}

func buildRefund(req *ports.Request, f formatter) payload {
	return payload{Return: &refundTransaction{
		HostLogKey:   req.TransactionID,
		Amount:       FormatAmount(req.Amount),
		CurrencyCode: f.currency(req.Currency),
	}}
}

func buildCancel(req *ports.Request, _ formatter) payload {
	return payload{Reverse: &reverseTransaction{
		Transaction: cancelTransaction,
		HostLogKey:  req.TransactionID,
		AuthCode:    req.AuthCode,
	}}
}
