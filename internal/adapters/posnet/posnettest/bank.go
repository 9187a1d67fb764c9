// Package posnettest provides an in-memory Posnet bank for tests.
package posnettest

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
)

// Decline codes returned by the fake bank
const (
	RespCodeInvalidRequest     = "0001"
	RespCodeUnknownTransaction = "0114"
	RespCodeAlreadyCancelled   = "0123"
	RespCodeInvalidMerchant    = "0127"
	RespCodeAmountExceeded     = "0148"
)

type cardNode struct {
	CardNumber   string `xml:"ccno"`
	ExpireDate   string `xml:"expDate"`
	Amount       int64  `xml:"amount"`
	CurrencyCode string `xml:"currencyCode"`
	OrderID      string `xml:"orderID"`
}

type referenceNode struct {
	Transaction string `xml:"transaction"`
	HostLogKey  string `xml:"hostLogKey"`
	AuthCode    string `xml:"authCode"`
	Amount      int64  `xml:"amount"`
}

type request struct {
	XMLName    xml.Name       `xml:"posnetRequest"`
	Sale       *cardNode      `xml:"sale"`
	Auth       *cardNode      `xml:"auth"`
	Capt       *referenceNode `xml:"capt"`
	Return     *referenceNode `xml:"return"`
	Reverse    *referenceNode `xml:"reverse"`
	MerchantID string         `xml:"mid"`
	TerminalID string         `xml:"tid"`
}

type response struct {
	XMLName    xml.Name `xml:"posnetResponse"`
	Approved   int      `xml:"approved"`
	RespCode   string   `xml:"respCode,omitempty"`
	RespText   string   `xml:"respText,omitempty"`
	HostLogKey string   `xml:"hostlogkey,omitempty"`
	AuthCode   string   `xml:"authCode,omitempty"`
}

// Transaction is a transaction the fake bank has approved
type Transaction struct {
	Kind       string // sale, auth or capt
	HostLogKey string
	AuthCode   string
	OrderID    string
	Amount     int64 // Minor units
	Refunded   int64
	Captured   bool // auth holds only
	Cancelled  bool
	Reference  string // Hold a capture was taken from
}

// Bank is a fake Posnet endpoint. It approves card transactions, tracks
// refundable balances and declines refunds that exceed them.
type Bank struct {
	MerchantID string // When set, requests with another mid are declined
	TerminalID string // When set, requests with another tid are declined

	mu           sync.Mutex
	seq          int
	transactions map[string]*Transaction
	documents    []string
}

// NewBank creates an empty fake bank
func NewBank() *Bank {
	return &Bank{transactions: make(map[string]*Transaction)}
}

// ServeHTTP implements http.Handler for use with httptest.NewServer
func (b *Bank) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.Write(b.Handle(body))
}

// Send lets the bank act as an in-process ports.Transport
func (b *Bank) Send(_ context.Context, body []byte) ([]byte, error) {
	return b.Handle(body), nil
}

// Handle processes one form-encoded request body and returns the response document
func (b *Bank) Handle(body []byte) []byte {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return render(decline(RespCodeInvalidRequest, "INVALID FORM"))
	}
	document := form.Get("xmldata")

	var req request
	if err := xml.Unmarshal([]byte(document), &req); err != nil {
		return render(decline(RespCodeInvalidRequest, "INVALID XML"))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.documents = append(b.documents, document)

	if (b.MerchantID != "" && req.MerchantID != b.MerchantID) || (b.TerminalID != "" && req.TerminalID != b.TerminalID) {
		return render(decline(RespCodeInvalidMerchant, "INVALID MERCHANT"))
	}

	switch {
	case req.Sale != nil:
		return render(b.approve(&Transaction{Kind: "sale", Amount: req.Sale.Amount, OrderID: req.Sale.OrderID}))
	case req.Auth != nil:
		return render(b.approve(&Transaction{Kind: "auth", Amount: req.Auth.Amount, OrderID: req.Auth.OrderID}))
	case req.Capt != nil:
		return render(b.capture(req.Capt))
	case req.Return != nil:
		return render(b.refund(req.Return))
	case req.Reverse != nil:
		return render(b.reverse(req.Reverse))
	default:
		return render(decline(RespCodeInvalidRequest, "UNKNOWN TRANSACTION TYPE"))
	}
}

func (b *Bank) approve(tx *Transaction) response {
	b.seq++
	tx.HostLogKey = fmt.Sprintf("%018d", b.seq)
	tx.AuthCode = fmt.Sprintf("%06d", 100000+b.seq)
	b.transactions[tx.HostLogKey] = tx
	return response{Approved: 1, HostLogKey: tx.HostLogKey, AuthCode: tx.AuthCode}
}

func (b *Bank) capture(node *referenceNode) response {
	hold, ok := b.transactions[node.HostLogKey]
	if !ok || hold.Kind != "auth" {
		return decline(RespCodeUnknownTransaction, "TRANSACTION NOT FOUND")
	}
	if hold.Cancelled || hold.Captured {
		return decline(RespCodeAlreadyCancelled, "HOLD NOT OPEN")
	}
	if node.Amount > hold.Amount {
		return decline(RespCodeAmountExceeded, "AMOUNT EXCEEDS AUTHORIZATION")
	}
	hold.Captured = true
	return b.approve(&Transaction{Kind: "capt", Amount: node.Amount, OrderID: hold.OrderID, Reference: hold.HostLogKey})
}

func (b *Bank) refund(node *referenceNode) response {
	tx, ok := b.transactions[node.HostLogKey]
	if !ok || tx.Kind == "auth" {
		return decline(RespCodeUnknownTransaction, "TRANSACTION NOT FOUND")
	}
	if tx.Cancelled {
		return decline(RespCodeAlreadyCancelled, "TRANSACTION CANCELLED")
	}
	if tx.Refunded+node.Amount > tx.Amount {
		return decline(RespCodeAmountExceeded, "REFUND AMOUNT EXCEEDS SALE")
	}
	tx.Refunded += node.Amount
	return response{Approved: 1, HostLogKey: tx.HostLogKey, AuthCode: tx.AuthCode}
}

func (b *Bank) reverse(node *referenceNode) response {
	tx, ok := b.transactions[node.HostLogKey]
	if !ok {
		return decline(RespCodeUnknownTransaction, "TRANSACTION NOT FOUND")
	}
	if tx.Cancelled || (tx.Kind == "auth" && tx.Captured) {
		return decline(RespCodeAlreadyCancelled, "TRANSACTION CANNOT BE CANCELLED")
	}
	tx.Cancelled = true
	if tx.Kind == "capt" {
		// Cancelling a capture reopens its hold
		if hold, ok := b.transactions[tx.Reference]; ok {
			hold.Captured = false
		}
	}
	return response{Approved: 1, HostLogKey: tx.HostLogKey, AuthCode: tx.AuthCode}
}

func decline(code, text string) response {
	return response{Approved: 0, RespCode: code, RespText: text}
}

func render(resp response) []byte {
	out, err := xml.Marshal(resp)
	if err != nil {
		panic(err)
	}
	return append([]byte(xml.Header), out...)
}

// Transaction returns a copy of the transaction with the given host log key
func (b *Bank) Transaction(hostLogKey string) (Transaction, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, ok := b.transactions[hostLogKey]
	if !ok {
		return Transaction{}, false
	}
	return *tx, true
}

// Documents returns every posnetRequest document received, oldest first
func (b *Bank) Documents() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string(nil), b.documents...)
}
