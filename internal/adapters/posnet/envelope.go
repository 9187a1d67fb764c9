package posnet

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"

	"github.com/blackbunny/paranoia/internal/adapters/ports"
)

const (
	rootElement = "posnetRequest"
	formField   = "xmldata"
)

// Credentials are the base authentication fields sent with every request
type Credentials struct {
	Username   string
	Password   string
	MerchantID string // Posnet "mid", configured as client_id
	TerminalID string // Posnet "tid"
}

// envelope is the posnetRequest document: one transaction node followed by credentials
type envelope struct {
	XMLName xml.Name `xml:"posnetRequest"`
	payload
	Username   string `xml:"username"`
	Password   string `xml:"password"`
	MerchantID string `xml:"mid"`
	TerminalID string `xml:"tid"`
}

// buildEnvelope serializes the payload with credentials, records the document
// on req and returns the form-encoded body for the transport
func buildEnvelope(req *ports.Request, p payload, creds Credentials) ([]byte, error) {
	doc, err := xml.Marshal(envelope{
		payload:    p,
		Username:   creds.Username,
		Password:   creds.Password,
		MerchantID: creds.MerchantID,
		TerminalID: creds.TerminalID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", rootElement, err)
	}

	document := xml.Header + string(doc)
	req.RawData = document

	form := url.Values{}
	form.Set(formField, document)
	return []byte(form.Encode()), nil
}

var (
	cardNumberPattern = regexp.MustCompile(`<ccno>([^<]*)</ccno>`)
	secretPattern     = regexp.MustCompile(`<(cvc|password)>[^<]*</(cvc|password)>`)
)

// MaskDocument hides card data and credentials in a posnetRequest document
// so it can be logged or audited
func MaskDocument(doc string) string {
	doc = cardNumberPattern.ReplaceAllStringFunc(doc, func(m string) string {
		pan := cardNumberPattern.FindStringSubmatch(m)[1]
		return "<ccno>" + maskCardNumber(pan) + "</ccno>"
	})
	return secretPattern.ReplaceAllString(doc, "<$1>***</$2>")
}

func maskCardNumber(pan string) string {
	if len(pan) <= 10 {
		return "****"
	}
	masked := []byte(pan)
	for i := 6; i < len(masked)-4; i++ {
		masked[i] = '*'
	}
	return string(masked)
}
