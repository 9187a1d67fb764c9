package posnet

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/blackbunny/paranoia/internal/adapters/ports"
	"golang.org/x/text/encoding/htmlindex"
)

const successMessage = "Success"

// response is the posnetResponse document. Optional fields are pointers so a
// missing element can be told apart from an empty one.
type response struct {
	Approved   string  `xml:"approved"`
	RespCode   *string `xml:"respCode"`
	RespText   *string `xml:"respText"`
	OrderID    *string `xml:"orderId"`
	HostLogKey string  `xml:"hostlogkey"`
	AuthCode   string  `xml:"authCode"`
}

// ParseResponse converts a raw Posnet response body into a PaymentResponse.
// It returns *UnexpectedResponseError when body is not exactly one XML document.
func ParseResponse(body []byte) (*ports.PaymentResponse, error) {
	doc, err := decodeDocument(body)
	if err != nil {
		return nil, &UnexpectedResponseError{Body: string(body), Err: err}
	}

	resp := &ports.PaymentResponse{
		IsSuccess: leadingInt(doc.Approved) > 0,
		RawData:   string(body),
	}
	if doc.RespCode != nil {
		resp.ResponseCode = *doc.RespCode
	}

	if !resp.IsSuccess {
		var messages []string
		if doc.RespCode != nil {
			messages = append(messages, "Error: "+*doc.RespCode)
		}
		if doc.RespText != nil {
			messages = append(messages, "Error Message: "+*doc.RespText+" ")
		}
		resp.ResponseMessage = strings.Join(messages, " ")
		return resp, nil
	}

	resp.ResponseMessage = successMessage
	// Posnet usually omits orderId on approvals
	if doc.OrderID != nil {
		resp.OrderID = *doc.OrderID
	}
	resp.TransactionID = doc.HostLogKey
	resp.AuthCode = doc.AuthCode
	return resp, nil
}

// decodeDocument decodes the single root element of body. Only comments,
// processing instructions and whitespace may surround it.
func decodeDocument(body []byte) (*response, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = charsetReader

	var doc response
	decoded := false
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			if !decoded {
				return nil, errors.New("no root element")
			}
			return &doc, nil
		}
		if err != nil {
			return nil, err
		}

		switch tok := token.(type) {
		case xml.StartElement:
			if decoded {
				return nil, fmt.Errorf("unexpected element <%s> after the root element", tok.Name.Local)
			}
			if err := decoder.DecodeElement(&doc, &tok); err != nil {
				return nil, err
			}
			decoded = true
		case xml.CharData:
			if len(bytes.TrimSpace(tok)) > 0 {
				return nil, fmt.Errorf("unexpected text %q outside the root element", string(tok))
			}
		case xml.Comment, xml.ProcInst:
		default:
			return nil, fmt.Errorf("unexpected %T outside the root element", token)
		}
	}
}

// leadingInt reads the integer prefix of s, returning 0 when there is none.
// Prefixes beyond the int range clamp to its bounds.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if errors.Is(err, strconv.ErrRange) {
		if s[0] == '-' {
			return math.MinInt
		}
		return math.MaxInt
	}
	if err != nil {
		return 0
	}
	return n
}

// charsetReader decodes the legacy Turkish encodings Posnet declares in its responses
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported response charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
