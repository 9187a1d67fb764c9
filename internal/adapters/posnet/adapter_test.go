package posnet

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/blackbunny/paranoia/internal/adapters/ports"
	"github.com/blackbunny/paranoia/internal/adapters/posnet/posnettest"
	"github.com/blackbunny/paranoia/internal/adapters/transport"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockAuditRecorder is a mock implementation of ports.AuditRecorder
type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(ctx context.Context, entry *ports.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func newTestAdapter(t *testing.T, transport ports.Transport, audit ports.AuditRecorder) ports.PaymentAdapter {
	t.Helper()
	return NewAdapter(DefaultConfig(testCredentials), transport, audit, zap.NewNop())
}

func TestAdapter_SaleRoundTrip(t *testing.T) {
	var sent []byte
	transport := ports.TransportFunc(func(_ context.Context, body []byte) ([]byte, error) {
		sent = body
		return []byte(`<posnetResponse><approved>1</approved><hostlogkey>0000000001</hostlogkey><authCode>007007</authCode></posnetResponse>`), nil
	})

	req := newCardRequest()
	resp, err := newTestAdapter(t, transport, nil).Sale(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, resp.IsSuccess)
	assert.Equal(t, "0000000001", resp.TransactionID)
	assert.Equal(t, "007007", resp.AuthCode)

	form, err := url.ParseQuery(string(sent))
	require.NoError(t, err)
	assert.Equal(t, req.RawData, form.Get("xmldata"))
	assert.Contains(t, req.RawData, "<sale>")
}

func TestAdapter_DispatchesEveryTransactionType(t *testing.T) {
	nodes := map[ports.TransactionType]string{
		ports.TransactionTypeSale:              "<sale>",
		ports.TransactionTypePreAuthorization:  "<auth>",
		ports.TransactionTypePostAuthorization: "<capt>",
		ports.TransactionTypeRefund:            "<return>",
		ports.TransactionTypeCancel:            "<reverse>",
	}

	transport := ports.TransportFunc(func(context.Context, []byte) ([]byte, error) {
		return []byte(`<posnetResponse><approved>1</approved></posnetResponse>`), nil
	})
	adapter := newTestAdapter(t, transport, nil)

	for txType, node := range nodes {
		t.Run(string(txType), func(t *testing.T) {
			req := newCardRequest()
			_, err := adapter.Process(context.Background(), txType, req)
			require.NoError(t, err)
			assert.Contains(t, req.RawData, node)
		})
	}
}

func TestAdapter_UnsupportedTransactionType(t *testing.T) {
	called := false
	transport := ports.TransportFunc(func(context.Context, []byte) ([]byte, error) {
		called = true
		return nil, nil
	})

	_, err := newTestAdapter(t, transport, nil).Process(context.Background(), "void", newCardRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transaction type")
	assert.False(t, called)
}

func TestAdapter_SaleThenCancel(t *testing.T) {
	bank := posnettest.NewBank()
	adapter := newTestAdapter(t, bank, nil)
	ctx := context.Background()

	sale, err := adapter.Sale(ctx, newCardRequest())
	require.NoError(t, err)
	require.True(t, sale.IsSuccess)
	require.NotEmpty(t, sale.TransactionID)

	cancel, err := adapter.Cancel(ctx, &ports.Request{TransactionID: sale.TransactionID, AuthCode: sale.AuthCode})
	require.NoError(t, err)
	assert.True(t, cancel.IsSuccess)

	tx, ok := bank.Transaction(sale.TransactionID)
	require.True(t, ok)
	assert.True(t, tx.Cancelled)
}

func TestAdapter_SaleThenRefund(t *testing.T) {
	bank := posnettest.NewBank()
	adapter := newTestAdapter(t, bank, nil)
	ctx := context.Background()

	sale, err := adapter.Sale(ctx, newCardRequest())
	require.NoError(t, err)
	require.True(t, sale.IsSuccess)

	refund, err := adapter.Refund(ctx, &ports.Request{
		TransactionID: sale.TransactionID,
		Amount:        decimal.NewFromInt(10),
		Currency:      ports.CurrencyTRY,
	})
	require.NoError(t, err)
	assert.True(t, refund.IsSuccess)
}

func TestAdapter_PartialRefunds(t *testing.T) {
	bank := posnettest.NewBank()
	adapter := newTestAdapter(t, bank, nil)
	ctx := context.Background()

	sale, err := adapter.Sale(ctx, newCardRequest())
	require.NoError(t, err)
	require.True(t, sale.IsSuccess)

	refund := func(amount int64) *ports.PaymentResponse {
		resp, err := adapter.Refund(ctx, &ports.Request{
			TransactionID: sale.TransactionID,
			Amount:        decimal.NewFromInt(amount),
			Currency:      ports.CurrencyTRY,
		})
		require.NoError(t, err)
		return resp
	}

	assert.True(t, refund(2).IsSuccess)
	assert.True(t, refund(5).IsSuccess)

	// 2 + 5 + 5 exceeds the sale amount of 10
	declined := refund(5)
	assert.False(t, declined.IsSuccess)
	assert.Equal(t, posnettest.RespCodeAmountExceeded, declined.ResponseCode)
	assert.Contains(t, declined.ResponseMessage, "Error: "+posnettest.RespCodeAmountExceeded)

	tx, _ := bank.Transaction(sale.TransactionID)
	assert.Equal(t, int64(700), tx.Refunded)
}

func TestAdapter_PreAuthPostAuthCancel(t *testing.T) {
	bank := posnettest.NewBank()
	adapter := newTestAdapter(t, bank, nil)
	ctx := context.Background()

	preauth, err := adapter.PreAuthorization(ctx, newCardRequest())
	require.NoError(t, err)
	require.True(t, preauth.IsSuccess)

	postauth, err := adapter.PostAuthorization(ctx, &ports.Request{
		TransactionID: preauth.TransactionID,
		AuthCode:      preauth.AuthCode,
		Amount:        decimal.NewFromInt(10),
		Currency:      ports.CurrencyTRY,
		Installment:   1,
	})
	require.NoError(t, err)
	require.True(t, postauth.IsSuccess)

	cancelCapture, err := adapter.Cancel(ctx, &ports.Request{TransactionID: postauth.TransactionID, AuthCode: postauth.AuthCode})
	require.NoError(t, err)
	assert.True(t, cancelCapture.IsSuccess)

	cancelHold, err := adapter.Cancel(ctx, &ports.Request{TransactionID: preauth.TransactionID, AuthCode: preauth.AuthCode})
	require.NoError(t, err)
	assert.True(t, cancelHold.IsSuccess)

	docs := bank.Documents()
	require.Len(t, docs, 4)
	assert.Contains(t, docs[0], "<auth>")
	assert.Contains(t, docs[1], "<capt>")
	assert.Contains(t, docs[2], "<reverse><transaction>sale</transaction>")
	assert.Contains(t, docs[3], "<reverse><transaction>sale</transaction>")
}

func TestAdapter_CancelUnknownTransactionIsDeclined(t *testing.T) {
	adapter := newTestAdapter(t, posnettest.NewBank(), nil)

	resp, err := adapter.Cancel(context.Background(), &ports.Request{TransactionID: "999", AuthCode: "1"})
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess)
	assert.Equal(t, posnettest.RespCodeUnknownTransaction, resp.ResponseCode)
}

func TestAdapter_InvalidMerchantIsDeclined(t *testing.T) {
	bank := posnettest.NewBank()
	bank.MerchantID = "1111111111"

	resp, err := newTestAdapter(t, bank, nil).Sale(context.Background(), newCardRequest())
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess)
	assert.Equal(t, posnettest.RespCodeInvalidMerchant, resp.ResponseCode)
}

func TestAdapter_TransportError(t *testing.T) {
	sendErr := errors.New("connection refused")
	transport := ports.TransportFunc(func(context.Context, []byte) ([]byte, error) {
		return nil, sendErr
	})

	resp, err := newTestAdapter(t, transport, nil).Sale(context.Background(), newCardRequest())
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, sendErr))
	assert.Contains(t, err.Error(), "posnet sale request failed")
}

func TestAdapter_TransportStatusErrorReachesCaller(t *testing.T) {
	statusErr := &transport.StatusError{StatusCode: 503, Body: "maintenance"}
	send := ports.TransportFunc(func(context.Context, []byte) ([]byte, error) {
		return nil, statusErr
	})

	_, err := newTestAdapter(t, send, nil).Refund(context.Background(), newCardRequest())

	var got *transport.StatusError
	require.ErrorAs(t, err, &got)
	assert.Same(t, statusErr, got)
	assert.Equal(t, "posnet refund request failed: "+statusErr.Error(), err.Error())
}

func TestAdapter_UnexpectedResponse(t *testing.T) {
	transport := ports.TransportFunc(func(context.Context, []byte) ([]byte, error) {
		return []byte("<html>maintenance</html"), nil
	})

	resp, err := newTestAdapter(t, transport, nil).Sale(context.Background(), newCardRequest())
	require.Error(t, err)
	assert.Nil(t, resp)

	var unexpected *UnexpectedResponseError
	require.True(t, errors.As(err, &unexpected))
	assert.Equal(t, "<html>maintenance</html", unexpected.Body)
}

func TestAdapter_Validation(t *testing.T) {
	neverSend := ports.TransportFunc(func(context.Context, []byte) ([]byte, error) {
		t.Fatal("transport must not be called")
		return nil, nil
	})

	t.Run("nil request", func(t *testing.T) {
		_, err := newTestAdapter(t, neverSend, nil).Sale(context.Background(), nil)
		require.Error(t, err)
	})

	t.Run("negative amount", func(t *testing.T) {
		req := newCardRequest()
		req.Amount = decimal.NewFromInt(-1)

		_, err := newTestAdapter(t, neverSend, nil).Sale(context.Background(), req)

		var validationErr *ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "amount", validationErr.Field)
	})

	t.Run("strict currency", func(t *testing.T) {
		config := DefaultConfig(testCredentials)
		config.StrictCurrency = true
		req := newCardRequest()
		req.Currency = "GBP"

		_, err := NewAdapter(config, neverSend, nil, zap.NewNop()).Sale(context.Background(), req)

		var validationErr *ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "currency", validationErr.Field)
	})
}

func TestAdapter_LenientCurrencyFallsBack(t *testing.T) {
	bank := posnettest.NewBank()
	req := newCardRequest()
	req.Currency = "GBP"

	resp, err := newTestAdapter(t, bank, nil).Sale(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess)
	assert.Contains(t, req.RawData, "<currencyCode>TR</currencyCode>")
}

func TestAdapter_RecordsAudit(t *testing.T) {
	audit := new(MockAuditRecorder)
	audit.On("Record", mock.Anything, mock.MatchedBy(func(entry *ports.AuditEntry) bool {
		return entry.Bank == BankName &&
			entry.TransactionType == ports.TransactionTypeSale &&
			entry.IsSuccess &&
			entry.OrderID == "ORDER000000000000001" &&
			entry.Error == "" &&
			!strings.Contains(entry.RequestData, "4506349116608409") &&
			!strings.Contains(entry.RequestData, testCredentials.Password)
	})).Return(nil).Once()

	_, err := newTestAdapter(t, posnettest.NewBank(), audit).Sale(context.Background(), newCardRequest())
	require.NoError(t, err)

	audit.AssertExpectations(t)
}

func TestAdapter_AuditFailureDoesNotFailPayment(t *testing.T) {
	audit := new(MockAuditRecorder)
	audit.On("Record", mock.Anything, mock.Anything).Return(errors.New("database unavailable"))

	resp, err := newTestAdapter(t, posnettest.NewBank(), audit).Sale(context.Background(), newCardRequest())
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess)

	audit.AssertNumberOfCalls(t, "Record", 1)
}

func TestAdapter_AuditRecordsTransportFailure(t *testing.T) {
	audit := new(MockAuditRecorder)
	audit.On("Record", mock.Anything, mock.MatchedBy(func(entry *ports.AuditEntry) bool {
		return !entry.IsSuccess && entry.Error == "timeout"
	})).Return(nil).Once()

	transport := ports.TransportFunc(func(context.Context, []byte) ([]byte, error) {
		return nil, errors.New("timeout")
	})

	_, err := newTestAdapter(t, transport, audit).Sale(context.Background(), newCardRequest())
	require.Error(t, err)
	audit.AssertExpectations(t)
}
