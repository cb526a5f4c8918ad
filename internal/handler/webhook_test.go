package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/askielabs/askie-api/internal/gateway"
	"github.com/askielabs/askie-api/internal/mocks"
	"github.com/askielabs/askie-api/internal/models"
	"github.com/askielabs/askie-api/internal/money"
	"github.com/askielabs/askie-api/internal/worker"
)

// MockPaymentRepo implements PaymentRepository but only mocks the needed methods.
type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) Insert(payment *models.PendingPayment) (*models.PendingPayment, error) {
	return nil, nil
}

func (m *MockPaymentRepo) GetOne(id string) (*models.PendingPayment, bool, error) {
	return nil, false, nil
}

func (m *MockPaymentRepo) FindByProviderRequestID(providerRequestID string) (*models.PendingPayment, bool, error) {
	args := m.Called(providerRequestID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.PendingPayment), args.Bool(1), args.Error(2)
}

func (m *MockPaymentRepo) MarkPending(id, providerRequestID string) error {
	return nil
}

func (m *MockPaymentRepo) MarkSettled(id, status, failureReason string) (*models.PendingPayment, error) {
	return nil, nil
}

func (m *MockPaymentRepo) FindStale(cutoff time.Time) ([]models.PendingPayment, error) {
	return nil, nil
}

func newWebhookTestHandler(payments *MockPaymentRepo, producer *mocks.MockProducer) *WebhookHandler {
	errHandler, _ := newTestErrHandler()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewWebhookHandler(&WebhookHandler{
		Gateway:     gateway.New(mocks.NewMockConfig(), logger),
		PaymentRepo: payments,
		Kafka:       producer,
		ErrHandler:  errHandler,
	})
}

func TestHandleProviderWebhook_MpesaSuccess(t *testing.T) {
	mockPayments := new(MockPaymentRepo)
	mockProducer := new(mocks.MockProducer)

	payment := &models.PendingPayment{
		ID:       "p-1",
		UserID:   "user-1",
		Amount:   money.FromRand(50),
		Provider: gateway.ProviderMpesa,
		Status:   models.PaymentStatusPending,
	}
	mockPayments.On("FindByProviderRequestID", "ws_CO_12345").Return(payment, true, nil)
	mockProducer.On("ProduceMessage", worker.PaymentConfirmedTopic, mock.Anything).Return(nil)

	// shape of a Daraja STK push result callback
	callback := map[string]any{
		"Body": map[string]any{
			"stkCallback": map[string]any{
				"CheckoutRequestID": "ws_CO_12345",
				"ResultCode":        0,
				"ResultDesc":        "The service request is processed successfully.",
			},
		},
	}
	body, err := json.Marshal(callback)
	require.NoError(t, err)

	h := newWebhookTestHandler(mockPayments, mockProducer)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/mpesa", bytes.NewReader(body))
	req.SetPathValue("provider", "mpesa")
	rec := httptest.NewRecorder()

	h.HandleProviderWebhook(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	mockProducer.AssertCalled(t, "ProduceMessage", worker.PaymentConfirmedTopic, mock.MatchedBy(func(message string) bool {
		var confirmed models.PaymentConfirmedEvent
		if err := json.Unmarshal([]byte(message), &confirmed); err != nil {
			return false
		}
		return confirmed.PaymentID == "p-1" && confirmed.Success
	}))
}

func TestHandleProviderWebhook_MpesaFailureCarriesReason(t *testing.T) {
	mockPayments := new(MockPaymentRepo)
	mockProducer := new(mocks.MockProducer)

	payment := &models.PendingPayment{
		ID:       "p-2",
		Provider: gateway.ProviderMpesa,
		Status:   models.PaymentStatusPending,
	}
	mockPayments.On("FindByProviderRequestID", "ws_CO_67890").Return(payment, true, nil)
	mockProducer.On("ProduceMessage", worker.PaymentConfirmedTopic, mock.Anything).Return(nil)

	callback := map[string]any{
		"Body": map[string]any{
			"stkCallback": map[string]any{
				"CheckoutRequestID": "ws_CO_67890",
				"ResultCode":        1032,
				"ResultDesc":        "Request cancelled by user",
			},
		},
	}
	body, err := json.Marshal(callback)
	require.NoError(t, err)

	h := newWebhookTestHandler(mockPayments, mockProducer)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/mpesa", bytes.NewReader(body))
	req.SetPathValue("provider", "mpesa")
	rec := httptest.NewRecorder()

	h.HandleProviderWebhook(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	mockProducer.AssertCalled(t, "ProduceMessage", worker.PaymentConfirmedTopic, mock.MatchedBy(func(message string) bool {
		var confirmed models.PaymentConfirmedEvent
		if err := json.Unmarshal([]byte(message), &confirmed); err != nil {
			return false
		}
		return confirmed.PaymentID == "p-2" && !confirmed.Success && confirmed.FailureReason == "Request cancelled by user"
	}))
}

func TestHandleProviderWebhook_UnknownProvider(t *testing.T) {
	mockPayments := new(MockPaymentRepo)
	mockProducer := new(mocks.MockProducer)

	h := newWebhookTestHandler(mockPayments, mockProducer)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/paypal", bytes.NewReader([]byte(`{}`)))
	req.SetPathValue("provider", "paypal")
	rec := httptest.NewRecorder()

	h.HandleProviderWebhook(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	mockProducer.AssertNotCalled(t, "ProduceMessage", mock.Anything, mock.Anything)
}

func TestHandleProviderWebhook_UnknownReferenceIsAcknowledged(t *testing.T) {
	mockPayments := new(MockPaymentRepo)
	mockProducer := new(mocks.MockProducer)

	mockPayments.On("FindByProviderRequestID", "ws_CO_99999").Return(nil, false, nil)

	callback := map[string]any{
		"Body": map[string]any{
			"stkCallback": map[string]any{
				"CheckoutRequestID": "ws_CO_99999",
				"ResultCode":        0,
			},
		},
	}
	body, err := json.Marshal(callback)
	require.NoError(t, err)

	h := newWebhookTestHandler(mockPayments, mockProducer)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/mpesa", bytes.NewReader(body))
	req.SetPathValue("provider", "mpesa")
	rec := httptest.NewRecorder()

	h.HandleProviderWebhook(rec, req)

	// acknowledged so the provider stops retrying; nothing is produced
	require.Equal(t, http.StatusOK, rec.Code)
	mockProducer.AssertNotCalled(t, "ProduceMessage", mock.Anything, mock.Anything)
}
