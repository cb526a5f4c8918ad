package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askielabs/askie-api/internal/config"
	"github.com/askielabs/askie-api/internal/money"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMpesaInitiate(t *testing.T) {
	var stkRequest map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "key", user)
			assert.Equal(t, "secret", pass)
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1"})
		case "/mpesa/stkpush/v1/processrequest":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&stkRequest))
			json.NewEncoder(w).Encode(map[string]string{
				"ResponseCode":      "0",
				"CheckoutRequestID": "ws_CO_777",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	provider := NewMpesaProvider(&config.MpesaConfig{
		BaseURL:        srv.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Passkey:        "passkey",
		ShortCode:      "174379",
	}, srv.Client())

	result, err := provider.Initiate(context.Background(), &InitiateRequest{
		PaymentID: "p-1",
		Amount:    money.FromRand(50),
		Account:   "254700000000",
	})
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	assert.Equal(t, "ws_CO_777", result.ProviderRequestID)

	// amounts go out in whole units, the reference carries the payment id
	assert.Equal(t, float64(50), stkRequest["Amount"])
	assert.Equal(t, "ASKIE-p-1", stkRequest["AccountReference"])
}

func TestMpesaInitiateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1"})
		default:
			json.NewEncoder(w).Encode(map[string]string{
				"ResponseCode":        "1",
				"ResponseDescription": "Invalid shortcode",
			})
		}
	}))
	defer srv.Close()

	provider := NewMpesaProvider(&config.MpesaConfig{BaseURL: srv.URL}, srv.Client())

	result, err := provider.Initiate(context.Background(), &InitiateRequest{
		PaymentID: "p-1",
		Amount:    money.FromRand(50),
		Account:   "254700000000",
	})
	require.NoError(t, err)

	assert.False(t, result.Accepted)
	assert.Equal(t, "Invalid shortcode", result.Message)
}

func TestMtnMomoInitiate(t *testing.T) {
	var referenceID string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collection/v1_0/requesttopay", r.URL.Path)
		assert.Equal(t, "sandbox", r.Header.Get("X-Target-Environment"))
		assert.Equal(t, "subkey", r.Header.Get("Ocp-Apim-Subscription-Key"))

		referenceID = r.Header.Get("X-Reference-Id")
		assert.NotEmpty(t, referenceID)

		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	provider := NewMtnMomoProvider(&config.MtnMomoConfig{
		BaseURL:         srv.URL,
		SubscriptionKey: "subkey",
		TargetEnv:       "sandbox",
	}, srv.Client())

	result, err := provider.Initiate(context.Background(), &InitiateRequest{
		PaymentID: "p-2",
		Amount:    money.FromRand(20),
		Account:   "256770000000",
	})
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	// the reference we generated is what the callback will carry
	assert.Equal(t, referenceID, result.ProviderRequestID)
}

func TestOzowInitiateReturnsPaymentURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/postpaymentrequest", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "ZAR", payload["CurrencyCode"])
		assert.Equal(t, "20.00", payload["Amount"])
		assert.NotEmpty(t, payload["HashCheck"])

		json.NewEncoder(w).Encode(map[string]string{
			"paymentRequestId": "ozow-55",
			"url":              "https://pay.ozow.com/ozow-55",
		})
	}))
	defer srv.Close()

	provider := NewOzowProvider(&config.OzowConfig{
		BaseURL:    srv.URL,
		SiteCode:   "ASK-001",
		PrivateKey: "private",
	}, srv.Client())

	result, err := provider.Initiate(context.Background(), &InitiateRequest{
		PaymentID: "p-3",
		Amount:    money.FromRand(20),
		Account:   "Askie",
	})
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	assert.Equal(t, "ozow-55", result.ProviderRequestID)
	assert.Contains(t, result.Message, "https://pay.ozow.com/ozow-55")
}

func TestParseCallbackNormalization(t *testing.T) {
	tests := []struct {
		name       string
		provider   Provider
		body       string
		wantRef    string
		wantOK     bool
		wantReason string
	}{
		{
			name:     "mpesa success",
			provider: NewMpesaProvider(&config.MpesaConfig{}, nil),
			body:     `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":0,"ResultDesc":"ok"}}}`,
			wantRef:  "ws_CO_1",
			wantOK:   true,
		},
		{
			name:       "mpesa cancelled",
			provider:   NewMpesaProvider(&config.MpesaConfig{}, nil),
			body:       `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_2","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`,
			wantRef:    "ws_CO_2",
			wantOK:     false,
			wantReason: "Request cancelled by user",
		},
		{
			name:     "momo successful",
			provider: NewMtnMomoProvider(&config.MtnMomoConfig{}, nil),
			body:     `{"referenceId":"ref-1","status":"SUCCESSFUL"}`,
			wantRef:  "ref-1",
			wantOK:   true,
		},
		{
			name:       "momo payer limit",
			provider:   NewMtnMomoProvider(&config.MtnMomoConfig{}, nil),
			body:       `{"referenceId":"ref-2","status":"FAILED","reason":{"code":"PAYER_LIMIT_REACHED","message":"Payer limit reached"}}`,
			wantRef:    "ref-2",
			wantOK:     false,
			wantReason: "Payer limit reached",
		},
		{
			name:     "ozow complete",
			provider: NewOzowProvider(&config.OzowConfig{}, nil),
			body:     `{"PaymentRequestId":"ozow-1","Status":"Complete"}`,
			wantRef:  "ozow-1",
			wantOK:   true,
		},
		{
			name:       "ozow abandoned",
			provider:   NewOzowProvider(&config.OzowConfig{}, nil),
			body:       `{"PaymentRequestId":"ozow-2","Status":"Abandoned"}`,
			wantRef:    "ozow-2",
			wantOK:     false,
			wantReason: "Abandoned",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := tt.provider.ParseCallback([]byte(tt.body))
			require.NoError(t, err)

			assert.Equal(t, tt.wantRef, event.ProviderRequestID)
			assert.Equal(t, tt.wantOK, event.Success)
			assert.Equal(t, tt.wantReason, event.FailureReason)
		})
	}
}

func TestParseCallbackMissingReference(t *testing.T) {
	provider := NewMpesaProvider(&config.MpesaConfig{}, nil)

	_, err := provider.ParseCallback([]byte(`{"Body":{"stkCallback":{"ResultCode":0}}}`))
	assert.Error(t, err)
}

func TestGatewayInitiateTransportFailure(t *testing.T) {
	cfg := &config.Config{}
	cfg.Payments.Mpesa.BaseURL = "http://127.0.0.1:1"
	cfg.Payments.MtnMomo.BaseURL = "http://127.0.0.1:1"
	cfg.Payments.Ozow.BaseURL = "http://127.0.0.1:1"

	g := New(cfg, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// an unreachable provider is a rejection, never an error; the
	// payment gets failed instead of blowing up the request
	result, err := g.Initiate(ctx, ProviderMtnMomo, &InitiateRequest{
		PaymentID: "p-1",
		Amount:    money.FromRand(20),
		Account:   "256770000000",
	})
	require.NoError(t, err)
	assert.False(t, result.Accepted)
}

func TestGatewayUnsupportedProvider(t *testing.T) {
	g := New(&config.Config{}, testLogger())

	_, err := g.Initiate(context.Background(), "paypal", &InitiateRequest{})
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	_, err = g.ParseCallback("paypal", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}
