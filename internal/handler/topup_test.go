package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askielabs/askie-api/internal/context"
	"github.com/askielabs/askie-api/internal/settlement"
)

func newTopUpTestHandler() *TopUpHandler {
	errHandler, _ := newTestErrHandler()

	engine := settlement.New(&settlement.Engine{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return NewTopUpHandler(&TopUpHandler{
		Engine:     engine,
		ErrHandler: errHandler,
	})
}

func initiateTopUpRequest(t *testing.T, h *TopUpHandler, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/top-ups", bytes.NewReader(payload))
	req = context.ContextSetAuthenticatedUser(req, &context.AuthenticatedUser{ID: "user-1"})
	rec := httptest.NewRecorder()

	h.HandleInitiateTopUp(rec, req)
	return rec
}

func TestHandleInitiateTopUp_BelowMinimum(t *testing.T) {
	h := newTopUpTestHandler()

	rec := initiateTopUpRequest(t, h, map[string]string{
		"amount":   "9.99",
		"method":   "mobile_money",
		"provider": "mpesa",
		"account":  "254700000000",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "Minimum top-up amount is R10.00")
}

func TestHandleInitiateTopUp_InvalidAmount(t *testing.T) {
	h := newTopUpTestHandler()

	rec := initiateTopUpRequest(t, h, map[string]string{
		"amount":   "fifty",
		"method":   "mobile_money",
		"provider": "mpesa",
		"account":  "254700000000",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleInitiateTopUp_InvalidMethod(t *testing.T) {
	h := newTopUpTestHandler()

	rec := initiateTopUpRequest(t, h, map[string]string{
		"amount":   "50.00",
		"method":   "cheque",
		"provider": "mpesa",
		"account":  "254700000000",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleInitiateTopUp_UnsupportedProvider(t *testing.T) {
	h := newTopUpTestHandler()

	// nil gateway supports nothing
	rec := initiateTopUpRequest(t, h, map[string]string{
		"amount":   "50.00",
		"method":   "mobile_money",
		"provider": "paypal",
		"account":  "254700000000",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "unsupported payment provider")
}
