package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/askielabs/askie-api/internal/config"
)

// MtnMomoProvider implements the MoMo request-to-pay collection flow.
// We generate the reference id ourselves and hand it to the provider,
// so the callback can be matched without any extra lookup table.
type MtnMomoProvider struct {
	cfg    *config.MtnMomoConfig
	client *http.Client
}

func NewMtnMomoProvider(cfg *config.MtnMomoConfig, client *http.Client) *MtnMomoProvider {
	return &MtnMomoProvider{cfg: cfg, client: client}
}

func (p *MtnMomoProvider) Name() string {
	return ProviderMtnMomo
}

func (p *MtnMomoProvider) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error) {
	referenceID := uuid.New().String()

	payload := map[string]any{
		"amount":     req.Amount.Decimal(),
		"currency":   "EUR", // sandbox only accepts EUR; production uses the wallet currency
		"externalId": req.PaymentID,
		"payer": map[string]string{
			"partyIdType": "MSISDN",
			"partyId":     req.Account,
		},
		"payerMessage": "Askie wallet top-up",
		"payeeNote":    "Askie wallet top-up " + req.PaymentID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/collection/v1_0/requesttopay", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("X-Reference-Id", referenceID)
	httpReq.Header.Set("X-Target-Environment", p.cfg.TargetEnv)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", p.cfg.SubscriptionKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return &InitiateResult{
			Accepted: false,
			Message:  fmt.Sprintf("MoMo request was rejected (status %d)", resp.StatusCode),
		}, nil
	}

	return &InitiateResult{
		Accepted:          true,
		ProviderRequestID: referenceID,
		Message:           "Payment request initiated, approve it on your phone",
	}, nil
}

// ParseCallback handles the request-to-pay resource MoMo posts back.
// Status SUCCESSFUL settles the payment; everything else fails it.
func (p *MtnMomoProvider) ParseCallback(body []byte) (*CallbackEvent, error) {
	var payload struct {
		ReferenceID string `json:"referenceId"`
		Status      string `json:"status"`
		Reason      struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"reason"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	if payload.ReferenceID == "" {
		return nil, fmt.Errorf("momo callback missing referenceId")
	}

	event := &CallbackEvent{
		ProviderRequestID: payload.ReferenceID,
		Success:           strings.EqualFold(payload.Status, "SUCCESSFUL"),
	}
	if !event.Success {
		event.FailureReason = payload.Reason.Message
		if event.FailureReason == "" {
			event.FailureReason = payload.Status
		}
	}

	return event, nil
}
