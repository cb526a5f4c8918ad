package gateway

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/askielabs/askie-api/internal/config"
)

// OzowProvider implements the instant-EFT bank flow. Unlike the mobile
// money providers there is no device prompt; the provider returns a
// payment URL the UI redirects the user to, and the outcome arrives on
// the notification webhook once the bank leg completes.
type OzowProvider struct {
	cfg    *config.OzowConfig
	client *http.Client
}

func NewOzowProvider(cfg *config.OzowConfig, client *http.Client) *OzowProvider {
	return &OzowProvider{cfg: cfg, client: client}
}

func (p *OzowProvider) Name() string {
	return ProviderOzow
}

func (p *OzowProvider) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error) {
	payload := map[string]any{
		"SiteCode":             p.cfg.SiteCode,
		"CountryCode":          "ZA",
		"CurrencyCode":         "ZAR",
		"Amount":               req.Amount.Decimal(),
		"TransactionReference": "ASKIE-" + req.PaymentID,
		"BankReference":        req.Account,
		"IsTest":               false,
	}
	payload["HashCheck"] = p.hashCheck(payload)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/postpaymentrequest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("ApiKey", p.cfg.PrivateKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &InitiateResult{
			Accepted: false,
			Message:  fmt.Sprintf("bank payment request was rejected (status %d)", resp.StatusCode),
		}, nil
	}

	var ozowResp struct {
		PaymentRequestID string `json:"paymentRequestId"`
		URL              string `json:"url"`
		ErrorMessage     string `json:"errorMessage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ozowResp); err != nil {
		return nil, err
	}

	if ozowResp.ErrorMessage != "" || ozowResp.PaymentRequestID == "" {
		message := ozowResp.ErrorMessage
		if message == "" {
			message = "bank payment request was rejected"
		}
		return &InitiateResult{Accepted: false, Message: message}, nil
	}

	return &InitiateResult{
		Accepted:          true,
		ProviderRequestID: ozowResp.PaymentRequestID,
		Message:           "Complete the payment in your banking app: " + ozowResp.URL,
	}, nil
}

// hashCheck is the lowercase SHA-512 of the concatenated field values
// plus the private key, which is how the provider authenticates us.
func (p *OzowProvider) hashCheck(payload map[string]any) string {
	var sb strings.Builder
	for _, key := range []string{"SiteCode", "CountryCode", "CurrencyCode", "Amount", "TransactionReference", "BankReference"} {
		fmt.Fprintf(&sb, "%v", payload[key])
	}
	sb.WriteString(p.cfg.PrivateKey)

	sum := sha512.Sum512([]byte(strings.ToLower(sb.String())))
	return hex.EncodeToString(sum[:])
}

// ParseCallback handles the payment notification. Status Complete is
// the only success; Cancelled, Error and Abandoned all fail the
// payment.
func (p *OzowProvider) ParseCallback(body []byte) (*CallbackEvent, error) {
	var payload struct {
		PaymentRequestID string `json:"PaymentRequestId"`
		Status           string `json:"Status"`
		StatusMessage    string `json:"StatusMessage"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	if payload.PaymentRequestID == "" {
		return nil, fmt.Errorf("ozow callback missing PaymentRequestId")
	}

	event := &CallbackEvent{
		ProviderRequestID: payload.PaymentRequestID,
		Success:           strings.EqualFold(payload.Status, "Complete"),
	}
	if !event.Success {
		event.FailureReason = payload.Status
		if payload.StatusMessage != "" {
			event.FailureReason = payload.StatusMessage
		}
	}

	return event, nil
}
