package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/askielabs/askie-api/internal/config"
)

// MpesaProvider implements the Safaricom STK-push flow: fetch an OAuth
// token, then ask the provider to push a payment prompt to the user's
// phone. The terminal outcome arrives later on the callback URL.
type MpesaProvider struct {
	cfg    *config.MpesaConfig
	client *http.Client
}

func NewMpesaProvider(cfg *config.MpesaConfig, client *http.Client) *MpesaProvider {
	return &MpesaProvider{cfg: cfg, client: client}
}

func (p *MpesaProvider) Name() string {
	return ProviderMpesa
}

func (p *MpesaProvider) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().UTC().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(p.cfg.ShortCode + p.cfg.Passkey + timestamp))

	// M-Pesa amounts are whole currency units
	payload := map[string]any{
		"BusinessShortCode": p.cfg.ShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            int64(req.Amount) / 100,
		"PartyA":            req.Account,
		"PartyB":            p.cfg.ShortCode,
		"PhoneNumber":       req.Account,
		"AccountReference":  "ASKIE-" + req.PaymentID,
		"TransactionDesc":   "Askie wallet top-up",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var stkResp struct {
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
		CheckoutRequestID   string `json:"CheckoutRequestID"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stkResp); err != nil {
		return nil, err
	}

	if stkResp.ResponseCode != "0" {
		message := stkResp.ResponseDescription
		if message == "" {
			message = "payment request was rejected"
		}
		return &InitiateResult{Accepted: false, Message: message}, nil
	}

	return &InitiateResult{
		Accepted:          true,
		ProviderRequestID: stkResp.CheckoutRequestID,
		Message:           "Payment request sent to your phone",
	}, nil
}

func (p *MpesaProvider) accessToken(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	httpReq.SetBasicAuth(p.cfg.ConsumerKey, p.cfg.ConsumerSecret)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("mpesa token request failed: status %d: %s", resp.StatusCode, body)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}

	return tokenResp.AccessToken, nil
}

// ParseCallback handles the stkCallback payload. ResultCode 0 is
// success; anything else carries a human-readable ResultDesc.
func (p *MpesaProvider) ParseCallback(body []byte) (*CallbackEvent, error) {
	var payload struct {
		Body struct {
			StkCallback struct {
				CheckoutRequestID string `json:"CheckoutRequestID"`
				ResultCode        int    `json:"ResultCode"`
				ResultDesc        string `json:"ResultDesc"`
			} `json:"stkCallback"`
		} `json:"Body"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	cb := payload.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("mpesa callback missing CheckoutRequestID")
	}

	event := &CallbackEvent{
		ProviderRequestID: cb.CheckoutRequestID,
		Success:           cb.ResultCode == 0,
	}
	if !event.Success {
		event.FailureReason = cb.ResultDesc
	}

	return event, nil
}
