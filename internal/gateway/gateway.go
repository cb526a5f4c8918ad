// Package gateway integrates the external payment providers. Each
// provider speaks its own request and callback dialect; everything is
// normalized at this boundary so the settlement engine only ever sees
// InitiateResult and CallbackEvent.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/askielabs/askie-api/internal/config"
	"github.com/askielabs/askie-api/internal/money"
)

var ErrUnsupportedProvider = errors.New("unsupported payment provider")

const providerTimeout = 15 * time.Second

// provider identifiers as they appear in top-up requests and webhooks
const (
	ProviderMpesa   = "mpesa"
	ProviderMtnMomo = "mtn_momo"
	ProviderOzow    = "ozow"
)

// InitiateRequest asks a provider to start collecting money from the
// user. Account is a phone number for mobile money, a bank reference
// for EFT-style providers.
type InitiateRequest struct {
	PaymentID string
	Amount    money.Cents
	Account   string
}

// InitiateResult is the normalized provider response. Accepted false
// means the provider refused or was unreachable; the payment is failed
// without crediting anything.
type InitiateResult struct {
	Accepted          bool
	ProviderRequestID string
	Message           string
}

// CallbackEvent is the normalized terminal outcome a provider reports
// via webhook.
type CallbackEvent struct {
	ProviderRequestID string
	Success           bool
	FailureReason     string
}

type Provider interface {
	Name() string
	Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error)
	ParseCallback(body []byte) (*CallbackEvent, error)
}

type Gateway struct {
	providers map[string]Provider
	logger    *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *Gateway {
	client := &http.Client{Timeout: providerTimeout}

	g := &Gateway{
		providers: make(map[string]Provider),
		logger:    logger,
	}

	g.Register(NewMpesaProvider(&cfg.Payments.Mpesa, client))
	g.Register(NewMtnMomoProvider(&cfg.Payments.MtnMomo, client))
	g.Register(NewOzowProvider(&cfg.Payments.Ozow, client))

	return g
}

func (g *Gateway) Register(p Provider) {
	g.providers[p.Name()] = p
}

func (g *Gateway) Supports(provider string) bool {
	_, ok := g.providers[provider]
	return ok
}

// Initiate starts the external payment request. Transport errors and
// provider rejections both come back as Accepted false; only an unknown
// provider is an error.
func (g *Gateway) Initiate(ctx context.Context, provider string, req *InitiateRequest) (*InitiateResult, error) {
	p, ok := g.providers[provider]
	if !ok {
		return nil, ErrUnsupportedProvider
	}

	result, err := p.Initiate(ctx, req)
	if err != nil {
		g.logger.Error("provider initiate failed", "provider", provider, "payment_id", req.PaymentID, "error", err)
		return &InitiateResult{
			Accepted: false,
			Message:  "payment provider is currently unavailable",
		}, nil
	}

	return result, nil
}

func (g *Gateway) ParseCallback(provider string, body []byte) (*CallbackEvent, error) {
	p, ok := g.providers[provider]
	if !ok {
		return nil, ErrUnsupportedProvider
	}

	return p.ParseCallback(body)
}
