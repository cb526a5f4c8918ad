package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/askielabs/askie-api/internal/errHandler"
	"github.com/askielabs/askie-api/internal/gateway"
	"github.com/askielabs/askie-api/internal/models"
	"github.com/askielabs/askie-api/internal/repository"
	"github.com/askielabs/askie-api/internal/response"
	"github.com/askielabs/askie-api/internal/stream"
	"github.com/askielabs/askie-api/internal/worker"
)

// maxWebhookBody bounds provider callbacks; real payloads are a few KB.
const maxWebhookBody = 65536

type WebhookHandler struct {
	Gateway     *gateway.Gateway
	PaymentRepo repository.PaymentRepository
	Kafka       stream.Producer
	ErrHandler  *errHandler.ErrorHandler
}

func NewWebhookHandler(handler *WebhookHandler) *WebhookHandler {
	return &WebhookHandler{
		Gateway:     handler.Gateway,
		PaymentRepo: handler.PaymentRepo,
		Kafka:       handler.Kafka,
		ErrHandler:  handler.ErrHandler,
	}
}

// HandleProviderWebhook normalizes a provider callback and hands it to
// the confirm worker over the event stream. The handler only
// acknowledges; settlement happens asynchronously so a slow database
// never triggers a provider retry storm. Redeliveries are harmless:
// settling is idempotent end to end.
func (h *WebhookHandler) HandleProviderWebhook(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	event, err := h.Gateway.ParseCallback(provider, body)
	if err != nil {
		if errors.Is(err, gateway.ErrUnsupportedProvider) {
			h.ErrHandler.NotFound(w, r)
			return
		}
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	payment, found, err := h.PaymentRepo.FindByProviderRequestID(event.ProviderRequestID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		// unknown reference: acknowledge so the provider stops retrying,
		// but surface it for reconciliation
		h.ErrHandler.ReportServerError(r, errors.New("webhook for unknown provider request: "+event.ProviderRequestID))
		response.JSONOkResponse(w, nil, "Acknowledged", nil)
		return
	}

	confirmed := models.PaymentConfirmedEvent{
		PaymentID:     payment.ID,
		Provider:      provider,
		Success:       event.Success,
		FailureReason: event.FailureReason,
	}

	message, err := json.Marshal(confirmed)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if err := h.Kafka.ProduceMessage(worker.PaymentConfirmedTopic, string(message)); err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	err = response.JSONOkResponse(w, nil, "Acknowledged", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
