package handler

import (
	"errors"
	"net/http"

	"github.com/askielabs/askie-api/internal/context"
	"github.com/askielabs/askie-api/internal/errHandler"
	"github.com/askielabs/askie-api/internal/models"
	"github.com/askielabs/askie-api/internal/money"
	"github.com/askielabs/askie-api/internal/request"
	"github.com/askielabs/askie-api/internal/response"
	"github.com/askielabs/askie-api/internal/settlement"
	"github.com/askielabs/askie-api/internal/validator"
)

type TopUpResponseData struct {
	ID            string      `json:"id"`
	Amount        money.Cents `json:"amount"`
	AmountDisplay string      `json:"amount_display"`
	Method        string      `json:"method"`
	Provider      string      `json:"provider"`
	Status        string      `json:"status"`
	Message       string      `json:"message,omitempty"`
}

type TopUpHandler struct {
	Engine     *settlement.Engine
	ErrHandler *errHandler.ErrorHandler
}

func NewTopUpHandler(handler *TopUpHandler) *TopUpHandler {
	return &TopUpHandler{
		Engine:     handler.Engine,
		ErrHandler: handler.ErrHandler,
	}
}

// HandleInitiateTopUp starts the provider flow. Nothing is credited
// here; the wallet only moves once the provider confirms and the
// confirm worker settles the payment.
func (h *TopUpHandler) HandleInitiateTopUp(w http.ResponseWriter, r *http.Request) {
	type InitiateTopUpInput struct {
		Amount    string              `json:"amount"`
		Method    string              `json:"method"`
		Provider  string              `json:"provider"`
		Account   string              `json:"account"`
		Validator validator.Validator `json:"-"`
	}

	var input InitiateTopUpInput

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	amount, amountErr := money.Parse(input.Amount)

	input.Validator.Check(validator.NotBlank(input.Amount), "Amount is required")
	input.Validator.Check(amountErr == nil && amount > 0, "Amount must be a positive decimal value")
	input.Validator.Check(validator.In(input.Method, models.PaymentMethodMobileMoney, models.PaymentMethodBank), "Method must be mobile_money or bank")
	input.Validator.Check(validator.NotBlank(input.Provider), "Provider is required")
	input.Validator.Check(validator.NotBlank(input.Account), "Account is required")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	user := context.ContextGetAuthenticatedUser(r)

	payment, message, err := h.Engine.InitiateTopUp(r.Context(), user.ID, amount, input.Method, input.Provider, input.Account)
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrBelowMinimum):
			input.Validator.AddError("Minimum top-up amount is " + h.Engine.MinimumTopUp.Display())
			h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		case errors.Is(err, settlement.ErrUnsupportedProvider):
			input.Validator.AddError(settlement.ErrUnsupportedProvider.Error())
			h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		case errors.Is(err, settlement.ErrProviderUnavailable):
			response.JSONErrorResponse(w, nil, settlement.ErrProviderUnavailable.Error(), http.StatusBadGateway, nil)
		default:
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	data := &TopUpResponseData{
		ID:            payment.ID,
		Amount:        payment.Amount,
		AmountDisplay: payment.Amount.Display(),
		Method:        payment.Method,
		Provider:      payment.Provider,
		Status:        payment.Status,
		Message:       message,
	}

	err = response.JSONCreatedResponse(w, data, "Top-up initiated, awaiting provider confirmation")
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *TopUpHandler) HandleCancelTopUp(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	paymentID := r.PathValue("id")

	payment, err := h.Engine.CancelTopUp(r.Context(), user.ID, paymentID)
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrPaymentNotFound):
			h.ErrHandler.NotFound(w, r)
		case errors.Is(err, settlement.ErrAlreadySettled):
			response.JSONErrorResponse(w, nil, "Payment has already been settled", http.StatusConflict, nil)
		default:
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	data := &TopUpResponseData{
		ID:            payment.ID,
		Amount:        payment.Amount,
		AmountDisplay: payment.Amount.Display(),
		Method:        payment.Method,
		Provider:      payment.Provider,
		Status:        payment.Status,
	}

	err = response.JSONOkResponse(w, data, "Top-up cancelled", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
