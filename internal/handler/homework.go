package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/askielabs/askie-api/internal/answer"
	"github.com/askielabs/askie-api/internal/catalog"
	"github.com/askielabs/askie-api/internal/context"
	"github.com/askielabs/askie-api/internal/errHandler"
	"github.com/askielabs/askie-api/internal/helper"
	"github.com/askielabs/askie-api/internal/models"
	"github.com/askielabs/askie-api/internal/money"
	"github.com/askielabs/askie-api/internal/repository"
	"github.com/askielabs/askie-api/internal/request"
	"github.com/askielabs/askie-api/internal/response"
	"github.com/askielabs/askie-api/internal/settlement"
	"github.com/askielabs/askie-api/internal/validator"
)

var ErrAnswerFailed = errors.New("we could not generate an answer, your wallet has not been charged")

const maxQuestionLength = 4000

type HomeworkHandler struct {
	Engine      *settlement.Engine
	Generator   answer.Generator
	SessionRepo repository.SessionRepository
	Helper      *helper.HelperRepository
	ErrHandler  *errHandler.ErrorHandler
}

func NewHomeworkHandler(handler *HomeworkHandler) *HomeworkHandler {
	return &HomeworkHandler{
		Engine:      handler.Engine,
		Generator:   handler.Generator,
		SessionRepo: handler.SessionRepo,
		Helper:      handler.Helper,
		ErrHandler:  handler.ErrHandler,
	}
}

type HomeworkResponseData struct {
	SessionID    string      `json:"session_id,omitempty"`
	Answer       string      `json:"answer"`
	TimeEstimate string      `json:"time_estimate,omitempty"`
	Tier         string      `json:"tier"`
	Cost         money.Cents `json:"cost"`
	StarsEarned  int         `json:"stars_earned"`
	NewBalance   money.Cents `json:"new_balance"`
}

// HandleSubmitHomework is the paid path: debit first, then generate.
// A generation failure refunds the committed debit; a failure to record
// the session is logged and never reverses the money.
func (h *HomeworkHandler) HandleSubmitHomework(w http.ResponseWriter, r *http.Request) {
	type SubmitHomeworkInput struct {
		Question  string              `json:"question"`
		Tier      string              `json:"tier"`
		ImageRef  string              `json:"image_ref"`
		Validator validator.Validator `json:"-"`
	}

	var input SubmitHomeworkInput

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Question), "Question is required")
	input.Validator.Check(validator.MaxRunes(input.Question, maxQuestionLength), "Question is too long")
	input.Validator.Check(validator.NotBlank(input.Tier), "Tier is required")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	user := context.ContextGetAuthenticatedUser(r)

	spend, err := h.Engine.RequestSpend(r.Context(), user.ID, input.Tier)
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrUnknownTier):
			input.Validator.AddError(settlement.ErrUnknownTier.Error())
			h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		case errors.Is(err, settlement.ErrInsufficientFunds):
			response.JSONErrorResponse(w, nil, settlement.ErrInsufficientFunds.Error(), http.StatusPaymentRequired, nil)
		default:
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	ans, err := h.Generator.Generate(r.Context(), input.Question, input.Tier, input.ImageRef)
	if err != nil {
		h.ErrHandler.ReportServerError(r, err)

		// the debit committed; put the money back before answering
		_, refundErr := h.Engine.RefundSpend(r.Context(), user.ID, spend.Cost, spend.TransactionID, "Refund: answer generation failed")
		if refundErr != nil {
			// money is stuck until ops steps in; escalate loudly
			h.ErrHandler.ReportServerError(r, refundErr)
		}

		response.JSONErrorResponse(w, nil, ErrAnswerFailed.Error(), http.StatusBadGateway, nil)
		return
	}

	data := &HomeworkResponseData{
		Answer:       ans.Text,
		TimeEstimate: ans.TimeEstimate,
		Tier:         input.Tier,
		Cost:         spend.Cost,
		StarsEarned:  spend.StarsEarned,
		NewBalance:   spend.NewBalance,
	}

	session, err := h.SessionRepo.Insert(&models.HomeworkSession{
		UserID:      user.ID,
		Question:    input.Question,
		Tier:        input.Tier,
		AnswerRef:   ans.Text,
		StarsEarned: spend.StarsEarned,
		Cost:        spend.Cost,
		ImageRef:    toNullString(input.ImageRef),
	})
	if err != nil {
		// history is best-effort; the answer still goes out
		log.Printf("Error recording homework session: %v", err)
	} else {
		data.SessionID = session.ID
	}

	err = response.JSONCreatedResponse(w, data, "Answer generated successfully")
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleListTiers returns the pricing catalog the app renders on the
// tier picker.
func (h *HomeworkHandler) HandleListTiers(w http.ResponseWriter, r *http.Request) {
	type TierResponseData struct {
		ID           string      `json:"id"`
		Name         string      `json:"name"`
		Description  string      `json:"description"`
		Price        money.Cents `json:"price"`
		PriceDisplay string      `json:"price_display"`
	}

	tiers := catalog.List()
	data := make([]TierResponseData, len(tiers))
	for i, tier := range tiers {
		data[i] = TierResponseData{
			ID:           tier.ID,
			Name:         tier.Name,
			Description:  tier.Description,
			Price:        tier.Price,
			PriceDisplay: tier.Price.Display(),
		}
	}

	err := response.JSONOkResponse(w, data, "Tiers fetched successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
