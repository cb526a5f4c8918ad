package handler

import (
	"net/http"
	"time"

	"github.com/askielabs/askie-api/internal/context"
	"github.com/askielabs/askie-api/internal/errHandler"
	"github.com/askielabs/askie-api/internal/money"
	"github.com/askielabs/askie-api/internal/repository"
	"github.com/askielabs/askie-api/internal/response"
)

type SessionResponseData struct {
	ID          string      `json:"id"`
	Question    string      `json:"question"`
	Tier        string      `json:"tier"`
	Answer      string      `json:"answer"`
	StarsEarned int         `json:"stars_earned"`
	Cost        money.Cents `json:"cost"`
	CostDisplay string      `json:"cost_display"`
	ImageRef    string      `json:"image_ref,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

type SessionHandler struct {
	SessionRepo repository.SessionRepository
	ErrHandler  *errHandler.ErrorHandler
}

func NewSessionHandler(handler *SessionHandler) *SessionHandler {
	return &SessionHandler{
		SessionRepo: handler.SessionRepo,
		ErrHandler:  handler.ErrHandler,
	}
}

func (h *SessionHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	queryValues := retrieveUrlQueryValues(r)

	sessions, found, err := h.SessionRepo.GetAllByUserID(user.ID, queryValues.Limit, queryValues.Offset)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		message := "No sessions found"
		err = response.JSONOkResponse(w, []SessionResponseData{}, message, nil)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	message := "Sessions fetched successfully"

	data := make([]*SessionResponseData, len(sessions))
	for i, session := range sessions {
		data[i] = &SessionResponseData{
			ID:          session.ID,
			Question:    session.Question,
			Tier:        session.Tier,
			Answer:      session.AnswerRef,
			StarsEarned: session.StarsEarned,
			Cost:        session.Cost,
			CostDisplay: session.Cost.Display(),
			ImageRef:    session.ImageRef.String,
			CreatedAt:   session.CreatedAt,
		}
	}

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
