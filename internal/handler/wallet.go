package handler

import (
	"net/http"
	"time"

	"github.com/askielabs/askie-api/internal/context"
	"github.com/askielabs/askie-api/internal/errHandler"
	"github.com/askielabs/askie-api/internal/models"
	"github.com/askielabs/askie-api/internal/money"
	"github.com/askielabs/askie-api/internal/repository"
	"github.com/askielabs/askie-api/internal/response"
	"github.com/askielabs/askie-api/internal/settlement"
)

type WalletResponseData struct {
	Balance        money.Cents `json:"balance"`
	BalanceDisplay string      `json:"balance_display"`
	Currency       string      `json:"currency"`
	TotalStars     int         `json:"total_stars"`
}

type TransactionResponseData struct {
	ID            string      `json:"id"`
	Amount        money.Cents `json:"amount"`
	AmountDisplay string      `json:"amount_display"`
	Kind          string      `json:"kind"`
	Description   string      `json:"description"`
	SessionID     string      `json:"session_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

type WalletHandler struct {
	Engine          *settlement.Engine
	TransactionRepo repository.TransactionRepository
	ErrHandler      *errHandler.ErrorHandler
}

func NewWalletHandler(handler *WalletHandler) *WalletHandler {
	return &WalletHandler{
		Engine:          handler.Engine,
		TransactionRepo: handler.TransactionRepo,
		ErrHandler:      handler.ErrHandler,
	}
}

// HandleWalletDetails returns the caller's wallet. The balance shown
// here is the ledger's truth; the app renders it verbatim.
func (h *WalletHandler) HandleWalletDetails(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	wallet, err := h.Engine.Balance(r.Context(), user.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	message := "Wallet fetched successfully"

	data := &WalletResponseData{
		Balance:        wallet.Balance,
		BalanceDisplay: wallet.Balance.Display(),
		Currency:       money.Code(),
		TotalStars:     wallet.TotalStars,
	}
	err = response.JSONOkResponse(w, data, message, nil)

	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *WalletHandler) HandleWalletTransactions(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	queryValues := retrieveUrlQueryValues(r)

	transactions, found, err := h.TransactionRepo.GetAllByUserID(user.ID, &repository.TransactionFilter{
		StartDate: queryValues.StartDate,
		EndDate:   queryValues.EndDate,
		Limit:     queryValues.Limit,
		Offset:    queryValues.Offset,
	})
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		message := "No transactions found"
		err = response.JSONOkResponse(w, []TransactionResponseData{}, message, nil)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	message := "Transactions fetched successfully"

	data := make([]*TransactionResponseData, len(transactions))
	for i, trans := range transactions {
		data[i] = newTransactionResponseData(&trans)
	}

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleWalletReconcile recomputes the caller's balance from the ledger
// and reports whether it matches the wallet row. Used by support
// tooling when a balance is disputed.
func (h *WalletHandler) HandleWalletReconcile(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	consistent, balance, sum, err := h.Engine.Reconcile(r.Context(), user.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	message := "Reconciliation completed"

	data := map[string]any{
		"consistent":      consistent,
		"balance":         balance,
		"transaction_sum": sum,
	}
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func newTransactionResponseData(trans *models.Transaction) *TransactionResponseData {
	data := &TransactionResponseData{
		ID:            trans.ID,
		Amount:        trans.Amount,
		AmountDisplay: trans.Amount.Display(),
		Kind:          trans.Kind,
		Description:   trans.Description,
		CreatedAt:     trans.CreatedAt,
	}
	if trans.SessionID.Valid {
		data.SessionID = trans.SessionID.String
	}
	return data
}
