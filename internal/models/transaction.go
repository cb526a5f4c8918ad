package models

import (
	"database/sql"
	"time"

	"github.com/askielabs/askie-api/internal/money"
)

// define possible transaction kinds
const (
	TransactionKindTopUp   = "top_up"
	TransactionKindPayment = "payment"
	TransactionKindRefund  = "refund"
)

// Transaction is one immutable row of the append-only ledger. Amount is
// signed: positive credits the wallet, negative debits it. The sum of a
// user's transactions always equals their wallet balance.
type Transaction struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Amount      money.Cents    `db:"amount"`
	Kind        string         `db:"kind"`
	Description string         `db:"description"`
	SessionID   sql.NullString `db:"session_id"`
	ExternalRef sql.NullString `db:"external_ref"`
	CreatedAt   time.Time      `db:"created_at"`
}
