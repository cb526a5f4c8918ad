package models

import (
	"database/sql"
	"time"

	"github.com/askielabs/askie-api/internal/money"
)

// define possible pending payment statuses.
// initiated -> pending -> success | failed
// Terminal states are final; a settled row never transitions again.
const (
	PaymentStatusInitiated = "initiated"
	PaymentStatusPending   = "pending"
	PaymentStatusSuccess   = "success"
	PaymentStatusFailed    = "failed"
)

// define supported top-up methods
const (
	PaymentMethodMobileMoney = "mobile_money"
	PaymentMethodBank        = "bank"
)

// PendingPayment tracks an in-flight external top-up from initiation
// until the provider reports a terminal outcome.
type PendingPayment struct {
	ID                string         `db:"id"`
	UserID            string         `db:"user_id"`
	Amount            money.Cents    `db:"amount"`
	Method            string         `db:"method"`
	Provider          string         `db:"provider"`
	Status            string         `db:"status"`
	ProviderRequestID sql.NullString `db:"provider_request_id"`
	FailureReason     sql.NullString `db:"failure_reason"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         sql.NullTime   `db:"updated_at"`
}

// Settled reports whether the payment has reached a terminal state.
func (p *PendingPayment) Settled() bool {
	return p.Status == PaymentStatusSuccess || p.Status == PaymentStatusFailed
}
