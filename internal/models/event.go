package models

import "github.com/askielabs/askie-api/internal/money"

// PaymentConfirmedEvent is produced by the webhook handler once a
// provider callback has been normalized. The confirm worker consumes it
// and settles the payment.
type PaymentConfirmedEvent struct {
	PaymentID     string `json:"payment_id"`
	Provider      string `json:"provider"`
	Success       bool   `json:"success"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// PaymentSettledEvent is produced after a wallet credit has committed.
// The notify worker consumes it and sends the settlement receipt.
type PaymentSettledEvent struct {
	PaymentID     string      `json:"payment_id"`
	TransactionID string      `json:"transaction_id"`
	UserID        string      `json:"user_id"`
	Provider      string      `json:"provider"`
	Amount        money.Cents `json:"amount"`
	NewBalance    money.Cents `json:"new_balance"`
}
