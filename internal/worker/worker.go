package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/askielabs/askie-api/internal/helper"
	"github.com/askielabs/askie-api/internal/settlement"
	"github.com/askielabs/askie-api/internal/smtp"
	"github.com/askielabs/askie-api/internal/stream"
)

type Worker struct {
	KafkaStream *stream.KafkaStream
	Engine      *settlement.Engine
	Mailer      smtp.MailerInterface
	Helper      *helper.HelperRepository
	Logger      *slog.Logger
	Ctx         context.Context

	// NotificationEmail receives settlement receipts and reconciliation
	// alerts; there is no stored address for end users.
	NotificationEmail string
	StaleWindow       time.Duration
	SweepInterval     time.Duration
}

const (
	// paymentConfirmGroupID is used for workers that settle payments once a
	// provider callback has been normalized by the webhook handler
	paymentConfirmGroupID = "payment-confirm-group"

	// paymentNotifyGroupID is used for workers that send receipts after a
	// wallet credit has committed
	paymentNotifyGroupID = "payment-notify-group"

	// Topics
	// PaymentConfirmedTopic carries normalized provider callbacks waiting to
	// be settled against the ledger
	PaymentConfirmedTopic = "payment.confirmed"

	// PaymentSettledTopic carries committed wallet credits waiting for
	// notifications to go out
	PaymentSettledTopic = "payment.settled"
)

// Our workers typically need the settlement engine and the kafka event
// stream; worker-specific dependencies can be passed as arguments.
func New(wk *Worker) *Worker {
	if wk.SweepInterval == 0 {
		wk.SweepInterval = time.Minute
	}
	return wk
}
