// A pending payment is settled here, not in the webhook handler: the
// handler only normalizes the provider callback and acknowledges it,
// so a slow database can never make a provider retry storm. Settling
// through the engine keeps the credit idempotent however many times
// the provider redelivers.
package worker

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/askielabs/askie-api/internal/models"
	"github.com/askielabs/askie-api/internal/settlement"
	"github.com/askielabs/askie-api/internal/stream"
)

func (wk *Worker) ConfirmWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: paymentConfirmGroupID,
		Topic:   PaymentConfirmedTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("ConfirmWorker received cancellation signal, shutting down...")
			return
		default:
			event := consumer.Poll(100)
			switch e := event.(type) {
			case *kafka.Message:
				var confirmed models.PaymentConfirmedEvent
				if err := json.Unmarshal(e.Value, &confirmed); err != nil {
					log.Printf("Error decoding confirmation event: %v", err)
					continue
				}

				wk.settlePayment(&confirmed)
			case kafka.Error:
				log.Printf("Error: %v\n", e)
			case *kafka.AssignedPartitions:
				consumer.Assign(e.Partitions)
			case *kafka.RevokedPartitions:
				consumer.Unassign()
			}
		}
	}
}

func (wk *Worker) settlePayment(confirmed *models.PaymentConfirmedEvent) {
	trans, err := wk.Engine.ConfirmTopUp(wk.Ctx, confirmed.PaymentID, &settlement.ConfirmOutcome{
		Success:       confirmed.Success,
		FailureReason: confirmed.FailureReason,
	})
	if err != nil {
		// a redelivered event lands here; nothing more to do
		if errors.Is(err, settlement.ErrAlreadySettled) {
			return
		}
		log.Printf("Error settling payment %s: %v", confirmed.PaymentID, err)
		return
	}

	if trans == nil {
		// provider reported failure; the payment was marked failed
		return
	}

	wallet, err := wk.Engine.Balance(wk.Ctx, trans.UserID)
	if err != nil {
		log.Printf("Error reading balance after settlement: %v", err)
		return
	}

	settled := models.PaymentSettledEvent{
		PaymentID:     confirmed.PaymentID,
		TransactionID: trans.ID,
		UserID:        trans.UserID,
		Provider:      confirmed.Provider,
		Amount:        trans.Amount,
		NewBalance:    wallet.Balance,
	}

	message, err := json.Marshal(settled)
	if err != nil {
		log.Printf("Error encoding settled event: %v", err)
		return
	}

	if err := wk.KafkaStream.ProduceMessage(PaymentSettledTopic, string(message)); err != nil {
		log.Printf("Error producing settled event: %v", err)
	}
}
