// Settled payments get a receipt email. User identity is external and
// carries no address we can mail, so receipts go to the operations
// inbox configured in NOTIFICATIONS_EMAIL.
package worker

import (
	"encoding/json"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/askielabs/askie-api/internal/models"
	"github.com/askielabs/askie-api/internal/stream"
)

func (wk *Worker) NotifyWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: paymentNotifyGroupID,
		Topic:   PaymentSettledTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("NotifyWorker received cancellation signal, shutting down...")
			return
		default:
			event := consumer.Poll(100)
			switch e := event.(type) {
			case *kafka.Message:
				var settled models.PaymentSettledEvent
				if err := json.Unmarshal(e.Value, &settled); err != nil {
					log.Printf("Error decoding settled event: %v", err)
					continue
				}

				wk.sendSettlementReceipt(&settled)
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

func (wk *Worker) sendSettlementReceipt(settled *models.PaymentSettledEvent) {
	if wk.NotificationEmail == "" {
		return
	}

	wk.Helper.BackgroundTask(func() error {
		emailData := wk.Helper.NewEmailData()
		emailData["UserID"] = settled.UserID
		emailData["Provider"] = settled.Provider
		emailData["Amount"] = settled.Amount
		emailData["NewBalance"] = settled.NewBalance
		emailData["TransactionID"] = settled.TransactionID

		err := wk.Mailer.Send(wk.NotificationEmail, emailData, "payment-settled.tmpl")
		if err != nil {
			log.Printf("Error sending settlement receipt: %v", err)
			return err
		}

		return nil
	})
}
