package models

import "time"

// audit log entities
const (
	AuditEntitySpend   = "spend"
	AuditEntityTopUp   = "top_up"
	AuditEntityPayment = "payment"
)

// possible descriptions
const (
	AuditSpendCommittedDescription = "Spend committed"
	AuditSpendRefundedDescription  = "Spend refunded"
	AuditTopUpInitiatedDescription = "Top-up initiated"
	AuditTopUpCancelledDescription = "Top-up cancelled"
	AuditPaymentSettledDescription = "Payment settled"
	AuditPaymentFailedDescription  = "Payment failed"
	AuditPaymentSweptDescription   = "Payment swept as stale"
	AuditPaymentIgnoredDescription = "Late provider confirmation ignored"
)

// AuditLog records settlement actions for the operations trail. It is
// separate from the financial ledger: losing an audit row never affects
// balances.
type AuditLog struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Entity      string    `db:"entity"`
	EntityID    string    `db:"entity_id"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}
