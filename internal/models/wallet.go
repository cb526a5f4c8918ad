package models

import (
	"database/sql"
	"time"

	"github.com/askielabs/askie-api/internal/money"
)

// Wallet is the single contended record per user: the prepaid balance
// plus accumulated reward stars. Balance is stored in minor units and
// can never go negative; mutation happens only through the settlement
// engine.
type Wallet struct {
	ID         string       `db:"id"`
	UserID     string       `db:"user_id"`
	Balance    money.Cents  `db:"balance"`
	TotalStars int          `db:"total_stars"`
	Version    int          `db:"version"`
	CreatedAt  time.Time    `db:"created_at"`
	UpdatedAt  sql.NullTime `db:"updated_at"`
}
