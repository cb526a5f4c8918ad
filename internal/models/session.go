package models

import (
	"database/sql"
	"time"

	"github.com/askielabs/askie-api/internal/money"
)

// HomeworkSession records one answered question after the spend has
// committed. History is best-effort: a failed insert never reverses the
// financial transaction.
type HomeworkSession struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Question    string         `db:"question"`
	Tier        string         `db:"tier"`
	AnswerRef   string         `db:"answer_ref"`
	StarsEarned int            `db:"stars_earned"`
	Cost        money.Cents    `db:"cost"`
	ImageRef    sql.NullString `db:"image_ref"`
	CreatedAt   time.Time      `db:"created_at"`
}
