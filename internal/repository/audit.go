// Every settlement action (synchronous or asynchronous) should be
// logged here. The trail exists for audit and tracing; it is not the
// financial ledger and carries no balance information.
package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/askielabs/askie-api/internal/models"
)

type AuditRepository interface {
	Insert(log *models.AuditLog) (*models.AuditLog, error)
}

type AuditRepositoryImpl struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) AuditRepository {
	return &AuditRepositoryImpl{db: db}
}

func (repo *AuditRepositoryImpl) Insert(log *models.AuditLog) (*models.AuditLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var inserted models.AuditLog

	query := `
		INSERT INTO audit_logs (user_id, entity, entity_id, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, entity, entity_id, description, created_at`

	err := repo.db.QueryRowxContext(ctx, query,
		log.UserID,
		log.Entity,
		log.EntityID,
		log.Description,
	).StructScan(&inserted)
	if err != nil {
		return nil, err
	}

	return &inserted, nil
}
