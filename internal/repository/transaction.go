package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/askielabs/askie-api/internal/models"
	"github.com/askielabs/askie-api/internal/money"
)

// TransactionRepository reads the append-only ledger. Rows are inserted
// only by WalletRepository inside the same transaction as the balance
// mutation; nothing updates or deletes them.
type TransactionRepository interface {
	GetAllByUserID(userID string, filter *TransactionFilter) ([]models.Transaction, bool, error)
	FindByExternalRef(externalRef string) (*models.Transaction, bool, error)
	SumByUserID(userID string) (money.Cents, error)
}

// TransactionFilter narrows and pages the history listing.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

type TransactionRepositoryImpl struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &TransactionRepositoryImpl{db: db}
}

func (repo *TransactionRepositoryImpl) GetAllByUserID(userID string, filter *TransactionFilter) ([]models.Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if filter == nil {
		filter = &TransactionFilter{Limit: 10}
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}

	var transactions []models.Transaction

	query := `
		SELECT id, user_id, amount, kind, description, session_id, external_ref, created_at
		FROM wallet_transactions
		WHERE user_id=$1
		AND ($2::timestamptz IS NULL OR created_at >= $2)
		AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`

	err := repo.db.SelectContext(ctx, &transactions, query,
		userID,
		filter.StartDate,
		filter.EndDate,
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return transactions, len(transactions) > 0, nil
}

func (repo *TransactionRepositoryImpl) FindByExternalRef(externalRef string) (*models.Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var trans models.Transaction

	query := `
		SELECT id, user_id, amount, kind, description, session_id, external_ref, created_at
		FROM wallet_transactions WHERE external_ref=$1`

	err := repo.db.GetContext(ctx, &trans, query, externalRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &trans, true, nil
}

// SumByUserID totals the signed ledger amounts for one user. The result
// must always equal the wallet balance; the reconciliation sweep alerts
// when it does not.
func (repo *TransactionRepositoryImpl) SumByUserID(userID string) (money.Cents, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var total money.Cents

	query := `
		SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions WHERE user_id=$1`

	if err := repo.db.GetContext(ctx, &total, query, userID); err != nil {
		return 0, err
	}

	return total, nil
}
