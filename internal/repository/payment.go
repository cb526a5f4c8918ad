package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/askielabs/askie-api/internal/models"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrAlreadySettled means the row is in a terminal state. Webhook
	// retries land here; callers treat it as a benign no-op.
	ErrAlreadySettled = errors.New("payment already settled")
)

type PaymentRepository interface {
	Insert(payment *models.PendingPayment) (*models.PendingPayment, error)
	GetOne(id string) (*models.PendingPayment, bool, error)
	FindByProviderRequestID(providerRequestID string) (*models.PendingPayment, bool, error)
	MarkPending(id, providerRequestID string) error
	MarkSettled(id, status, failureReason string) (*models.PendingPayment, error)
	FindStale(cutoff time.Time) ([]models.PendingPayment, error)
}

type PaymentRepositoryImpl struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &PaymentRepositoryImpl{db: db}
}

func (repo *PaymentRepositoryImpl) Insert(payment *models.PendingPayment) (*models.PendingPayment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var inserted models.PendingPayment

	query := `
		INSERT INTO pending_payments (user_id, amount, method, provider, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, amount, method, provider, status, provider_request_id, failure_reason, created_at, updated_at`

	err := repo.db.QueryRowxContext(ctx, query,
		payment.UserID,
		payment.Amount,
		payment.Method,
		payment.Provider,
		models.PaymentStatusInitiated,
	).StructScan(&inserted)
	if err != nil {
		return nil, err
	}

	return &inserted, nil
}

func (repo *PaymentRepositoryImpl) GetOne(id string) (*models.PendingPayment, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var payment models.PendingPayment

	query := `
		SELECT id, user_id, amount, method, provider, status, provider_request_id, failure_reason, created_at, updated_at
		FROM pending_payments WHERE id=$1`

	err := repo.db.GetContext(ctx, &payment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &payment, true, nil
}

func (repo *PaymentRepositoryImpl) FindByProviderRequestID(providerRequestID string) (*models.PendingPayment, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var payment models.PendingPayment

	query := `
		SELECT id, user_id, amount, method, provider, status, provider_request_id, failure_reason, created_at, updated_at
		FROM pending_payments WHERE provider_request_id=$1`

	err := repo.db.GetContext(ctx, &payment, query, providerRequestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &payment, true, nil
}

// MarkPending records the provider's request reference once the external
// call has been accepted. Only an initiated row can move to pending.
func (repo *PaymentRepositoryImpl) MarkPending(id, providerRequestID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE pending_payments
		SET status=$1, provider_request_id=$2, updated_at=now()
		WHERE id=$3 AND status=$4`

	result, err := repo.db.ExecContext(ctx, query,
		models.PaymentStatusPending,
		providerRequestID,
		id,
		models.PaymentStatusInitiated,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAlreadySettled
	}

	return nil
}

// MarkSettled transitions a payment into a terminal state exactly once.
// The WHERE clause is the compare-and-set: a row that already reached
// success or failed is untouched and ErrAlreadySettled is returned.
func (repo *PaymentRepositoryImpl) MarkSettled(id, status, failureReason string) (*models.PendingPayment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var payment models.PendingPayment

	query := `
		UPDATE pending_payments
		SET status=$1, failure_reason=NULLIF($2, ''), updated_at=now()
		WHERE id=$3 AND status IN ($4, $5)
		RETURNING id, user_id, amount, method, provider, status, provider_request_id, failure_reason, created_at, updated_at`

	err := repo.db.QueryRowxContext(ctx, query,
		status,
		failureReason,
		id,
		models.PaymentStatusInitiated,
		models.PaymentStatusPending,
	).StructScan(&payment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlreadySettled
		}
		return nil, err
	}

	return &payment, nil
}

// FindStale lists non-terminal payments initiated before the cutoff.
// The sweep worker fails them so wallet state cannot silently drift
// from the provider's ledger.
func (repo *PaymentRepositoryImpl) FindStale(cutoff time.Time) ([]models.PendingPayment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var payments []models.PendingPayment

	query := `
		SELECT id, user_id, amount, method, provider, status, provider_request_id, failure_reason, created_at, updated_at
		FROM pending_payments
		WHERE status IN ($1, $2) AND created_at < $3`

	err := repo.db.SelectContext(ctx, &payments, query,
		models.PaymentStatusInitiated,
		models.PaymentStatusPending,
		cutoff,
	)
	if err != nil {
		return nil, err
	}

	return payments, nil
}
