package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/askielabs/askie-api/internal/models"
	"github.com/askielabs/askie-api/internal/money"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletNotFound    = errors.New("wallet not found")
)

// uniqueViolation is the Postgres error code raised when the external_ref
// unique index rejects a duplicate credit.
const uniqueViolation = "23505"

// CreditParams carries everything needed to credit a wallet. ExternalRef
// is the idempotency key: crediting twice with the same reference applies
// the money exactly once and hands back the original ledger row.
type CreditParams struct {
	UserID      string
	Amount      money.Cents
	Kind        string
	Description string
	Stars       int
	ExternalRef string
	SessionID   string
}

type WalletRepository interface {
	GetOrCreate(userID string) (*models.Wallet, error)
	Debit(userID string, amount money.Cents, description string, stars int) (*models.Transaction, *models.Wallet, error)
	Credit(params *CreditParams) (*models.Transaction, *models.Wallet, error)
}

type WalletRepositoryImpl struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &WalletRepositoryImpl{db: db}
}

// GetOrCreate returns the user's wallet, lazily creating a zero-balance
// one on first access.
func (repo *WalletRepositoryImpl) GetOrCreate(userID string) (*models.Wallet, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO wallets (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := repo.db.ExecContext(ctx, query, userID); err != nil {
		return nil, err
	}

	var wallet models.Wallet

	query = `
		SELECT id, user_id, balance, total_stars, version, created_at, updated_at
		FROM wallets WHERE user_id=$1`

	if err := repo.db.GetContext(ctx, &wallet, query, userID); err != nil {
		return nil, err
	}

	return &wallet, nil
}

// Debit atomically decrements the balance and appends the ledger row.
// The balance check happens under the same row lock as the mutation, so
// two concurrent debits can never both pass the check. Stars earned on
// the spend are applied in the same transaction.
func (repo *WalletRepositoryImpl) Debit(userID string, amount money.Cents, description string, stars int) (*models.Transaction, *models.Wallet, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}

	defer tx.Rollback()

	wallet, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, nil, err
	}

	if wallet.Balance < amount {
		return nil, nil, ErrInsufficientFunds
	}

	wallet, err = applyToWallet(ctx, tx, userID, -amount, stars)
	if err != nil {
		return nil, nil, err
	}

	trans, err := insertLedgerRow(ctx, tx, &models.Transaction{
		UserID:      userID,
		Amount:      -amount,
		Kind:        models.TransactionKindPayment,
		Description: description,
	}, "")
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	return trans, wallet, nil
}

// Credit atomically increments the balance (and stars) and appends the
// ledger row. When params.ExternalRef is set and a row with that
// reference already exists, nothing is applied and the original row is
// returned: webhook retries must never double-credit.
func (repo *WalletRepositoryImpl) Credit(params *CreditParams) (*models.Transaction, *models.Wallet, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}

	defer tx.Rollback()

	if _, err := lockWallet(ctx, tx, params.UserID); err != nil {
		return nil, nil, err
	}

	if params.ExternalRef != "" {
		existing, found, err := findLedgerRowByRef(ctx, tx, params.ExternalRef)
		if err != nil {
			return nil, nil, err
		}
		if found {
			wallet, err := selectWallet(ctx, tx, params.UserID)
			if err != nil {
				return nil, nil, err
			}
			if err := tx.Commit(); err != nil {
				return nil, nil, err
			}
			return existing, wallet, nil
		}
	}

	wallet, err := applyToWallet(ctx, tx, params.UserID, params.Amount, params.Stars)
	if err != nil {
		return nil, nil, err
	}

	trans, err := insertLedgerRow(ctx, tx, &models.Transaction{
		UserID:      params.UserID,
		Amount:      params.Amount,
		Kind:        params.Kind,
		Description: params.Description,
	}, params.ExternalRef)
	if err != nil {
		// backstop: a concurrent credit with the same reference won the
		// unique index race
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return repo.findCommitted(params.UserID, params.ExternalRef)
		}
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	return trans, wallet, nil
}

func (repo *WalletRepositoryImpl) findCommitted(userID, externalRef string) (*models.Transaction, *models.Wallet, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var trans models.Transaction

	query := `
		SELECT id, user_id, amount, kind, description, session_id, external_ref, created_at
		FROM wallet_transactions WHERE external_ref=$1`

	if err := repo.db.GetContext(ctx, &trans, query, externalRef); err != nil {
		return nil, nil, err
	}

	wallet, err := repo.GetOrCreate(userID)
	if err != nil {
		return nil, nil, err
	}

	return &trans, wallet, nil
}

// lockWallet takes the per-user row lock, creating the wallet first if
// it does not exist yet. All balance mutations serialize on this lock.
func lockWallet(ctx context.Context, tx *sqlx.Tx, userID string) (*models.Wallet, error) {
	query := `
		INSERT INTO wallets (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := tx.ExecContext(ctx, query, userID); err != nil {
		return nil, err
	}

	var wallet models.Wallet

	query = `
		SELECT id, user_id, balance, total_stars, version, created_at, updated_at
		FROM wallets WHERE user_id=$1 FOR UPDATE`

	if err := tx.GetContext(ctx, &wallet, query, userID); err != nil {
		return nil, err
	}

	return &wallet, nil
}

func selectWallet(ctx context.Context, tx *sqlx.Tx, userID string) (*models.Wallet, error) {
	var wallet models.Wallet

	query := `
		SELECT id, user_id, balance, total_stars, version, created_at, updated_at
		FROM wallets WHERE user_id=$1`

	if err := tx.GetContext(ctx, &wallet, query, userID); err != nil {
		return nil, err
	}

	return &wallet, nil
}

func applyToWallet(ctx context.Context, tx *sqlx.Tx, userID string, delta money.Cents, stars int) (*models.Wallet, error) {
	var wallet models.Wallet

	query := `
		UPDATE wallets
		SET balance=balance+$1, total_stars=total_stars+$2, version=version+1, updated_at=now()
		WHERE user_id=$3
		RETURNING id, user_id, balance, total_stars, version, created_at, updated_at`

	err := tx.QueryRowxContext(ctx, query, delta, stars, userID).StructScan(&wallet)
	if err != nil {
		return nil, err
	}

	return &wallet, nil
}

func insertLedgerRow(ctx context.Context, tx *sqlx.Tx, trans *models.Transaction, externalRef string) (*models.Transaction, error) {
	var inserted models.Transaction

	query := `
		INSERT INTO wallet_transactions (user_id, amount, kind, description, session_id, external_ref)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING id, user_id, amount, kind, description, session_id, external_ref, created_at`

	err := tx.QueryRowxContext(ctx, query,
		trans.UserID,
		trans.Amount,
		trans.Kind,
		trans.Description,
		trans.SessionID.String,
		externalRef,
	).StructScan(&inserted)
	if err != nil {
		return nil, err
	}

	return &inserted, nil
}

func findLedgerRowByRef(ctx context.Context, tx *sqlx.Tx, externalRef string) (*models.Transaction, bool, error) {
	var trans models.Transaction

	query := `
		SELECT id, user_id, amount, kind, description, session_id, external_ref, created_at
		FROM wallet_transactions WHERE external_ref=$1`

	err := tx.GetContext(ctx, &trans, query, externalRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &trans, true, nil
}
