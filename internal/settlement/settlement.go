// Package settlement is the orchestrator for every wallet mutation:
// spends against the pricing catalog, top-ups through the payment
// gateway, refunds, and the confirmation of asynchronous provider
// outcomes. The engine itself is stateless; atomicity lives in the
// ledger store's per-wallet row locks, which are never held across an
// external network call.
package settlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/askielabs/askie-api/internal/catalog"
	"github.com/askielabs/askie-api/internal/gateway"
	"github.com/askielabs/askie-api/internal/helper"
	"github.com/askielabs/askie-api/internal/metrics"
	"github.com/askielabs/askie-api/internal/models"
	"github.com/askielabs/askie-api/internal/money"
	"github.com/askielabs/askie-api/internal/repository"
	"github.com/askielabs/askie-api/internal/smtp"
)

var (
	ErrInsufficientFunds   = repository.ErrInsufficientFunds
	ErrUnknownTier         = catalog.ErrUnknownTier
	ErrAlreadySettled      = repository.ErrAlreadySettled
	ErrPaymentNotFound     = repository.ErrPaymentNotFound
	ErrBelowMinimum        = errors.New("amount is below the minimum top-up")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrUnsupportedProvider = gateway.ErrUnsupportedProvider
)

// PaymentInitiator is the slice of the gateway the engine needs.
type PaymentInitiator interface {
	Supports(provider string) bool
	Initiate(ctx context.Context, provider string, req *gateway.InitiateRequest) (*gateway.InitiateResult, error)
}

// WalletCache is the slice of the redis cache the engine needs. A nil
// cache disables caching without changing behavior.
type WalletCache interface {
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, userID string) error
}

type Engine struct {
	Wallets      repository.WalletRepository
	Transactions repository.TransactionRepository
	Payments     repository.PaymentRepository
	Audit        repository.AuditRepository
	Gateway      PaymentInitiator
	Cache        WalletCache
	Helper       *helper.HelperRepository
	Logger       *slog.Logger
	MinimumTopUp money.Cents

	// AlertEmail receives reconciliation alerts when a provider reports
	// success for a payment we already settled as failed. Empty disables
	// the email; the audit row is written regardless.
	Mailer     smtp.MailerInterface
	AlertEmail string
}

func New(engine *Engine) *Engine {
	if engine.MinimumTopUp == 0 {
		engine.MinimumTopUp = money.FromRand(10)
	}
	return engine
}

type SpendResult struct {
	TransactionID string
	NewBalance    money.Cents
	StarsEarned   int
	Cost          money.Cents
}

// ConfirmOutcome is the normalized terminal result a provider reported
// for a pending payment.
type ConfirmOutcome struct {
	Success       bool
	FailureReason string
}

// Balance returns the wallet snapshot, reading through the cache. The
// UI never owns the balance; it renders whatever this returns.
func (e *Engine) Balance(ctx context.Context, userID string) (*models.Wallet, error) {
	if e.Cache != nil {
		cached, err := e.Cache.GetWallet(ctx, userID)
		if err != nil {
			e.Logger.Warn("wallet cache read failed", "user_id", userID, "error", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	wallet, err := e.Wallets.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}

	e.cacheWallet(ctx, wallet)

	return wallet, nil
}

// RequestSpend prices the tier, debits the wallet and awards stars per
// the tier's policy, all in one atomic ledger operation. The balance
// check and the debit share the same row lock, so concurrent spends
// cannot both pass on one tier's worth of balance.
func (e *Engine) RequestSpend(ctx context.Context, userID, tierID string) (*SpendResult, error) {
	tier, err := catalog.Get(tierID)
	if err != nil {
		metrics.SpendsTotal.WithLabelValues(tierID, "unknown_tier").Inc()
		return nil, err
	}

	stars := tier.Stars.Draw()

	trans, wallet, err := e.Wallets.Debit(userID, tier.Price, "Homework answer: "+tier.Name, stars)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			metrics.SpendsTotal.WithLabelValues(tierID, "insufficient_funds").Inc()
		} else {
			metrics.SpendsTotal.WithLabelValues(tierID, "error").Inc()
		}
		return nil, err
	}

	metrics.SpendsTotal.WithLabelValues(tierID, "ok").Inc()
	e.invalidateWallet(ctx, userID)
	e.cacheWallet(ctx, wallet)

	e.auditInBackground(&models.AuditLog{
		UserID:      userID,
		Entity:      models.AuditEntitySpend,
		EntityID:    trans.ID,
		Description: models.AuditSpendCommittedDescription,
	})

	return &SpendResult{
		TransactionID: trans.ID,
		NewBalance:    wallet.Balance,
		StarsEarned:   stars,
		Cost:          tier.Price,
	}, nil
}

// RefundSpend credits the spend amount back after a downstream failure
// (the answer service erred once the debit had committed). The refund
// is keyed on the original debit transaction, so retrying a failed
// request path cannot refund twice.
func (e *Engine) RefundSpend(ctx context.Context, userID string, amount money.Cents, debitTransactionID, reason string) (*models.Transaction, error) {
	trans, wallet, err := e.Wallets.Credit(&repository.CreditParams{
		UserID:      userID,
		Amount:      amount,
		Kind:        models.TransactionKindRefund,
		Description: reason,
		ExternalRef: "refund:" + debitTransactionID,
	})
	if err != nil {
		return nil, err
	}

	e.invalidateWallet(ctx, userID)
	e.cacheWallet(ctx, wallet)

	e.auditInBackground(&models.AuditLog{
		UserID:      userID,
		Entity:      models.AuditEntitySpend,
		EntityID:    debitTransactionID,
		Description: models.AuditSpendRefundedDescription,
	})

	return trans, nil
}

// InitiateTopUp validates the amount, records the pending payment and
// starts the external provider flow. It returns as soon as the provider
// has acknowledged the request; the credit happens later, when the
// confirmation event arrives.
func (e *Engine) InitiateTopUp(ctx context.Context, userID string, amount money.Cents, method, provider, account string) (*models.PendingPayment, string, error) {
	if amount < e.MinimumTopUp {
		return nil, "", ErrBelowMinimum
	}

	if e.Gateway == nil || !e.Gateway.Supports(provider) {
		return nil, "", ErrUnsupportedProvider
	}

	payment, err := e.Payments.Insert(&models.PendingPayment{
		UserID:   userID,
		Amount:   amount,
		Method:   method,
		Provider: provider,
	})
	if err != nil {
		return nil, "", err
	}

	// The external call happens with no wallet lock held; nothing has
	// been credited yet.
	result, err := e.Gateway.Initiate(ctx, provider, &gateway.InitiateRequest{
		PaymentID: payment.ID,
		Amount:    amount,
		Account:   account,
	})
	if err != nil {
		return nil, "", err
	}

	if !result.Accepted {
		metrics.TopUpsTotal.WithLabelValues(provider, "rejected").Inc()
		failed, err := e.Payments.MarkSettled(payment.ID, models.PaymentStatusFailed, result.Message)
		if err != nil {
			return nil, "", err
		}
		return failed, result.Message, ErrProviderUnavailable
	}

	if err := e.Payments.MarkPending(payment.ID, result.ProviderRequestID); err != nil {
		return nil, "", err
	}
	payment.Status = models.PaymentStatusPending

	metrics.TopUpsTotal.WithLabelValues(provider, "initiated").Inc()

	e.auditInBackground(&models.AuditLog{
		UserID:      userID,
		Entity:      models.AuditEntityTopUp,
		EntityID:    payment.ID,
		Description: models.AuditTopUpInitiatedDescription,
	})

	return payment, result.Message, nil
}

// ConfirmTopUp settles a pending payment exactly once. Success credits
// the wallet using the payment id as the idempotency reference, so a
// redelivered webhook can never double-credit. A success arriving for a
// payment that already failed locally (for instance after a user
// cancel) is not credited: money may have moved on the provider side,
// so the event is logged for manual reconciliation instead.
func (e *Engine) ConfirmTopUp(ctx context.Context, paymentID string, outcome *ConfirmOutcome) (*models.Transaction, error) {
	payment, found, err := e.Payments.GetOne(paymentID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrPaymentNotFound
	}

	if payment.Settled() {
		if outcome.Success && payment.Status == models.PaymentStatusFailed {
			// money may have moved on the provider side; this needs a
			// human, not an automatic credit
			e.Logger.Warn("late provider success for settled payment, flagging for manual reconciliation",
				"payment_id", payment.ID, "provider", payment.Provider)
			e.auditInBackground(&models.AuditLog{
				UserID:      payment.UserID,
				Entity:      models.AuditEntityPayment,
				EntityID:    payment.ID,
				Description: models.AuditPaymentIgnoredDescription,
			})
			e.sendReconciliationAlert(payment)
		}
		return nil, ErrAlreadySettled
	}

	if !outcome.Success {
		if _, err := e.Payments.MarkSettled(payment.ID, models.PaymentStatusFailed, outcome.FailureReason); err != nil {
			return nil, err
		}
		metrics.TopUpsTotal.WithLabelValues(payment.Provider, "failed").Inc()
		e.auditInBackground(&models.AuditLog{
			UserID:      payment.UserID,
			Entity:      models.AuditEntityPayment,
			EntityID:    payment.ID,
			Description: models.AuditPaymentFailedDescription,
		})
		return nil, nil
	}

	if _, err := e.Payments.MarkSettled(payment.ID, models.PaymentStatusSuccess, ""); err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			// a concurrent delivery won the compare-and-set
			return nil, ErrAlreadySettled
		}
		return nil, err
	}

	trans, wallet, err := e.Wallets.Credit(&repository.CreditParams{
		UserID:      payment.UserID,
		Amount:      payment.Amount,
		Kind:        models.TransactionKindTopUp,
		Description: "Wallet top-up via " + payment.Provider,
		ExternalRef: payment.ID,
	})
	if err != nil {
		return nil, err
	}

	metrics.TopUpsTotal.WithLabelValues(payment.Provider, "settled").Inc()
	metrics.SettledAmountTotal.WithLabelValues(payment.Provider).Add(float64(payment.Amount))

	e.invalidateWallet(ctx, payment.UserID)
	e.cacheWallet(ctx, wallet)

	e.auditInBackground(&models.AuditLog{
		UserID:      payment.UserID,
		Entity:      models.AuditEntityPayment,
		EntityID:    payment.ID,
		Description: models.AuditPaymentSettledDescription,
	})

	return trans, nil
}

// CancelTopUp fails a non-terminal payment at the user's request. The
// provider side is not called; a confirmation that later arrives for
// this payment goes down the manual-reconciliation path.
func (e *Engine) CancelTopUp(ctx context.Context, userID, paymentID string) (*models.PendingPayment, error) {
	payment, found, err := e.Payments.GetOne(paymentID)
	if err != nil {
		return nil, err
	}
	if !found || payment.UserID != userID {
		return nil, ErrPaymentNotFound
	}

	cancelled, err := e.Payments.MarkSettled(paymentID, models.PaymentStatusFailed, "cancelled by user")
	if err != nil {
		return nil, err
	}

	e.auditInBackground(&models.AuditLog{
		UserID:      userID,
		Entity:      models.AuditEntityTopUp,
		EntityID:    paymentID,
		Description: models.AuditTopUpCancelledDescription,
	})

	return cancelled, nil
}

// SweepStalePayments fails payments stuck in a non-terminal state past
// the window, so wallet state cannot drift from the provider's ledger
// indefinitely. Returns how many were swept.
func (e *Engine) SweepStalePayments(ctx context.Context, window time.Duration) (int, error) {
	stale, err := e.Payments.FindStale(time.Now().Add(-window))
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, payment := range stale {
		if _, err := e.Payments.MarkSettled(payment.ID, models.PaymentStatusFailed, "timed out waiting for provider confirmation"); err != nil {
			if errors.Is(err, ErrAlreadySettled) {
				continue
			}
			return swept, err
		}
		swept++
		metrics.StalePaymentsSwept.Inc()

		e.auditInBackground(&models.AuditLog{
			UserID:      payment.UserID,
			Entity:      models.AuditEntityPayment,
			EntityID:    payment.ID,
			Description: models.AuditPaymentSweptDescription,
		})
	}

	return swept, nil
}

// Reconcile verifies the ledger invariant for one user: the wallet
// balance must equal the signed sum of their transactions.
func (e *Engine) Reconcile(ctx context.Context, userID string) (bool, money.Cents, money.Cents, error) {
	wallet, err := e.Wallets.GetOrCreate(userID)
	if err != nil {
		return false, 0, 0, err
	}

	sum, err := e.Transactions.SumByUserID(userID)
	if err != nil {
		return false, 0, 0, err
	}

	if wallet.Balance != sum {
		e.Logger.Error("ledger reconciliation mismatch",
			"user_id", userID, "balance", wallet.Balance, "transaction_sum", sum)
	}

	return wallet.Balance == sum, wallet.Balance, sum, nil
}

func (e *Engine) cacheWallet(ctx context.Context, wallet *models.Wallet) {
	if e.Cache == nil {
		return
	}
	if err := e.Cache.SetWallet(ctx, wallet); err != nil {
		e.Logger.Warn("wallet cache write failed", "user_id", wallet.UserID, "error", err)
	}
}

func (e *Engine) invalidateWallet(ctx context.Context, userID string) {
	if e.Cache == nil {
		return
	}
	if err := e.Cache.InvalidateWallet(ctx, userID); err != nil {
		e.Logger.Warn("wallet cache invalidation failed", "user_id", userID, "error", err)
	}
}

func (e *Engine) sendReconciliationAlert(payment *models.PendingPayment) {
	if e.Mailer == nil || e.AlertEmail == "" || e.Helper == nil {
		return
	}

	e.Helper.BackgroundTask(func() error {
		data := e.Helper.NewEmailData()
		data["PaymentID"] = payment.ID
		data["UserID"] = payment.UserID
		data["Provider"] = payment.Provider
		data["Amount"] = payment.Amount
		data["LocalStatus"] = payment.Status

		return e.Mailer.Send(e.AlertEmail, data, "reconciliation-alert.tmpl")
	})
}

func (e *Engine) auditInBackground(log *models.AuditLog) {
	if e.Audit == nil {
		return
	}

	insert := func() error {
		_, err := e.Audit.Insert(log)
		return err
	}

	if e.Helper != nil {
		e.Helper.BackgroundTask(insert)
		return
	}

	if err := insert(); err != nil {
		e.Logger.Error("audit insert failed", "error", err)
	}
}
