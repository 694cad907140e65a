package service

import (
	"context"
	"time"

	"github.com/halonet/billing-engine/internal/cache"
	"github.com/halonet/billing-engine/internal/domain/invoice"
	"github.com/halonet/billing-engine/internal/domain/payment"
	"github.com/halonet/billing-engine/internal/domain/wallet"
	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/postgres"
	"github.com/halonet/billing-engine/internal/types"
)

func invoiceMarkPaid(invoiceID string, txn *payment.GatewayTransaction, paidAt time.Time) invoice.MarkPaidParams {
	return invoice.MarkPaidParams{
		InvoiceID:        invoiceID,
		PaymentMethod:    txn.Method,
		PaymentReference: txn.Reference,
		PaidAt:           paidAt,
	}
}

const processedRefCachePrefix = "processed_payment:"

// PaymentIngestionWorker polls the configured gateway providers for
// confirmed transactions over a trailing window, classifies each by intent,
// credits wallets and triggers immediate renewal re-evaluation. The trailing
// window observes the same transaction across consecutive ticks, so every
// reference passes through the processed-payment set before it has any
// effect; duplicates are a no-op, not an error.
type PaymentIngestionWorker interface {
	// Run blocks, polling until ctx is cancelled
	Run(ctx context.Context)

	// Tick performs a single poll of all providers
	Tick(ctx context.Context)
}

type paymentIngestionWorker struct {
	ServiceParams
	analyzer WalletAnalyzer
	engine   RenewalDecisionEngine
}

// NewPaymentIngestionWorker creates a new ingestion worker
func NewPaymentIngestionWorker(params ServiceParams, analyzer WalletAnalyzer, engine RenewalDecisionEngine) PaymentIngestionWorker {
	return &paymentIngestionWorker{
		ServiceParams: params,
		analyzer:      analyzer,
		engine:        engine,
	}
}

func (w *paymentIngestionWorker) Run(ctx context.Context) {
	interval := w.Config.Billing.IngestionInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// ctx only decides loop exit; an in-flight poll always completes so a
	// half-processed batch is never abandoned to cancellation
	tickCtx := context.WithoutCancel(ctx)

	w.Logger.Infow("payment ingestion worker started", "interval", interval)
	w.Tick(tickCtx)

	for {
		select {
		case <-ctx.Done():
			w.Logger.Infow("payment ingestion worker stopped")
			return
		case <-ticker.C:
			w.Tick(tickCtx)
		}
	}
}

// Tick polls every provider over the trailing window. A failing provider is
// logged and skipped; the others still run.
func (w *paymentIngestionWorker) Tick(ctx context.Context) {
	since := w.now().Add(-w.Config.Billing.IngestionTrailingWindow)

	for _, provider := range w.GatewayProviders {
		txns, err := provider.ListConfirmedTransactions(ctx, since)
		if err != nil {
			w.Logger.Errorw("gateway poll failed",
				"provider", provider.Name(),
				"error", err)
			continue
		}

		for _, txn := range txns {
			if err := w.processTransaction(ctx, txn); err != nil {
				w.Logger.Errorw("payment processing failed",
					"provider", provider.Name(),
					"reference", txn.Reference,
					"error", err)
			}
		}
	}
}

func (w *paymentIngestionWorker) processTransaction(ctx context.Context, txn *payment.GatewayTransaction) error {
	// Hot-path dedup before touching the database
	if w.Cache != nil {
		if _, seen := w.Cache.Get(ctx, processedRefCachePrefix+txn.Reference); seen {
			return nil
		}
	}

	processed, err := w.PaymentRepo.IsProcessed(ctx, txn.Reference)
	if err != nil {
		return err
	}
	if processed {
		w.rememberReference(ctx, txn.Reference)
		return nil
	}

	intent := txn.Intent()

	err = w.DB.WithTx(ctx, func(ctx context.Context) error {
		// Mark first: the unique reference constraint is the authoritative
		// exactly-once gate; a concurrent tick loses the insert and skips
		markErr := w.PaymentRepo.MarkProcessed(ctx, &payment.ProcessedPayment{
			Reference:   txn.Reference,
			ClientID:    txn.ClientID,
			Amount:      txn.Amount,
			Method:      txn.Method,
			Intent:      intent,
			ProcessedAt: w.now(),
		})
		if markErr != nil {
			return markErr
		}

		switch intent {
		case types.PaymentIntentInstallation:
			return w.applyInstallationPayment(ctx, txn)
		default:
			return w.applyWalletTopUp(ctx, txn)
		}
	})
	if err != nil {
		if ierr.IsAlreadyExists(err) {
			w.rememberReference(ctx, txn.Reference)
			return nil
		}
		return err
	}

	w.rememberReference(ctx, txn.Reference)

	// A top-up can renew instantly instead of waiting for the next
	// scheduler tick
	if intent == types.PaymentIntentWalletTopUp {
		w.reevaluateRenewal(ctx, txn.ClientID)
	}
	return nil
}

// applyInstallationPayment marks the pending installation invoice paid and
// runs full client activation. A payment whose billing reference matches no
// pending invoice degrades to a wallet top-up rather than erroring.
func (w *paymentIngestionWorker) applyInstallationPayment(ctx context.Context, txn *payment.GatewayTransaction) error {
	inv, err := w.InvoiceRepo.GetPendingByBillingReference(ctx, txn.BillingReference)
	if err != nil {
		if ierr.IsNotFound(err) {
			w.Logger.Warnw("installation payment matched no pending invoice, crediting wallet instead",
				"reference", txn.Reference,
				"billing_reference", txn.BillingReference)
			return w.applyWalletTopUp(ctx, txn)
		}
		return err
	}

	if err := w.InvoiceRepo.MarkPaid(ctx, invoiceMarkPaid(inv.ID, txn, w.now())); err != nil {
		return err
	}

	if err := w.ClientRepo.UpdateStatus(ctx, inv.ClientID, types.ClientStatusActive); err != nil {
		return err
	}

	// Provisioning is an external collaborator; a failure here is logged
	// and retried out of band rather than rolling back the payment
	if w.Provisioner != nil {
		if err := w.Provisioner.ActivateClient(ctx, inv.ClientID); err != nil {
			w.Logger.Errorw("client activation failed after installation payment",
				"client_id", inv.ClientID,
				"error", err)
		}
	}

	w.Logger.Infow("installation invoice paid, client activated",
		"client_id", inv.ClientID,
		"invoice_id", inv.ID,
		"reference", txn.Reference)
	return nil
}

// applyWalletTopUp atomically credits the wallet and appends the credit
// ledger entry. Runs inside the processTransaction transaction; the wallet
// advisory lock serializes against a concurrent scheduler renewal so the
// ledger balance snapshots never record a stale read.
func (w *paymentIngestionWorker) applyWalletTopUp(ctx context.Context, txn *payment.GatewayTransaction) error {
	if err := w.DB.LockKey(ctx, postgres.WalletLockKey(txn.ClientID), 0); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to lock wallet for credit").
			Mark(ierr.ErrDatabase)
	}

	// Ledger backstop: even if the processed set was purged, a reference
	// already present in the ledger is never credited twice
	exists, err := w.WalletRepo.HasExternalReference(ctx, txn.Reference)
	if err != nil {
		return err
	}
	if exists {
		w.Logger.Warnw("gateway reference already in ledger, skipping credit",
			"reference", txn.Reference)
		return nil
	}

	c, err := w.ClientRepo.Get(ctx, txn.ClientID)
	if err != nil {
		return err
	}

	if err := w.ClientRepo.CreditBalance(ctx, txn.ClientID, txn.Amount); err != nil {
		return err
	}

	ref := txn.Reference
	entry := &wallet.Transaction{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WALLET_TRANSACTION),
		ClientID:          txn.ClientID,
		Type:              types.TransactionTypeCredit,
		Amount:            txn.Amount,
		BalanceBefore:     c.WalletBalance,
		BalanceAfter:      c.WalletBalance.Add(txn.Amount),
		Reason:            types.TransactionReasonTopUp,
		Description:       "Wallet top-up via " + string(txn.Method),
		ExternalReference: &ref,
		PaymentMethod:     txn.Method,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
	if err := w.WalletRepo.Create(ctx, entry); err != nil {
		return err
	}

	w.Logger.Infow("wallet credited",
		"client_id", txn.ClientID,
		"amount", txn.Amount,
		"reference", txn.Reference)
	return nil
}

// reevaluateRenewal re-runs the decision engine right after a credit. Only a
// full renewal is applied here; partial renewals stay checkpoint-driven so a
// mid-cycle top-up can never shorten a running subscription.
func (w *paymentIngestionWorker) reevaluateRenewal(ctx context.Context, clientID string) {
	analysis, err := w.analyzer.Analyze(ctx, clientID)
	if err != nil {
		w.Logger.Errorw("post-top-up analysis failed", "client_id", clientID, "error", err)
		return
	}

	action := w.engine.Decide(analysis)
	if action.Type != types.RenewalActionAutoRenew {
		w.Logger.Debugw("top-up does not cover full renewal yet",
			"client_id", clientID,
			"shortfall", analysis.Shortfall)
		return
	}

	if _, err := w.engine.Apply(ctx, action, analysis); err != nil {
		w.Logger.Errorw("instant renewal after top-up failed",
			"client_id", clientID,
			"error", err)
	}
}

func (w *paymentIngestionWorker) rememberReference(ctx context.Context, reference string) {
	if w.Cache != nil {
		w.Cache.Set(ctx, processedRefCachePrefix+reference, true, cache.ExpiryDefaultInMemory)
	}
}
