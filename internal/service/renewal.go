package service

import (
	"context"
	"fmt"
	"time"

	"github.com/halonet/billing-engine/internal/domain/client"
	"github.com/halonet/billing-engine/internal/domain/wallet"
	"github.com/halonet/billing-engine/internal/notification"
	"github.com/halonet/billing-engine/internal/types"
	"github.com/shopspring/decimal"
)

// RenewalAction is the tagged outcome of a renewal decision
type RenewalAction struct {
	Type           types.RenewalActionType
	Message        string
	Amount         decimal.Decimal
	NewExpiryDate  *time.Time
	AffordableDays int
}

// RenewalDecisionEngine decides and applies subscription renewals. Decide is
// pure; Apply performs the state mutation and notification dispatch. The
// engine is re-entrant: it operates purely on the analysis passed in, never
// on cached results from a previous evaluation.
type RenewalDecisionEngine interface {
	// Decide evaluates the renewal policy against a wallet analysis
	Decide(analysis *WalletAnalysis) *RenewalAction

	// Apply performs the mutation for the action. A failed mutation degrades
	// to a top-up-required action, never to silent success; the returned
	// action is the one that actually took effect.
	Apply(ctx context.Context, action *RenewalAction, analysis *WalletAnalysis) (*RenewalAction, error)

	// ApplySuspension suspends the client at expiry and dispatches the
	// disconnection notification
	ApplySuspension(ctx context.Context, analysis *WalletAnalysis) error
}

type renewalDecisionEngine struct {
	ServiceParams
}

// NewRenewalDecisionEngine creates a new renewal decision engine
func NewRenewalDecisionEngine(params ServiceParams) RenewalDecisionEngine {
	return &renewalDecisionEngine{ServiceParams: params}
}

// Decide applies the policy in strict order: full renewal, then prorated
// partial, then top-up required. The order is the tie-break contract.
func (e *renewalDecisionEngine) Decide(analysis *WalletAnalysis) *RenewalAction {
	periodDays := e.Config.Billing.RenewalPeriodDays
	now := e.now()

	if analysis.CanAffordRenewal {
		expiry := now.AddDate(0, 0, periodDays)
		return &RenewalAction{
			Type:          types.RenewalActionAutoRenew,
			Message:       fmt.Sprintf("Subscription renewed for %d days on %s plan", periodDays, analysis.PackageName),
			Amount:        analysis.RequiredAmount,
			NewExpiryDate: &expiry,
		}
	}

	if analysis.CurrentBalance.IsPositive() {
		// Floor: never grant a fractional day the balance cannot cover
		affordableDays := int(analysis.CurrentBalance.
			Div(analysis.RequiredAmount).
			Mul(decimal.NewFromInt(int64(periodDays))).
			Floor().IntPart())

		if affordableDays >= e.Config.Billing.MinPartialRenewalDays {
			expiry := now.AddDate(0, 0, affordableDays)
			return &RenewalAction{
				Type: types.RenewalActionPartialPayment,
				Message: fmt.Sprintf("Partial renewal: %d days granted, top up %s to complete a full period",
					affordableDays, analysis.Shortfall.StringFixed(2)),
				Amount:         analysis.CurrentBalance,
				NewExpiryDate:  &expiry,
				AffordableDays: affordableDays,
			}
		}
	}

	return e.topUpRequired(analysis)
}

func (e *renewalDecisionEngine) topUpRequired(analysis *WalletAnalysis) *RenewalAction {
	return &RenewalAction{
		Type: types.RenewalActionTopUpRequired,
		Message: fmt.Sprintf("Top up %s to renew your %s plan",
			analysis.Shortfall.StringFixed(2), analysis.PackageName),
		Amount: analysis.Shortfall,
	}
}

func (e *renewalDecisionEngine) Apply(ctx context.Context, action *RenewalAction, analysis *WalletAnalysis) (*RenewalAction, error) {
	switch action.Type {
	case types.RenewalActionAutoRenew:
		if err := e.applyRenewal(ctx, action, analysis, types.TransactionReasonRenewal); err != nil {
			return e.degradeToTopUp(ctx, analysis, err)
		}
		e.dispatch(ctx, notification.NewRenewalSuccess(
			analysis.ClientID, action.Amount, *action.NewExpiryDate, analysis.PackageName))
		return action, nil

	case types.RenewalActionPartialPayment:
		if err := e.applyRenewal(ctx, action, analysis, types.TransactionReasonPartialRenewal); err != nil {
			return e.degradeToTopUp(ctx, analysis, err)
		}
		e.dispatch(ctx, notification.NewPartialRenewal(
			analysis.ClientID, action.Amount, action.AffordableDays,
			analysis.Shortfall, *action.NewExpiryDate))
		return action, nil

	case types.RenewalActionTopUpRequired:
		e.dispatch(ctx, notification.NewUrgentTopUp(
			analysis.ClientID, action.Amount, analysis.PackageName))
		return action, nil

	default:
		e.Logger.Warnw("unhandled renewal action", "type", action.Type, "client_id", analysis.ClientID)
		return action, nil
	}
}

// applyRenewal moves the balance debit, expiry advance and ledger append as
// one atomic unit.
func (e *renewalDecisionEngine) applyRenewal(ctx context.Context, action *RenewalAction, analysis *WalletAnalysis, reason types.TransactionReason) error {
	return e.DB.WithTx(ctx, func(ctx context.Context) error {
		update := client.RenewalUpdate{
			ClientID:    analysis.ClientID,
			DebitAmount: action.Amount,
			NewEndDate:  *action.NewExpiryDate,
			NewStatus:   types.ClientStatusActive,
		}
		if err := e.ClientRepo.ApplyRenewal(ctx, update); err != nil {
			return err
		}

		txn := &wallet.Transaction{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WALLET_TRANSACTION),
			ClientID:      analysis.ClientID,
			Type:          types.TransactionTypeDebit,
			Amount:        action.Amount,
			BalanceBefore: analysis.CurrentBalance,
			BalanceAfter:  analysis.CurrentBalance.Sub(action.Amount),
			Reason:        reason,
			Description:   action.Message,
			BaseModel:     types.GetDefaultBaseModel(ctx),
		}
		return e.WalletRepo.Create(ctx, txn)
	})
}

// degradeToTopUp converts a failed renewal mutation into a top-up-required
// action so the client is asked for payment instead of being left in an
// undefined state.
func (e *renewalDecisionEngine) degradeToTopUp(ctx context.Context, analysis *WalletAnalysis, cause error) (*RenewalAction, error) {
	e.Logger.Errorw("renewal mutation failed, degrading to top-up request",
		"client_id", analysis.ClientID,
		"error", cause)

	degraded := e.topUpRequired(analysis)
	e.dispatch(ctx, notification.NewUrgentTopUp(
		analysis.ClientID, degraded.Amount, analysis.PackageName))
	return degraded, nil
}

func (e *renewalDecisionEngine) ApplySuspension(ctx context.Context, analysis *WalletAnalysis) error {
	if err := e.ClientRepo.UpdateStatus(ctx, analysis.ClientID, types.ClientStatusSuspended); err != nil {
		return err
	}

	if e.Provisioner != nil {
		if err := e.Provisioner.SuspendClient(ctx, analysis.ClientID); err != nil {
			e.Logger.Errorw("provisioning suspend failed",
				"client_id", analysis.ClientID,
				"error", err)
		}
	}

	e.dispatch(ctx, notification.NewServiceDisconnected(
		analysis.ClientID, analysis.Shortfall, analysis.PackageName))
	return nil
}

func (e *renewalDecisionEngine) dispatch(ctx context.Context, n *notification.Notification) {
	if err := e.Notifier.Publish(ctx, n); err != nil {
		e.Logger.Errorw("notification dispatch failed",
			"client_id", n.ClientID,
			"type", n.Type,
			"error", err)
	}
}
