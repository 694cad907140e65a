package wallet

import (
	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/types"
	"github.com/shopspring/decimal"
)

// Transaction is an immutable wallet ledger entry. Entries are append-only
// and never mutated after creation; BalanceBefore/BalanceAfter snapshot the
// wallet around the mutation so audits need no replay.
type Transaction struct {
	ID                string                  `db:"id" json:"id"`
	ClientID          string                  `db:"client_id" json:"client_id"`
	Type              types.TransactionType   `db:"type" json:"type"`
	Amount            decimal.Decimal         `db:"amount" json:"amount"`
	BalanceBefore     decimal.Decimal         `db:"balance_before" json:"balance_before"`
	BalanceAfter      decimal.Decimal         `db:"balance_after" json:"balance_after"`
	Reason            types.TransactionReason `db:"reason" json:"reason"`
	Description       string                  `db:"description" json:"description"`
	ExternalReference *string                 `db:"external_reference" json:"external_reference,omitempty"`
	PaymentMethod     types.PaymentMethod     `db:"payment_method" json:"payment_method,omitempty"`
	types.BaseModel
}

// Validate validates the ledger entry before it is appended
func (t *Transaction) Validate() error {
	if t.ClientID == "" {
		return ierr.NewError("client id is required").Mark(ierr.ErrValidation)
	}
	if t.Type != types.TransactionTypeCredit && t.Type != types.TransactionTypeDebit {
		return ierr.NewErrorf("invalid transaction type: %s", t.Type).Mark(ierr.ErrValidation)
	}
	if !t.Amount.IsPositive() {
		return ierr.NewError("transaction amount must be positive").
			WithReportableDetails(map[string]interface{}{
				"client_id": t.ClientID,
				"amount":    t.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
