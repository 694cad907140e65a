package invoice

import (
	"time"

	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is an installation invoice issued at client onboarding. The
// ingestion worker matches gateway payments against its billing reference
// and marks it paid, which triggers client activation.
type Invoice struct {
	ID               string              `db:"id" json:"id"`
	ClientID         string              `db:"client_id" json:"client_id"`
	Amount           decimal.Decimal     `db:"amount" json:"amount"`
	InvoiceStatus    types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`
	BillingReference string              `db:"billing_reference" json:"billing_reference"`
	PaymentMethod    types.PaymentMethod `db:"payment_method" json:"payment_method,omitempty"`
	PaymentReference *string             `db:"payment_reference" json:"payment_reference,omitempty"`
	PaidAt           *time.Time          `db:"paid_at" json:"paid_at,omitempty"`
	types.BaseModel
}

// Validate validates the invoice
func (i *Invoice) Validate() error {
	if i.ClientID == "" {
		return ierr.NewError("client id is required").Mark(ierr.ErrValidation)
	}
	if i.BillingReference == "" {
		return ierr.NewError("billing reference is required").Mark(ierr.ErrValidation)
	}
	if !i.Amount.IsPositive() {
		return ierr.NewError("invoice amount must be positive").
			WithReportableDetails(map[string]interface{}{
				"invoice_id": i.ID,
				"amount":     i.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsPending reports whether the invoice still awaits payment
func (i *Invoice) IsPending() bool {
	return i.InvoiceStatus == types.InvoiceStatusPending
}
