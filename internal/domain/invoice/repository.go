package invoice

import (
	"context"
	"time"

	"github.com/halonet/billing-engine/internal/types"
)

// MarkPaidParams carries the gateway details recorded when an invoice is paid
type MarkPaidParams struct {
	InvoiceID        string
	PaymentMethod    types.PaymentMethod
	PaymentReference string
	PaidAt           time.Time
}

// Repository defines persistence operations for installation invoices
type Repository interface {
	// Create persists a new invoice
	Create(ctx context.Context, inv *Invoice) error

	// Get retrieves an invoice by id
	Get(ctx context.Context, id string) (*Invoice, error)

	// GetPendingByBillingReference locates the pending invoice a gateway
	// payment's billing reference points at
	GetPendingByBillingReference(ctx context.Context, billingReference string) (*Invoice, error)

	// MarkPaid transitions a pending invoice to paid with payment details
	MarkPaid(ctx context.Context, params MarkPaidParams) error
}
