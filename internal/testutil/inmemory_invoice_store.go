package testutil

import (
	"context"

	"github.com/halonet/billing-engine/internal/domain/invoice"
	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/types"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	store *InMemoryStore[*invoice.Invoice]
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		store: NewInMemoryStore[*invoice.Invoice](),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	copied := *inv
	if inv.PaymentReference != nil {
		ref := *inv.PaymentReference
		copied.PaymentReference = &ref
	}
	if inv.PaidAt != nil {
		t := *inv.PaidAt
		copied.PaidAt = &t
	}
	return &copied
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if err := inv.Validate(); err != nil {
		return err
	}
	return s.store.Create(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("invoice not found").
			WithReportableDetails(map[string]interface{}{"invoice_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) GetPendingByBillingReference(ctx context.Context, billingReference string) (*invoice.Invoice, error) {
	matches := s.store.List(ctx, func(inv *invoice.Invoice) bool {
		return inv.BillingReference == billingReference && inv.InvoiceStatus == types.InvoiceStatusPending
	})
	if len(matches) == 0 {
		return nil, ierr.NewError("no pending invoice for billing reference").
			WithReportableDetails(map[string]interface{}{
				"billing_reference": billingReference,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(matches[0]), nil
}

func (s *InMemoryInvoiceStore) MarkPaid(ctx context.Context, params invoice.MarkPaidParams) error {
	inv, err := s.store.Get(ctx, params.InvoiceID)
	if err != nil {
		return ierr.NewError("invoice not found").Mark(ierr.ErrNotFound)
	}
	if inv.InvoiceStatus != types.InvoiceStatusPending {
		return ierr.NewError("invoice is not pending").
			WithReportableDetails(map[string]interface{}{"invoice_id": params.InvoiceID}).
			Mark(ierr.ErrNotFound)
	}

	updated := copyInvoice(inv)
	updated.InvoiceStatus = types.InvoiceStatusPaid
	updated.PaymentMethod = params.PaymentMethod
	ref := params.PaymentReference
	updated.PaymentReference = &ref
	paidAt := params.PaidAt
	updated.PaidAt = &paidAt
	return s.store.Update(ctx, params.InvoiceID, updated)
}

// Clear removes all invoices
func (s *InMemoryInvoiceStore) Clear() {
	s.store.Clear()
}
