package testutil

import (
	"context"

	"github.com/halonet/billing-engine/internal/domain/payment"
	ierr "github.com/halonet/billing-engine/internal/errors"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	store *InMemoryStore[*payment.ProcessedPayment]
}

// NewInMemoryPaymentStore creates a new in-memory processed-payment store
func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		store: NewInMemoryStore[*payment.ProcessedPayment](),
	}
}

func (s *InMemoryPaymentStore) MarkProcessed(ctx context.Context, p *payment.ProcessedPayment) error {
	copied := *p
	if err := s.store.Create(ctx, p.Reference, &copied); err != nil {
		return ierr.NewError("payment reference already processed").
			WithReportableDetails(map[string]interface{}{"reference": p.Reference}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryPaymentStore) IsProcessed(ctx context.Context, reference string) (bool, error) {
	_, err := s.store.Get(ctx, reference)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// Clear removes all records
func (s *InMemoryPaymentStore) Clear() {
	s.store.Clear()
}
