package testutil

import (
	"context"
	"sort"

	"github.com/halonet/billing-engine/internal/domain/wallet"
)

// InMemoryWalletStore implements wallet.Repository
type InMemoryWalletStore struct {
	store *InMemoryStore[*wallet.Transaction]
}

// NewInMemoryWalletStore creates a new in-memory wallet ledger store
func NewInMemoryWalletStore() *InMemoryWalletStore {
	return &InMemoryWalletStore{
		store: NewInMemoryStore[*wallet.Transaction](),
	}
}

func copyTransaction(t *wallet.Transaction) *wallet.Transaction {
	if t == nil {
		return nil
	}
	copied := *t
	if t.ExternalReference != nil {
		ref := *t.ExternalReference
		copied.ExternalReference = &ref
	}
	return &copied
}

func (s *InMemoryWalletStore) Create(ctx context.Context, txn *wallet.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}
	return s.store.Create(ctx, txn.ID, copyTransaction(txn))
}

func (s *InMemoryWalletStore) ListByClient(ctx context.Context, clientID string, limit int) ([]*wallet.Transaction, error) {
	txns := s.store.List(ctx, func(t *wallet.Transaction) bool {
		return t.ClientID == clientID
	})

	out := make([]*wallet.Transaction, len(txns))
	for i, t := range txns {
		out[i] = copyTransaction(t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryWalletStore) HasExternalReference(ctx context.Context, reference string) (bool, error) {
	matches := s.store.List(ctx, func(t *wallet.Transaction) bool {
		return t.ExternalReference != nil && *t.ExternalReference == reference
	})
	return len(matches) > 0, nil
}

// All returns every ledger entry, for assertions
func (s *InMemoryWalletStore) All() []*wallet.Transaction {
	return s.store.List(context.Background(), nil)
}

// Clear removes all entries
func (s *InMemoryWalletStore) Clear() {
	s.store.Clear()
}
