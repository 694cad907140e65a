package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/halonet/billing-engine/internal/domain/client"
	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/types"
	"github.com/shopspring/decimal"
)

// InMemoryClientStore implements client.Repository
type InMemoryClientStore struct {
	mu    sync.Mutex
	store *InMemoryStore[*client.Client]

	// FailGetFor makes Get fail for the given client id
	FailGetFor string

	// GetStarted, when set, is closed on the first Get; BlockGet, when
	// set, is waited on before Get proceeds. Used to hold a read open
	// across a concurrent event.
	GetStarted chan struct{}
	BlockGet   chan struct{}
	getOnce    sync.Once
}

// NewInMemoryClientStore creates a new in-memory client store
func NewInMemoryClientStore() *InMemoryClientStore {
	return &InMemoryClientStore{
		store: NewInMemoryStore[*client.Client](),
	}
}

func copyClient(c *client.Client) *client.Client {
	if c == nil {
		return nil
	}
	copied := *c
	if c.SubscriptionEndDate != nil {
		t := *c.SubscriptionEndDate
		copied.SubscriptionEndDate = &t
	}
	return &copied
}

func (s *InMemoryClientStore) Get(ctx context.Context, id string) (*client.Client, error) {
	if s.GetStarted != nil {
		s.getOnce.Do(func() { close(s.GetStarted) })
	}
	if s.BlockGet != nil {
		<-s.BlockGet
	}
	if err := ctx.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Client read aborted").
			Mark(ierr.ErrDatabase)
	}
	if s.FailGetFor != "" && s.FailGetFor == id {
		return nil, ierr.NewError("client read failed").
			WithReportableDetails(map[string]interface{}{"client_id": id}).
			Mark(ierr.ErrDatabase)
	}

	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("client not found").
			WithReportableDetails(map[string]interface{}{"client_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return copyClient(c), nil
}

func (s *InMemoryClientStore) Create(ctx context.Context, c *client.Client) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.store.Create(ctx, c.ID, copyClient(c))
}

func (s *InMemoryClientStore) ListActiveWithExpiryBetween(ctx context.Context, from, to time.Time) ([]*client.Client, error) {
	clients := s.store.List(ctx, func(c *client.Client) bool {
		if c.ClientStatus != types.ClientStatusActive || c.SubscriptionEndDate == nil {
			return false
		}
		end := *c.SubscriptionEndDate
		return !end.Before(from) && !end.After(to)
	})

	out := make([]*client.Client, len(clients))
	for i, c := range clients {
		out[i] = copyClient(c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubscriptionEndDate.Before(*out[j].SubscriptionEndDate)
	})
	return out, nil
}

func (s *InMemoryClientStore) CreditBalance(ctx context.Context, clientID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Get(ctx, clientID)
	if err != nil {
		return ierr.NewError("client not found").Mark(ierr.ErrNotFound)
	}
	updated := copyClient(c)
	updated.WalletBalance = updated.WalletBalance.Add(amount)
	updated.UpdatedAt = time.Now().UTC()
	return s.store.Update(ctx, clientID, updated)
}

func (s *InMemoryClientStore) DebitBalance(ctx context.Context, clientID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Get(ctx, clientID)
	if err != nil {
		return ierr.NewError("client not found").Mark(ierr.ErrNotFound)
	}
	if c.WalletBalance.LessThan(amount) {
		return ierr.NewError("client not found or balance insufficient").
			WithReportableDetails(map[string]interface{}{"client_id": clientID}).
			Mark(ierr.ErrNotFound)
	}
	updated := copyClient(c)
	updated.WalletBalance = updated.WalletBalance.Sub(amount)
	updated.UpdatedAt = time.Now().UTC()
	return s.store.Update(ctx, clientID, updated)
}

func (s *InMemoryClientStore) ApplyRenewal(ctx context.Context, update client.RenewalUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Get(ctx, update.ClientID)
	if err != nil {
		return ierr.NewError("client not found").Mark(ierr.ErrNotFound)
	}
	if c.WalletBalance.LessThan(update.DebitAmount) {
		return ierr.NewError("client not found or balance insufficient").
			WithReportableDetails(map[string]interface{}{"client_id": update.ClientID}).
			Mark(ierr.ErrNotFound)
	}

	updated := copyClient(c)
	updated.WalletBalance = updated.WalletBalance.Sub(update.DebitAmount)
	end := update.NewEndDate
	updated.SubscriptionEndDate = &end
	updated.ClientStatus = update.NewStatus
	updated.UpdatedAt = time.Now().UTC()
	return s.store.Update(ctx, update.ClientID, updated)
}

func (s *InMemoryClientStore) UpdateStatus(ctx context.Context, clientID string, status types.ClientStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Get(ctx, clientID)
	if err != nil {
		return ierr.NewError("client not found").Mark(ierr.ErrNotFound)
	}
	updated := copyClient(c)
	updated.ClientStatus = status
	updated.UpdatedAt = time.Now().UTC()
	return s.store.Update(ctx, clientID, updated)
}

// Clear removes all clients
func (s *InMemoryClientStore) Clear() {
	s.store.Clear()
}
