package testutil

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/halonet/billing-engine/internal/domain/payment"
	"github.com/halonet/billing-engine/internal/notification"
	"github.com/halonet/billing-engine/internal/postgres"
)

// RecordingPublisher captures published notifications for assertions
type RecordingPublisher struct {
	mu            sync.Mutex
	notifications []*notification.Notification
	FailWith      error
}

// NewRecordingPublisher creates a publisher that records everything it receives
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(ctx context.Context, n *notification.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if p.FailWith != nil {
		return p.FailWith
	}
	p.notifications = append(p.notifications, n)
	return nil
}

// All returns the notifications published so far, in order
func (p *RecordingPublisher) All() []*notification.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]*notification.Notification, len(p.notifications))
	copy(result, p.notifications)
	return result
}

// Clear drops recorded notifications
func (p *RecordingPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = nil
}

// FakeProvisioner records provisioning calls per client
type FakeProvisioner struct {
	mu         sync.Mutex
	Activated  []string
	Suspended  []string
	Monitored  []string
	Unwatched  []string
	FailWith   error
}

// NewFakeProvisioner creates a provisioning fake that records every call
func NewFakeProvisioner() *FakeProvisioner {
	return &FakeProvisioner{}
}

func (f *FakeProvisioner) ActivateClient(ctx context.Context, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return f.FailWith
	}
	f.Activated = append(f.Activated, clientID)
	return nil
}

func (f *FakeProvisioner) SuspendClient(ctx context.Context, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return f.FailWith
	}
	f.Suspended = append(f.Suspended, clientID)
	return nil
}

func (f *FakeProvisioner) EnableMonitoring(ctx context.Context, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return f.FailWith
	}
	f.Monitored = append(f.Monitored, clientID)
	return nil
}

func (f *FakeProvisioner) DisableMonitoring(ctx context.Context, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return f.FailWith
	}
	f.Unwatched = append(f.Unwatched, clientID)
	return nil
}

// FakeGatewayProvider serves a fixed set of confirmed transactions
type FakeGatewayProvider struct {
	mu           sync.Mutex
	name         string
	transactions []*payment.GatewayTransaction
	FailWith     error
	Calls        int

	// Started, when set, is closed on the first poll; Release, when set,
	// is waited on before the poll proceeds
	Started   chan struct{}
	Release   chan struct{}
	startOnce sync.Once
}

// NewFakeGatewayProvider creates a provider fake under the given channel name
func NewFakeGatewayProvider(name string) *FakeGatewayProvider {
	return &FakeGatewayProvider{name: name}
}

func (f *FakeGatewayProvider) Name() string {
	return f.name
}

func (f *FakeGatewayProvider) ListConfirmedTransactions(ctx context.Context, since time.Time) ([]*payment.GatewayTransaction, error) {
	if f.Started != nil {
		f.startOnce.Do(func() { close(f.Started) })
	}
	if f.Release != nil {
		<-f.Release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls++
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	result := make([]*payment.GatewayTransaction, 0)
	for _, txn := range f.transactions {
		if !txn.ConfirmedAt.Before(since) {
			copied := *txn
			result = append(result, &copied)
		}
	}
	return result, nil
}

// AddTransaction queues a confirmed transaction for the next poll
func (f *FakeGatewayProvider) AddTransaction(txn *payment.GatewayTransaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions = append(f.transactions, txn)
}

// FakeDBClient implements postgres.IClient for service tests. WithTx runs
// the closure directly; the in-memory stores have no transactional scope.
// Advisory lock keys are recorded so tests can assert locking behavior.
type FakeDBClient struct {
	mu     sync.Mutex
	locked []string
}

// NewFakeDBClient creates a transactionless database stub
func NewFakeDBClient() *FakeDBClient {
	return &FakeDBClient{}
}

func (c *FakeDBClient) Querier(ctx context.Context) postgres.Querier {
	return nil
}

func (c *FakeDBClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (c *FakeDBClient) TxFromContext(ctx context.Context) *sql.Tx {
	return nil
}

func (c *FakeDBClient) LockKey(ctx context.Context, key string, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locked = append(c.locked, key)
	return nil
}

// LockedKeys returns every advisory lock key acquired so far, in order
func (c *FakeDBClient) LockedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.locked))
	copy(out, c.locked)
	return out
}

func (c *FakeDBClient) Close() error {
	return nil
}
