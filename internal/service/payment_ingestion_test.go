package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/halonet/billing-engine/internal/cache"
	"github.com/halonet/billing-engine/internal/domain/client"
	"github.com/halonet/billing-engine/internal/domain/invoice"
	"github.com/halonet/billing-engine/internal/domain/payment"
	"github.com/halonet/billing-engine/internal/gateway"
	"github.com/halonet/billing-engine/internal/postgres"
	"github.com/halonet/billing-engine/internal/service"
	"github.com/halonet/billing-engine/internal/testutil"
	"github.com/halonet/billing-engine/internal/types"
)

type PaymentIngestionSuite struct {
	testutil.BaseServiceTestSuite
	worker service.PaymentIngestionWorker
}

func TestPaymentIngestion(t *testing.T) {
	suite.Run(t, new(PaymentIngestionSuite))
}

func (s *PaymentIngestionSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := s.ServiceParams()
	analyzer := service.NewWalletAnalyzer(params)
	engine := service.NewRenewalDecisionEngine(params)
	s.worker = service.NewPaymentIngestionWorker(params, analyzer, engine)
}

func (s *PaymentIngestionSuite) seedClient(balance string, status types.ClientStatus, expiry *time.Time) *client.Client {
	c := &client.Client{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CLIENT),
		Name:                "Chinedu Okafor",
		ServicePackageName:  "Home 20Mbps",
		MonthlyRate:         decimal.RequireFromString("1000"),
		WalletBalance:       decimal.RequireFromString(balance),
		SubscriptionEndDate: expiry,
		ClientStatus:        status,
		BaseModel:           types.GetDefaultBaseModel(context.Background()),
	}
	s.NoError(s.ClientStore.Create(context.Background(), c))
	return c
}

func (s *PaymentIngestionSuite) confirmed(clientID, reference, amount, billingRef string) *payment.GatewayTransaction {
	return &payment.GatewayTransaction{
		Reference:        reference,
		ClientID:         clientID,
		Amount:           decimal.RequireFromString(amount),
		Method:           types.PaymentMethodMobileMoney,
		BillingReference: billingRef,
		ConfirmedAt:      s.CurrentTime(),
	}
}

func (s *PaymentIngestionSuite) TestWalletTopUpCreditsOnce() {
	expiry := s.CurrentTime().Add(10 * 24 * time.Hour)
	c := s.seedClient("100", types.ClientStatusActive, &expiry)
	s.Gateway.AddTransaction(s.confirmed(c.ID, "MM-001", "250", ""))

	s.worker.Tick(context.Background())

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal("350.00", updated.WalletBalance.StringFixed(2))

	entries := s.WalletStore.All()
	s.Require().Len(entries, 1)
	s.Equal(types.TransactionTypeCredit, entries[0].Type)
	s.Equal("100.00", entries[0].BalanceBefore.StringFixed(2))
	s.Equal("350.00", entries[0].BalanceAfter.StringFixed(2))
	s.Require().NotNil(entries[0].ExternalReference)
	s.Equal("MM-001", *entries[0].ExternalReference)
}

func (s *PaymentIngestionSuite) TestDuplicateReferenceAcrossTicksIsNoOp() {
	expiry := s.CurrentTime().Add(10 * 24 * time.Hour)
	c := s.seedClient("100", types.ClientStatusActive, &expiry)
	s.Gateway.AddTransaction(s.confirmed(c.ID, "MM-002", "250", ""))

	// The trailing window re-observes the same confirmed transaction on
	// every tick for five minutes
	s.worker.Tick(context.Background())
	s.AdvanceClock(30 * time.Second)
	s.worker.Tick(context.Background())
	s.AdvanceClock(30 * time.Second)
	s.worker.Tick(context.Background())

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal("350.00", updated.WalletBalance.StringFixed(2))
	s.Len(s.WalletStore.All(), 1)
}

func (s *PaymentIngestionSuite) TestDuplicateSurvivesCacheLoss() {
	expiry := s.CurrentTime().Add(10 * 24 * time.Hour)
	c := s.seedClient("100", types.ClientStatusActive, &expiry)
	s.Gateway.AddTransaction(s.confirmed(c.ID, "MM-003", "250", ""))

	s.worker.Tick(context.Background())

	// Rebuild the worker with a cold cache; the processed-payment set
	// still refuses the reference
	params := s.ServiceParams()
	params.Cache = cache.NewInMemoryCache()
	analyzer := service.NewWalletAnalyzer(params)
	engine := service.NewRenewalDecisionEngine(params)
	s.worker = service.NewPaymentIngestionWorker(params, analyzer, engine)

	s.AdvanceClock(30 * time.Second)
	s.worker.Tick(context.Background())

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal("350.00", updated.WalletBalance.StringFixed(2))
	s.Len(s.WalletStore.All(), 1)
}

func (s *PaymentIngestionSuite) TestTopUpCoveringFullRenewalRenewsInstantly() {
	expiry := s.CurrentTime().Add(12 * time.Hour)
	c := s.seedClient("200", types.ClientStatusActive, &expiry)
	s.Gateway.AddTransaction(s.confirmed(c.ID, "MM-004", "900", ""))

	s.worker.Tick(context.Background())

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	// 200 + 900 credited, then 1000 debited by the instant renewal
	s.Equal("100.00", updated.WalletBalance.StringFixed(2))
	s.Equal(s.CurrentTime().AddDate(0, 0, 30), updated.SubscriptionEndDate.UTC())

	entries := s.WalletStore.All()
	s.Len(entries, 2)
}

func (s *PaymentIngestionSuite) TestPartialTopUpDoesNotShortenSubscription() {
	expiry := s.CurrentTime().Add(12 * time.Hour)
	c := s.seedClient("0", types.ClientStatusActive, &expiry)
	s.Gateway.AddTransaction(s.confirmed(c.ID, "MM-005", "400", ""))

	s.worker.Tick(context.Background())

	// 400 affords 12 prorated days, but mid-cycle partials are never
	// applied here; the balance waits for the next checkpoint
	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal("400.00", updated.WalletBalance.StringFixed(2))
	s.Equal(expiry, updated.SubscriptionEndDate.UTC())
}

func (s *PaymentIngestionSuite) TestInstallationPaymentActivatesClient() {
	c := s.seedClient("0", types.ClientStatusPending, nil)
	inv := &invoice.Invoice{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		ClientID:         c.ID,
		Amount:           decimal.RequireFromString("5000"),
		InvoiceStatus:    types.InvoiceStatusPending,
		BillingReference: "INST-2024-0001",
		BaseModel:        types.GetDefaultBaseModel(context.Background()),
	}
	s.NoError(s.InvoiceStore.Create(context.Background(), inv))
	s.Gateway.AddTransaction(s.confirmed(c.ID, "MM-006", "5000", "INST-2024-0001"))

	s.worker.Tick(context.Background())

	paid, err := s.InvoiceStore.Get(context.Background(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, paid.InvoiceStatus)
	s.Require().NotNil(paid.PaymentReference)
	s.Equal("MM-006", *paid.PaymentReference)
	s.NotNil(paid.PaidAt)

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal(types.ClientStatusActive, updated.ClientStatus)
	s.Equal("0.00", updated.WalletBalance.StringFixed(2))
	s.Equal([]string{c.ID}, s.Provisioner.Activated)
}

func (s *PaymentIngestionSuite) TestInstallationReferenceWithoutInvoiceCreditsWallet() {
	expiry := s.CurrentTime().Add(10 * 24 * time.Hour)
	c := s.seedClient("0", types.ClientStatusActive, &expiry)
	s.Gateway.AddTransaction(s.confirmed(c.ID, "MM-007", "300", "INST-UNKNOWN"))

	s.worker.Tick(context.Background())

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal("300.00", updated.WalletBalance.StringFixed(2))
	s.Empty(s.Provisioner.Activated)
}

func (s *PaymentIngestionSuite) TestFailingProviderDoesNotBlockOthers() {
	expiry := s.CurrentTime().Add(10 * 24 * time.Hour)
	c := s.seedClient("0", types.ClientStatusActive, &expiry)

	failing := testutil.NewFakeGatewayProvider("bank")
	failing.FailWith = errBrokerDown{}
	s.Gateway.AddTransaction(s.confirmed(c.ID, "MM-008", "150", ""))

	params := s.ServiceParams()
	params.GatewayProviders = []gateway.Provider{failing, s.Gateway}
	analyzer := service.NewWalletAnalyzer(params)
	engine := service.NewRenewalDecisionEngine(params)
	worker := service.NewPaymentIngestionWorker(params, analyzer, engine)

	worker.Tick(context.Background())

	s.Equal(1, failing.Calls)
	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal("150.00", updated.WalletBalance.StringFixed(2))
}

func (s *PaymentIngestionSuite) TestTopUpTakesWalletLock() {
	expiry := s.CurrentTime().Add(10 * 24 * time.Hour)
	c := s.seedClient("100", types.ClientStatusActive, &expiry)
	s.Gateway.AddTransaction(s.confirmed(c.ID, "MM-009", "250", ""))

	db := testutil.NewFakeDBClient()
	params := s.ServiceParams()
	params.DB = db
	analyzer := service.NewWalletAnalyzer(params)
	engine := service.NewRenewalDecisionEngine(params)
	worker := service.NewPaymentIngestionWorker(params, analyzer, engine)

	worker.Tick(context.Background())

	// The credit serializes against a concurrent renewal on the same wallet
	s.Contains(db.LockedKeys(), postgres.WalletLockKey(c.ID))
}

func (s *PaymentIngestionSuite) TestShutdownMidPollStillCreditsWallet() {
	expiry := s.CurrentTime().Add(10 * 24 * time.Hour)
	c := s.seedClient("0", types.ClientStatusActive, &expiry)

	slow := testutil.NewFakeGatewayProvider("bank")
	slow.Started = make(chan struct{})
	slow.Release = make(chan struct{})
	slow.AddTransaction(s.confirmed(c.ID, "MM-010", "150", ""))
	s.Gateway.AddTransaction(s.confirmed(c.ID, "MM-011", "200", ""))

	params := s.ServiceParams()
	params.GatewayProviders = []gateway.Provider{slow, s.Gateway}
	analyzer := service.NewWalletAnalyzer(params)
	engine := service.NewRenewalDecisionEngine(params)
	worker := service.NewPaymentIngestionWorker(params, analyzer, engine)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(stopped)
	}()

	// Shut down while the first provider's poll is in flight; the batch
	// already started, so every confirmed payment in it still lands
	<-slow.Started
	cancel()
	close(slow.Release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		s.FailNow("worker did not stop")
	}

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal("350.00", updated.WalletBalance.StringFixed(2))
	s.Len(s.WalletStore.All(), 2)
}
