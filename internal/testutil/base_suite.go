package testutil

import (
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/halonet/billing-engine/internal/cache"
	"github.com/halonet/billing-engine/internal/config"
	"github.com/halonet/billing-engine/internal/gateway"
	"github.com/halonet/billing-engine/internal/logger"
	"github.com/halonet/billing-engine/internal/service"
)

// BaseServiceTestSuite wires in-memory stores, recording collaborators and a
// pinned clock into ServiceParams. Service suites embed it and call
// SetupSuite/SetupTest from their own hooks.
type BaseServiceTestSuite struct {
	suite.Suite

	Logger *logger.Logger
	Config *config.Configuration

	ClientStore     *InMemoryClientStore
	WalletStore     *InMemoryWalletStore
	InvoiceStore    *InMemoryInvoiceStore
	PaymentStore    *InMemoryPaymentStore
	CheckpointStore *InMemoryCheckpointStore

	Gateway     *FakeGatewayProvider
	Notifier    *RecordingPublisher
	Provisioner *FakeProvisioner

	Cache cache.Cache

	// clock is the pinned test time, advanced with AdvanceClock
	clock time.Time
}

func (s *BaseServiceTestSuite) SetupSuite() {
	s.Logger = logger.GetLogger()
	s.Config = config.GetDefaultConfig()
}

func (s *BaseServiceTestSuite) SetupTest() {
	s.ClientStore = NewInMemoryClientStore()
	s.WalletStore = NewInMemoryWalletStore()
	s.InvoiceStore = NewInMemoryInvoiceStore()
	s.PaymentStore = NewInMemoryPaymentStore()
	s.CheckpointStore = NewInMemoryCheckpointStore()

	s.Gateway = NewFakeGatewayProvider("test_gateway")
	s.Notifier = NewRecordingPublisher()
	s.Provisioner = NewFakeProvisioner()
	s.Cache = cache.NewInMemoryCache()

	s.clock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

// ServiceParams returns params backed by the suite's stores and pinned clock
func (s *BaseServiceTestSuite) ServiceParams() service.ServiceParams {
	return service.ServiceParams{
		Logger:           s.Logger,
		Config:           s.Config,
		DB:               NewFakeDBClient(),
		ClientRepo:       s.ClientStore,
		WalletRepo:       s.WalletStore,
		InvoiceRepo:      s.InvoiceStore,
		PaymentRepo:      s.PaymentStore,
		CheckpointRepo:   s.CheckpointStore,
		GatewayProviders: []gateway.Provider{s.Gateway},
		Notifier:         s.Notifier,
		Provisioner:      s.Provisioner,
		Cache:            s.Cache,
		Now:              s.CurrentTime,
	}
}

// CurrentTime returns the pinned clock value
func (s *BaseServiceTestSuite) CurrentTime() time.Time {
	return s.clock
}

// SetClock pins the clock to t
func (s *BaseServiceTestSuite) SetClock(t time.Time) {
	s.clock = t.UTC()
}

// AdvanceClock moves the pinned clock forward by d
func (s *BaseServiceTestSuite) AdvanceClock(d time.Duration) {
	s.clock = s.clock.Add(d)
}
