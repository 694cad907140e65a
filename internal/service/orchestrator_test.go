package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/halonet/billing-engine/internal/domain/client"
	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/service"
	"github.com/halonet/billing-engine/internal/testutil"
	"github.com/halonet/billing-engine/internal/types"
)

type OrchestratorSuite struct {
	testutil.BaseServiceTestSuite
	orchestrator service.AutomationOrchestrator
}

func TestOrchestrator(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := s.ServiceParams()
	params.Config.Billing.SchedulerInterval = 10 * time.Millisecond
	params.Config.Billing.IngestionInterval = 10 * time.Millisecond

	analyzer := service.NewWalletAnalyzer(params)
	engine := service.NewRenewalDecisionEngine(params)
	scheduler := service.NewPrecisionScheduler(params, analyzer, engine)
	worker := service.NewPaymentIngestionWorker(params, analyzer, engine)
	s.orchestrator = service.NewAutomationOrchestrator(params, scheduler, worker, analyzer, engine)
}

func (s *OrchestratorSuite) seedClient(balance string, status types.ClientStatus) *client.Client {
	expiry := s.CurrentTime().Add(12 * time.Hour)
	c := &client.Client{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CLIENT),
		Name:                "Zanele Khumalo",
		ServicePackageName:  "Home 20Mbps",
		MonthlyRate:         decimal.RequireFromString("1000"),
		WalletBalance:       decimal.RequireFromString(balance),
		SubscriptionEndDate: &expiry,
		ClientStatus:        status,
		BaseModel:           types.GetDefaultBaseModel(context.Background()),
	}
	s.NoError(s.ClientStore.Create(context.Background(), c))
	return c
}

func (s *OrchestratorSuite) TestStartStopLifecycle() {
	status := s.orchestrator.Status()
	s.False(status[service.ProcessScheduler])
	s.False(status[service.ProcessPaymentIngestion])

	s.orchestrator.StartAll()
	status = s.orchestrator.Status()
	s.True(status[service.ProcessScheduler])
	s.True(status[service.ProcessPaymentIngestion])

	s.orchestrator.StopAll()
	status = s.orchestrator.Status()
	s.False(status[service.ProcessScheduler])
	s.False(status[service.ProcessPaymentIngestion])
}

func (s *OrchestratorSuite) TestStopAllIsIdempotent() {
	s.orchestrator.StartAll()
	s.orchestrator.StopAll()
	s.orchestrator.StopAll()
}

func (s *OrchestratorSuite) TestStartAllTwiceKeepsSingleSetOfLoops() {
	s.orchestrator.StartAll()
	s.orchestrator.StartAll()
	s.orchestrator.StopAll()

	status := s.orchestrator.Status()
	s.False(status[service.ProcessScheduler])
}

func (s *OrchestratorSuite) TestRouteActivateEvent() {
	c := s.seedClient("0", types.ClientStatusPending)

	err := s.orchestrator.RouteClientEvent(context.Background(), c.ID, types.ClientEventActivate)
	s.NoError(err)

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal(types.ClientStatusActive, updated.ClientStatus)
	s.Equal([]string{c.ID}, s.Provisioner.Monitored)
}

func (s *OrchestratorSuite) TestRouteSuspendEvent() {
	c := s.seedClient("0", types.ClientStatusActive)

	err := s.orchestrator.RouteClientEvent(context.Background(), c.ID, types.ClientEventSuspend)
	s.NoError(err)

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal(types.ClientStatusSuspended, updated.ClientStatus)
	s.Equal([]string{c.ID}, s.Provisioner.Unwatched)
}

func (s *OrchestratorSuite) TestRoutePaymentReceivedRenewsWhenAffordable() {
	c := s.seedClient("1500", types.ClientStatusActive)

	err := s.orchestrator.RouteClientEvent(context.Background(), c.ID, types.ClientEventPaymentReceived)
	s.NoError(err)

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal("500.00", updated.WalletBalance.StringFixed(2))
	s.Equal(s.CurrentTime().AddDate(0, 0, 30), updated.SubscriptionEndDate.UTC())
}

func (s *OrchestratorSuite) TestRoutePaymentReceivedBelowThresholdIsNoOp() {
	c := s.seedClient("50", types.ClientStatusActive)

	err := s.orchestrator.RouteClientEvent(context.Background(), c.ID, types.ClientEventPaymentReceived)
	s.NoError(err)

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal("50.00", updated.WalletBalance.StringFixed(2))
	s.Empty(s.Notifier.All())
}

func (s *OrchestratorSuite) TestRouteUnknownEvent() {
	c := s.seedClient("0", types.ClientStatusActive)

	err := s.orchestrator.RouteClientEvent(context.Background(), c.ID, types.ClientEvent("reboot_router"))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *OrchestratorSuite) TestStatusReportsExitedProcess() {
	params := s.ServiceParams()
	params.Config.Billing.IngestionInterval = 10 * time.Millisecond
	analyzer := service.NewWalletAnalyzer(params)
	engine := service.NewRenewalDecisionEngine(params)
	worker := service.NewPaymentIngestionWorker(params, analyzer, engine)
	orch := service.NewAutomationOrchestrator(params, exitingScheduler{}, worker, analyzer, engine)

	orch.StartAll()
	defer orch.StopAll()

	// One loop returned on its own; liveness is reported per process, not
	// from the shared running flag
	s.Eventually(func() bool {
		status := orch.Status()
		return !status[service.ProcessScheduler] && status[service.ProcessPaymentIngestion]
	}, time.Second, 10*time.Millisecond)
}

// exitingScheduler stands in for a scheduler loop that has died
type exitingScheduler struct{}

func (exitingScheduler) Run(ctx context.Context)  {}
func (exitingScheduler) Tick(ctx context.Context) {}
