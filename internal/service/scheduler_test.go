package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/halonet/billing-engine/internal/domain/client"
	"github.com/halonet/billing-engine/internal/service"
	"github.com/halonet/billing-engine/internal/testutil"
	"github.com/halonet/billing-engine/internal/types"
)

type SchedulerSuite struct {
	testutil.BaseServiceTestSuite
	scheduler service.PrecisionScheduler
}

func TestScheduler(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := s.ServiceParams()
	analyzer := service.NewWalletAnalyzer(params)
	engine := service.NewRenewalDecisionEngine(params)
	s.scheduler = service.NewPrecisionScheduler(params, analyzer, engine)
}

func (s *SchedulerSuite) seedClient(balance string, expiry time.Time) *client.Client {
	c := &client.Client{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CLIENT),
		Name:                "Fatou Ndiaye",
		ServicePackageName:  "Home 20Mbps",
		MonthlyRate:         decimal.RequireFromString("1000"),
		WalletBalance:       decimal.RequireFromString(balance),
		SubscriptionEndDate: &expiry,
		ClientStatus:        types.ClientStatusActive,
		BaseModel:           types.GetDefaultBaseModel(context.Background()),
	}
	s.NoError(s.ClientStore.Create(context.Background(), c))
	return c
}

func (s *SchedulerSuite) notificationTypes() []types.NotificationType {
	notifs := s.Notifier.All()
	out := make([]types.NotificationType, len(notifs))
	for i, n := range notifs {
		out[i] = n.Type
	}
	return out
}

func (s *SchedulerSuite) TestReminder72hAffordable() {
	s.seedClient("1500", s.CurrentTime().Add(72*time.Hour))

	s.scheduler.Tick(context.Background())

	notifs := s.Notifier.All()
	s.Require().Len(notifs, 1)
	s.Equal(types.NotificationPaymentReminder, notifs[0].Type)
	s.Equal(72, notifs[0].Data["hours_remaining"])
}

func (s *SchedulerSuite) TestReminder72hInsufficientNamesShortfall() {
	s.seedClient("400", s.CurrentTime().Add(72*time.Hour))

	s.scheduler.Tick(context.Background())

	notifs := s.Notifier.All()
	s.Require().Len(notifs, 1)
	s.Equal(types.NotificationTopUpReminder, notifs[0].Type)
	s.Equal("600.00", notifs[0].Data["shortfall"])
}

func (s *SchedulerSuite) TestReminder48h() {
	s.seedClient("1500", s.CurrentTime().Add(48*time.Hour))

	s.scheduler.Tick(context.Background())

	notifs := s.Notifier.All()
	s.Require().Len(notifs, 1)
	s.Equal(types.NotificationPaymentReminder, notifs[0].Type)
	s.Equal(48, notifs[0].Data["hours_remaining"])
}

func (s *SchedulerSuite) TestCheckpointFiresAtMostOnce() {
	s.seedClient("400", s.CurrentTime().Add(72*time.Hour))

	// Consecutive ticks inside the same tolerance window must not re-fire
	s.scheduler.Tick(context.Background())
	s.AdvanceClock(time.Minute)
	s.scheduler.Tick(context.Background())
	s.AdvanceClock(time.Minute)
	s.scheduler.Tick(context.Background())

	s.Len(s.Notifier.All(), 1)
}

func (s *SchedulerSuite) TestCheckpointWithinTolerance() {
	// Target sits 90 seconds in the past, inside the 2-minute tolerance
	s.seedClient("1500", s.CurrentTime().Add(72*time.Hour-90*time.Second))

	s.scheduler.Tick(context.Background())
	s.Len(s.Notifier.All(), 1)
}

func (s *SchedulerSuite) TestCheckpointOutsideToleranceSkipped() {
	s.seedClient("1500", s.CurrentTime().Add(72*time.Hour-10*time.Minute))

	s.scheduler.Tick(context.Background())
	s.Empty(s.Notifier.All())
}

func (s *SchedulerSuite) TestRenewal24hAffordableRenews() {
	c := s.seedClient("1500", s.CurrentTime().Add(24*time.Hour))

	s.scheduler.Tick(context.Background())

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal("500.00", updated.WalletBalance.StringFixed(2))
	s.Equal(s.CurrentTime().AddDate(0, 0, 30), updated.SubscriptionEndDate.UTC())

	s.Equal([]types.NotificationType{types.NotificationRenewalSuccess}, s.notificationTypes())
}

func (s *SchedulerSuite) TestRenewal24hInsufficientSendsFinalReminder() {
	c := s.seedClient("50", s.CurrentTime().Add(24*time.Hour))

	s.scheduler.Tick(context.Background())

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal("50.00", updated.WalletBalance.StringFixed(2))

	notifs := s.Notifier.All()
	s.Require().Len(notifs, 1)
	s.Equal(types.NotificationFinalReminder, notifs[0].Type)
	s.Equal("950.00", notifs[0].Data["shortfall"])
}

func (s *SchedulerSuite) TestRenewal24hPartialExtends() {
	c := s.seedClient("400", s.CurrentTime().Add(24*time.Hour))

	s.scheduler.Tick(context.Background())

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal("0.00", updated.WalletBalance.StringFixed(2))
	s.Equal(s.CurrentTime().AddDate(0, 0, 12), updated.SubscriptionEndDate.UTC())

	s.Equal([]types.NotificationType{types.NotificationPartialRenewal}, s.notificationTypes())
}

func (s *SchedulerSuite) TestExpirySuspendsWhenBroke() {
	c := s.seedClient("0", s.CurrentTime())

	s.scheduler.Tick(context.Background())

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal(types.ClientStatusSuspended, updated.ClientStatus)
	s.Equal([]string{c.ID}, s.Provisioner.Suspended)

	s.Equal([]types.NotificationType{types.NotificationServiceDisconnected}, s.notificationTypes())
}

func (s *SchedulerSuite) TestExpiryRenewsAfterLateTopUp() {
	c := s.seedClient("1200", s.CurrentTime())

	s.scheduler.Tick(context.Background())

	updated, err := s.ClientStore.Get(context.Background(), c.ID)
	s.NoError(err)
	s.Equal(types.ClientStatusActive, updated.ClientStatus)
	s.Equal("200.00", updated.WalletBalance.StringFixed(2))
	s.Empty(s.Provisioner.Suspended)

	s.Equal([]types.NotificationType{types.NotificationRenewalSuccess}, s.notificationTypes())
}

func (s *SchedulerSuite) TestTickCoversAllClientsInWindow() {
	s.seedClient("1500", s.CurrentTime().Add(72*time.Hour))
	s.seedClient("400", s.CurrentTime().Add(48*time.Hour))
	s.seedClient("1500", s.CurrentTime().Add(200*time.Hour)) // outside every window

	s.scheduler.Tick(context.Background())

	s.ElementsMatch(
		[]types.NotificationType{types.NotificationPaymentReminder, types.NotificationTopUpReminder},
		s.notificationTypes())
}

func (s *SchedulerSuite) TestNewCycleFiresCheckpointsAgain() {
	c := s.seedClient("400", s.CurrentTime().Add(72*time.Hour))

	s.scheduler.Tick(context.Background())
	s.Require().Len(s.Notifier.All(), 1)

	// Same checkpoint, new expiry: a fresh cycle gets a fresh dispatch
	newExpiry := s.CurrentTime().Add(30 * 24 * time.Hour)
	s.NoError(s.ClientStore.ApplyRenewal(context.Background(), client.RenewalUpdate{
		ClientID:    c.ID,
		DebitAmount: decimal.Zero,
		NewEndDate:  newExpiry,
		NewStatus:   types.ClientStatusActive,
	}))
	s.SetClock(newExpiry.Add(-72 * time.Hour))

	s.scheduler.Tick(context.Background())
	s.Len(s.Notifier.All(), 2)
}

func (s *SchedulerSuite) TestPublishFailureDoesNotRefireCheckpoint() {
	s.seedClient("1500", s.CurrentTime().Add(72*time.Hour))
	s.Notifier.FailWith = errBrokerDown{}

	s.scheduler.Tick(context.Background())
	s.Empty(s.Notifier.All())

	// The checkpoint was recorded before dispatch; recovery of the broker
	// must not produce a late duplicate
	s.Notifier.FailWith = nil
	s.AdvanceClock(time.Minute)
	s.scheduler.Tick(context.Background())
	s.Empty(s.Notifier.All())
}

func (s *SchedulerSuite) TestFailingClientDoesNotAbortTick() {
	broken := s.seedClient("1500", s.CurrentTime().Add(72*time.Hour))
	healthy := s.seedClient("1500", s.CurrentTime().Add(72*time.Hour))
	s.ClientStore.FailGetFor = broken.ID

	s.scheduler.Tick(context.Background())

	notifs := s.Notifier.All()
	s.Require().Len(notifs, 1)
	s.Equal(healthy.ID, notifs[0].ClientID)
	s.Equal(types.NotificationPaymentReminder, notifs[0].Type)
}

func (s *SchedulerSuite) TestShutdownMidTickStillDeliversNotification() {
	s.seedClient("1500", s.CurrentTime().Add(72*time.Hour))
	s.ClientStore.GetStarted = make(chan struct{})
	s.ClientStore.BlockGet = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.scheduler.Run(ctx)
		close(stopped)
	}()

	// Shut down while the checkpoint handler holds a read open. The
	// checkpoint is already marked fired at that point, so losing the
	// dispatch would lose it for good.
	<-s.ClientStore.GetStarted
	cancel()
	close(s.ClientStore.BlockGet)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		s.FailNow("scheduler did not stop")
	}

	notifs := s.Notifier.All()
	s.Require().Len(notifs, 1)
	s.Equal(types.NotificationPaymentReminder, notifs[0].Type)
}

type errBrokerDown struct{}

func (errBrokerDown) Error() string { return "broker unavailable" }
