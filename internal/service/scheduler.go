package service

import (
	"context"
	"time"

	"github.com/halonet/billing-engine/internal/domain/checkpoint"
	"github.com/halonet/billing-engine/internal/domain/client"
	"github.com/halonet/billing-engine/internal/idempotency"
	"github.com/halonet/billing-engine/internal/notification"
	"github.com/halonet/billing-engine/internal/types"
)

// PrecisionScheduler scans active subscriptions once per minute and fires
// the reminder/renewal/suspension handler for every checkpoint a client has
// crossed relative to its expiry. At-most-once dispatch per checkpoint is
// enforced through the fired-checkpoint repository, keyed by
// (client, checkpoint, expiry).
type PrecisionScheduler interface {
	// Run blocks, ticking until ctx is cancelled. An in-flight tick always
	// finishes before Run returns.
	Run(ctx context.Context)

	// Tick performs a single scan of all clients inside checkpoint windows
	Tick(ctx context.Context)
}

type precisionScheduler struct {
	ServiceParams
	analyzer WalletAnalyzer
	engine   RenewalDecisionEngine
	idemGen  *idempotency.Generator
}

// NewPrecisionScheduler creates a new scheduler over the shared analyzer and
// decision engine.
func NewPrecisionScheduler(params ServiceParams, analyzer WalletAnalyzer, engine RenewalDecisionEngine) PrecisionScheduler {
	return &precisionScheduler{
		ServiceParams: params,
		analyzer:      analyzer,
		engine:        engine,
		idemGen:       idempotency.NewGenerator(),
	}
}

func (s *precisionScheduler) Run(ctx context.Context) {
	interval := s.Config.Billing.SchedulerInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// ctx only decides loop exit. The tick body runs detached from it so a
	// shutdown mid-tick cannot strand a marked checkpoint without its
	// notification.
	tickCtx := context.WithoutCancel(ctx)

	s.Logger.Infow("precision scheduler started", "interval", interval)
	s.Tick(tickCtx)

	for {
		select {
		case <-ctx.Done():
			s.Logger.Infow("precision scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(tickCtx)
		}
	}
}

// Tick scans every client whose expiry falls inside the union of checkpoint
// detection windows. Each client is evaluated inside its own error boundary
// so one failure never aborts the rest of the tick.
func (s *precisionScheduler) Tick(ctx context.Context) {
	now := s.now()
	tolerance := s.Config.Billing.CheckpointTolerance

	// The farthest checkpoint sits 72h before expiry, so the scan window is
	// [now - tolerance, now + 72h + tolerance]
	from := now.Add(-tolerance)
	to := now.Add(types.CheckpointOffsets[types.CheckpointReminder72h] + tolerance)

	clients, err := s.ClientRepo.ListActiveWithExpiryBetween(ctx, from, to)
	if err != nil {
		s.Logger.Errorw("scheduler tick failed to list clients", "error", err)
		return
	}

	for _, c := range clients {
		if err := s.evaluateClient(ctx, c, now, tolerance); err != nil {
			s.Logger.Errorw("client checkpoint evaluation failed",
				"client_id", c.ID,
				"error", err)
		}
	}
}

func (s *precisionScheduler) evaluateClient(ctx context.Context, c *client.Client, now time.Time, tolerance time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Errorw("panic during checkpoint evaluation",
				"client_id", c.ID,
				"panic", r)
		}
	}()

	if c.SubscriptionEndDate == nil {
		return nil
	}
	expiry := c.SubscriptionEndDate.UTC()

	for _, cp := range types.AllCheckpoints {
		if !cp.InWindow(now, expiry, tolerance) {
			continue
		}
		if err := s.handleCheckpoint(ctx, c, cp, expiry, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *precisionScheduler) handleCheckpoint(ctx context.Context, c *client.Client, cp types.CheckpointType, expiry, now time.Time) error {
	key := s.idemGen.GenerateKey(idempotency.ScopeCheckpoint, map[string]interface{}{
		"client_id":  c.ID,
		"checkpoint": string(cp),
		"expiry":     expiry.Format(time.RFC3339),
	})

	alreadyFired, err := s.CheckpointRepo.MarkFired(ctx, &checkpoint.FiredCheckpoint{
		IdempotencyKey: key,
		ClientID:       c.ID,
		Checkpoint:     cp,
		ExpiryDate:     expiry,
		FiredAt:        now,
	})
	if err != nil {
		return err
	}
	if alreadyFired {
		return nil
	}

	// Fresh read for the decision: the record held since the tick started
	// may already be stale
	analysis, err := s.analyzer.Analyze(ctx, c.ID)
	if err != nil {
		return err
	}

	s.Logger.Infow("checkpoint crossed",
		"client_id", c.ID,
		"checkpoint", cp,
		"can_afford", analysis.CanAffordRenewal,
		"shortfall", analysis.Shortfall)

	switch cp {
	case types.CheckpointReminder72h:
		return s.sendReminder(ctx, analysis, 72)
	case types.CheckpointReminder48h:
		return s.sendReminder(ctx, analysis, 48)
	case types.CheckpointRenewal24h:
		return s.handleRenewalCheckpoint(ctx, analysis)
	case types.CheckpointExpiry:
		return s.handleExpiry(ctx, analysis)
	}
	return nil
}

// sendReminder fires the standard reminder when the wallet covers the
// upcoming charge, otherwise a targeted top-up reminder naming the exact
// shortfall.
func (s *precisionScheduler) sendReminder(ctx context.Context, analysis *WalletAnalysis, hoursRemaining int) error {
	var n *notification.Notification
	if analysis.CanAffordRenewal {
		n = notification.NewPaymentReminder(
			analysis.ClientID, hoursRemaining, analysis.RequiredAmount, analysis.PackageName)
	} else {
		n = notification.NewTopUpReminder(
			analysis.ClientID, hoursRemaining, analysis.Shortfall, analysis.PackageName)
	}
	return s.Notifier.Publish(ctx, n)
}

// handleRenewalCheckpoint runs the full decision engine at T-24h: an
// affordable client is renewed immediately; an unaffordable one gets the
// final urgent notification carrying the engine's recommended action.
func (s *precisionScheduler) handleRenewalCheckpoint(ctx context.Context, analysis *WalletAnalysis) error {
	action := s.engine.Decide(analysis)
	if action.Type == types.RenewalActionTopUpRequired {
		return s.Notifier.Publish(ctx, notification.NewFinalReminder(
			analysis.ClientID, analysis.Shortfall, analysis.PackageName, action.Message))
	}

	_, err := s.engine.Apply(ctx, action, analysis)
	return err
}

// handleExpiry runs the decision engine once more at T+0; a top-up that
// landed in the final window renews instead of suspending.
func (s *precisionScheduler) handleExpiry(ctx context.Context, analysis *WalletAnalysis) error {
	action := s.engine.Decide(analysis)
	if action.Type == types.RenewalActionTopUpRequired {
		return s.engine.ApplySuspension(ctx, analysis)
	}

	_, err := s.engine.Apply(ctx, action, analysis)
	return err
}
