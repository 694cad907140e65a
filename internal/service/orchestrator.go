package service

import (
	"context"
	"sync"

	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/types"
)

const (
	ProcessScheduler        = "precision_scheduler"
	ProcessPaymentIngestion = "payment_ingestion"
)

// AutomationOrchestrator owns the lifecycle of the background processes and
// routes discrete client lifecycle events to the correct handler. It is
// constructed once at process start; nothing auto-starts on import.
type AutomationOrchestrator interface {
	// StartAll launches the scheduler and ingestion loops
	StartAll()

	// StopAll cancels both loops and blocks until in-flight iterations
	// finish. Idempotent.
	StopAll()

	// Status reports running state per sub-process
	Status() map[string]bool

	// RouteClientEvent dispatches a lifecycle event for a client
	RouteClientEvent(ctx context.Context, clientID string, event types.ClientEvent) error
}

type automationOrchestrator struct {
	ServiceParams
	scheduler PrecisionScheduler
	worker    PaymentIngestionWorker
	analyzer  WalletAnalyzer
	engine    RenewalDecisionEngine

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	// done is closed per process when its loop returns, so Status can
	// report a loop that exited on its own
	done map[string]chan struct{}
}

// NewAutomationOrchestrator creates the orchestrator over the background
// processes and the decision engine.
func NewAutomationOrchestrator(
	params ServiceParams,
	scheduler PrecisionScheduler,
	worker PaymentIngestionWorker,
	analyzer WalletAnalyzer,
	engine RenewalDecisionEngine,
) AutomationOrchestrator {
	return &automationOrchestrator{
		ServiceParams: params,
		scheduler:     scheduler,
		worker:        worker,
		analyzer:      analyzer,
		engine:        engine,
	}
}

func (o *automationOrchestrator) StartAll() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		o.Logger.Warnw("automation already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.running = true
	o.done = map[string]chan struct{}{
		ProcessScheduler:        make(chan struct{}),
		ProcessPaymentIngestion: make(chan struct{}),
	}

	o.wg.Add(2)
	go func() {
		defer o.wg.Done()
		defer close(o.done[ProcessScheduler])
		o.scheduler.Run(ctx)
	}()
	go func() {
		defer o.wg.Done()
		defer close(o.done[ProcessPaymentIngestion])
		o.worker.Run(ctx)
	}()

	o.Logger.Infow("automation started",
		"processes", []string{ProcessScheduler, ProcessPaymentIngestion})
}

func (o *automationOrchestrator) StopAll() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.cancel()
	o.running = false
	o.mu.Unlock()

	// Let any iteration already in flight finish; no mid-iteration abort
	o.wg.Wait()
	o.Logger.Infow("automation stopped")
}

func (o *automationOrchestrator) Status() map[string]bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := map[string]bool{
		ProcessScheduler:        false,
		ProcessPaymentIngestion: false,
	}
	if !o.running {
		return status
	}
	for name, done := range o.done {
		select {
		case <-done:
		default:
			status[name] = true
		}
	}
	return status
}

func (o *automationOrchestrator) RouteClientEvent(ctx context.Context, clientID string, event types.ClientEvent) error {
	o.Logger.Infow("routing client event", "client_id", clientID, "event", event)

	switch event {
	case types.ClientEventActivate:
		if err := o.ClientRepo.UpdateStatus(ctx, clientID, types.ClientStatusActive); err != nil {
			return err
		}
		if o.Provisioner != nil {
			if err := o.Provisioner.EnableMonitoring(ctx, clientID); err != nil {
				o.Logger.Errorw("failed to enable monitoring", "client_id", clientID, "error", err)
			}
		}
		return nil

	case types.ClientEventSuspend:
		if err := o.ClientRepo.UpdateStatus(ctx, clientID, types.ClientStatusSuspended); err != nil {
			return err
		}
		if o.Provisioner != nil {
			if err := o.Provisioner.DisableMonitoring(ctx, clientID); err != nil {
				o.Logger.Errorw("failed to disable monitoring", "client_id", clientID, "error", err)
			}
		}
		return nil

	case types.ClientEventPaymentReceived:
		analysis, err := o.analyzer.Analyze(ctx, clientID)
		if err != nil {
			return err
		}
		action := o.engine.Decide(analysis)
		if action.Type == types.RenewalActionTopUpRequired {
			// Nothing to renew yet; the scheduler keeps reminding
			return nil
		}
		_, err = o.engine.Apply(ctx, action, analysis)
		return err

	default:
		return ierr.NewErrorf("unknown client event: %s", event).
			WithReportableDetails(map[string]interface{}{
				"client_id": clientID,
			}).
			Mark(ierr.ErrValidation)
	}
}
