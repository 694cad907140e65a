package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/halonet/billing-engine/internal/cache"
	"github.com/halonet/billing-engine/internal/config"
	"github.com/halonet/billing-engine/internal/gateway"
	"github.com/halonet/billing-engine/internal/logger"
	"github.com/halonet/billing-engine/internal/notification"
	"github.com/halonet/billing-engine/internal/postgres"
	"github.com/halonet/billing-engine/internal/provisioning"
	repo "github.com/halonet/billing-engine/internal/repository/postgres"
	"github.com/halonet/billing-engine/internal/service"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	lg, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer lg.Sync()

	db, err := postgres.NewClient(cfg, lg)
	if err != nil {
		lg.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	notifier, closeNotifier, err := buildPublisher(cfg, lg)
	if err != nil {
		lg.Fatalw("failed to initialize notification publisher", "error", err)
	}
	defer closeNotifier()

	params := service.ServiceParams{
		Logger: lg,
		Config: cfg,
		DB:     db,

		ClientRepo:     repo.NewClientRepository(db, lg),
		WalletRepo:     repo.NewWalletRepository(db, lg),
		InvoiceRepo:    repo.NewInvoiceRepository(db, lg),
		PaymentRepo:    repo.NewPaymentRepository(db, lg),
		CheckpointRepo: repo.NewCheckpointRepository(db, lg),

		GatewayProviders: buildProviders(cfg, lg),
		Notifier:         notifier,
		Provisioner:      provisioning.NewHTTPService(cfg.Provisioning, lg),
		Cache:            cache.NewInMemoryCache(),
	}

	analyzer := service.NewWalletAnalyzer(params)
	engine := service.NewRenewalDecisionEngine(params)
	scheduler := service.NewPrecisionScheduler(params, analyzer, engine)
	worker := service.NewPaymentIngestionWorker(params, analyzer, engine)

	orchestrator := service.NewAutomationOrchestrator(params, scheduler, worker, analyzer, engine)
	orchestrator.StartAll()

	lg.Infow("billing engine started",
		"mode", cfg.Deployment.Mode,
		"scheduler_interval", cfg.Billing.SchedulerInterval,
		"ingestion_interval", cfg.Billing.IngestionInterval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	lg.Infow("shutdown signal received, stopping automation")
	orchestrator.StopAll()
	lg.Infow("billing engine stopped")
}

func buildPublisher(cfg *config.Configuration, lg *logger.Logger) (notification.Publisher, func(), error) {
	if !cfg.Kafka.Enabled {
		lg.Infow("kafka disabled, notifications go to the log")
		return notification.NewLogPublisher(lg), func() {}, nil
	}
	kp, err := notification.NewKafkaPublisher(cfg, lg)
	if err != nil {
		return nil, nil, err
	}
	return kp, func() { _ = kp.Close() }, nil
}

func buildProviders(cfg *config.Configuration, lg *logger.Logger) []gateway.Provider {
	providers := make([]gateway.Provider, 0, 2)
	if cfg.Gateways.MobileMoney.Enabled {
		providers = append(providers, gateway.NewMobileMoneyProvider(cfg.Gateways.MobileMoney, lg))
	}
	if cfg.Gateways.Bank.Enabled {
		providers = append(providers, gateway.NewBankProvider(cfg.Gateways.Bank, lg))
	}
	if len(providers) == 0 {
		lg.Warnw("no payment gateways enabled, ingestion will idle")
	}
	return providers
}
