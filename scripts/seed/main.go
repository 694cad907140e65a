// Seeds a local database with demo clients covering every renewal path:
// one that can afford full renewal, one in prorated-partial territory, one
// below the proration floor and one pending installation.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/halonet/billing-engine/internal/config"
	"github.com/halonet/billing-engine/internal/domain/client"
	"github.com/halonet/billing-engine/internal/domain/invoice"
	"github.com/halonet/billing-engine/internal/logger"
	"github.com/halonet/billing-engine/internal/postgres"
	repo "github.com/halonet/billing-engine/internal/repository/postgres"
	"github.com/halonet/billing-engine/internal/types"
)

type seedClient struct {
	name    string
	pkg     string
	rate    string
	balance string
	expires time.Duration
	status  types.ClientStatus
}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	lg, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	db, err := postgres.NewClient(cfg, lg)
	if err != nil {
		lg.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	clientRepo := repo.NewClientRepository(db, lg)
	invoiceRepo := repo.NewInvoiceRepository(db, lg)
	ctx := context.Background()

	seeds := []seedClient{
		{"Amara Diallo", "Home 20Mbps", "1000", "1500", 73 * time.Hour, types.ClientStatusActive},
		{"Kwame Mensah", "Home 20Mbps", "1000", "400", 49 * time.Hour, types.ClientStatusActive},
		{"Fatou Ndiaye", "Home 50Mbps", "2500", "120", 25 * time.Hour, types.ClientStatusActive},
		{"Chinedu Okafor", "Home 50Mbps", "2500", "0", 0, types.ClientStatusPending},
	}

	ids := lo.Map(seeds, func(s seedClient, i int) string {
		id := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CLIENT)
		c := &client.Client{
			ID:                 id,
			Name:               s.name,
			ServicePackageName: s.pkg,
			MonthlyRate:        decimal.RequireFromString(s.rate),
			WalletBalance:      decimal.RequireFromString(s.balance),
			ClientStatus:       s.status,
			BaseModel:          types.GetDefaultBaseModel(ctx),
		}
		if s.expires > 0 {
			end := time.Now().UTC().Add(s.expires)
			c.SubscriptionEndDate = &end
		}
		if err := clientRepo.Create(ctx, c); err != nil {
			lg.Fatalw("failed to seed client", "name", s.name, "error", err)
		}
		lg.Infow("seeded client", "client_id", id, "name", s.name, "balance", s.balance)
		return id
	})

	// The pending client gets an open installation invoice the ingestion
	// worker can match against an INST- payment
	inv := &invoice.Invoice{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		ClientID:         ids[len(ids)-1],
		Amount:           decimal.RequireFromString("5000"),
		InvoiceStatus:    types.InvoiceStatusPending,
		BillingReference: fmt.Sprintf("INST-%d", time.Now().Unix()),
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
	if err := invoiceRepo.Create(ctx, inv); err != nil {
		lg.Fatalw("failed to seed installation invoice", "error", err)
	}
	lg.Infow("seeded installation invoice",
		"invoice_id", inv.ID,
		"billing_reference", inv.BillingReference)
}
