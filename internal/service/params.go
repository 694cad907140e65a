package service

import (
	"time"

	"github.com/halonet/billing-engine/internal/cache"
	"github.com/halonet/billing-engine/internal/config"
	"github.com/halonet/billing-engine/internal/domain/checkpoint"
	"github.com/halonet/billing-engine/internal/domain/client"
	"github.com/halonet/billing-engine/internal/domain/invoice"
	"github.com/halonet/billing-engine/internal/domain/payment"
	"github.com/halonet/billing-engine/internal/domain/wallet"
	"github.com/halonet/billing-engine/internal/gateway"
	"github.com/halonet/billing-engine/internal/logger"
	"github.com/halonet/billing-engine/internal/notification"
	"github.com/halonet/billing-engine/internal/postgres"
	"github.com/halonet/billing-engine/internal/provisioning"
)

// ServiceParams bundles the dependencies shared across services. Services
// embed it and pick what they need.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	ClientRepo     client.Repository
	WalletRepo     wallet.Repository
	InvoiceRepo    invoice.Repository
	PaymentRepo    payment.Repository
	CheckpointRepo checkpoint.Repository

	GatewayProviders []gateway.Provider
	Notifier         notification.Publisher
	Provisioner      provisioning.Service

	Cache cache.Cache

	// Now returns the current time; injected so scheduler and engine tests
	// can pin the clock. Defaults to time.Now (UTC) when nil.
	Now func() time.Time
}

func (p ServiceParams) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}
