package gateway

import (
	"context"
	"time"

	"github.com/halonet/billing-engine/internal/domain/payment"
)

// Provider is a payment channel the ingestion worker polls for confirmed
// transactions. Implementations must bound every call with the request
// context so a slow channel cannot stall a whole tick.
type Provider interface {
	// Name identifies the channel in logs and dedup records
	Name() string

	// ListConfirmedTransactions returns transactions the gateway confirmed
	// at or after since. The worker re-observes overlapping windows; the
	// provider does not need to dedupe.
	ListConfirmedTransactions(ctx context.Context, since time.Time) ([]*payment.GatewayTransaction, error)
}
