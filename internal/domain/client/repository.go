package client

import (
	"context"
	"time"

	"github.com/halonet/billing-engine/internal/types"
	"github.com/shopspring/decimal"
)

// RenewalUpdate is the single-transaction mutation applied on renewal:
// balance debit, expiry advance and status change move together so a client
// can never end up debited with an unchanged expiry.
type RenewalUpdate struct {
	ClientID     string
	DebitAmount  decimal.Decimal
	NewEndDate   time.Time
	NewStatus    types.ClientStatus
}

// Repository defines persistence operations for client records
type Repository interface {
	// Get retrieves a client by id
	Get(ctx context.Context, id string) (*Client, error)

	// Create persists a new client record
	Create(ctx context.Context, c *Client) error

	// ListActiveWithExpiryBetween returns active clients whose subscription
	// end date falls inside [from, to]. The scheduler bounds this window to
	// the union of checkpoint detection windows for the current tick.
	ListActiveWithExpiryBetween(ctx context.Context, from, to time.Time) ([]*Client, error)

	// CreditBalance atomically increments the wallet balance
	CreditBalance(ctx context.Context, clientID string, amount decimal.Decimal) error

	// DebitBalance atomically decrements the wallet balance; fails without
	// mutation if the available balance does not cover the amount
	DebitBalance(ctx context.Context, clientID string, amount decimal.Decimal) error

	// ApplyRenewal applies a RenewalUpdate as one atomic unit
	ApplyRenewal(ctx context.Context, update RenewalUpdate) error

	// UpdateStatus transitions the client to the given status
	UpdateStatus(ctx context.Context, clientID string, status types.ClientStatus) error
}
