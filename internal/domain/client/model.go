package client

import (
	"time"

	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/types"
	"github.com/shopspring/decimal"
)

// Client is a subscriber record: identity plus the wallet and subscription
// fields the renewal engine mutates. The wallet balance is never negative at
// rest; debits are guarded at the datastore level.
type Client struct {
	ID                  string             `db:"id" json:"id"`
	Name                string             `db:"name" json:"name"`
	Phone               string             `db:"phone" json:"phone,omitempty"`
	ServicePackageName  string             `db:"service_package_name" json:"service_package_name"`
	MonthlyRate         decimal.Decimal    `db:"monthly_rate" json:"monthly_rate"`
	WalletBalance       decimal.Decimal    `db:"wallet_balance" json:"wallet_balance"`
	SubscriptionEndDate *time.Time         `db:"subscription_end_date" json:"subscription_end_date,omitempty"`
	ClientStatus        types.ClientStatus `db:"client_status" json:"client_status"`
	types.BaseModel
}

// Validate validates the client record
func (c *Client) Validate() error {
	if c.ID == "" {
		return ierr.NewError("client id is required").Mark(ierr.ErrValidation)
	}
	if c.MonthlyRate.IsNegative() {
		return ierr.NewError("monthly rate cannot be negative").
			WithReportableDetails(map[string]interface{}{
				"client_id":    c.ID,
				"monthly_rate": c.MonthlyRate,
			}).
			Mark(ierr.ErrValidation)
	}
	if c.WalletBalance.IsNegative() {
		return ierr.NewError("wallet balance cannot be negative").
			WithReportableDetails(map[string]interface{}{
				"client_id": c.ID,
				"balance":   c.WalletBalance,
			}).
			Mark(ierr.ErrValidation)
	}
	if !c.ClientStatus.Validate() {
		return ierr.NewErrorf("invalid client status: %s", c.ClientStatus).Mark(ierr.ErrValidation)
	}
	return nil
}

// IsActive reports whether the client is billable
func (c *Client) IsActive() bool {
	return c.ClientStatus == types.ClientStatusActive
}
