package service

import (
	"context"
	"math"

	"github.com/halonet/billing-engine/internal/domain/client"
	"github.com/shopspring/decimal"
)

// WalletAnalysis is a transient snapshot of a client's wallet against the
// recurring fee. It is recomputed on every evaluation and never cached, so
// it is always consistent with the record read immediately before it.
type WalletAnalysis struct {
	ClientID         string
	CurrentBalance   decimal.Decimal
	RequiredAmount   decimal.Decimal
	Shortfall        decimal.Decimal
	CanAffordRenewal bool
	DaysUntilExpiry  int
	PackageName      string
}

// WalletAnalyzer produces WalletAnalysis snapshots. Pure computation over a
// single read; a read failure aborts only that client's evaluation.
type WalletAnalyzer interface {
	// Analyze reads the client record and computes the snapshot
	Analyze(ctx context.Context, clientID string) (*WalletAnalysis, error)

	// AnalyzeClient computes the snapshot for a record the caller already
	// holds, avoiding a second read within the same evaluation
	AnalyzeClient(c *client.Client) *WalletAnalysis
}

type walletAnalyzer struct {
	ServiceParams
}

// NewWalletAnalyzer creates a new wallet analyzer
func NewWalletAnalyzer(params ServiceParams) WalletAnalyzer {
	return &walletAnalyzer{ServiceParams: params}
}

func (a *walletAnalyzer) Analyze(ctx context.Context, clientID string) (*WalletAnalysis, error) {
	c, err := a.ClientRepo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeClient(c), nil
}

func (a *walletAnalyzer) AnalyzeClient(c *client.Client) *WalletAnalysis {
	required := c.MonthlyRate.Round(2)
	balance := c.WalletBalance.Round(2)

	shortfall := required.Sub(balance)
	if shortfall.IsNegative() {
		shortfall = decimal.Zero
	}

	// Ceiling day count: a client expiring in 30 minutes has "1 day left"
	days := 0
	if c.SubscriptionEndDate != nil {
		remaining := c.SubscriptionEndDate.Sub(a.now())
		days = int(math.Ceil(remaining.Hours() / 24))
	}

	return &WalletAnalysis{
		ClientID:         c.ID,
		CurrentBalance:   balance,
		RequiredAmount:   required,
		Shortfall:        shortfall,
		CanAffordRenewal: balance.GreaterThanOrEqual(required),
		DaysUntilExpiry:  days,
		PackageName:      c.ServicePackageName,
	}
}
