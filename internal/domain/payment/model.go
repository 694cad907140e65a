package payment

import (
	"time"

	"github.com/halonet/billing-engine/internal/types"
	"github.com/shopspring/decimal"
)

// GatewayTransaction is a read-only view of a payment the external gateway
// has confirmed. The engine does not own these records; its only obligation
// is to consume each reference exactly once.
type GatewayTransaction struct {
	Reference        string              `json:"reference"`
	ClientID         string              `json:"client_id"`
	Amount           decimal.Decimal     `json:"amount"`
	Method           types.PaymentMethod `json:"method"`
	BillingReference string              `json:"billing_reference,omitempty"`
	ConfirmedAt      time.Time           `json:"confirmed_at"`
}

// Intent classifies the transaction by its billing reference
func (t *GatewayTransaction) Intent() types.PaymentIntent {
	return types.ClassifyPaymentIntent(t.BillingReference)
}

// ProcessedPayment records a gateway reference the worker has already
// consumed. The reference column carries a unique constraint; inserting a
// duplicate signals the worker to skip.
type ProcessedPayment struct {
	Reference   string              `db:"reference" json:"reference"`
	ClientID    string              `db:"client_id" json:"client_id"`
	Amount      decimal.Decimal     `db:"amount" json:"amount"`
	Method      types.PaymentMethod `db:"method" json:"method"`
	Intent      types.PaymentIntent `db:"intent" json:"intent"`
	ProcessedAt time.Time           `db:"processed_at" json:"processed_at"`
}
