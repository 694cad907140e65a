package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"github.com/halonet/billing-engine/internal/config"
	"github.com/halonet/billing-engine/internal/domain/payment"
	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/logger"
	"github.com/halonet/billing-engine/internal/types"
)

// transactionEnvelope is the vendor-neutral JSON contract of the gateway
// query API: GET /v1/transactions?status=confirmed&since=<RFC3339>
type transactionEnvelope struct {
	Transactions []gatewayTransaction `json:"transactions"`
}

type gatewayTransaction struct {
	Reference        string          `json:"reference"`
	ClientID         string          `json:"client_id"`
	Amount           decimal.Decimal `json:"amount"`
	BillingReference string          `json:"billing_reference"`
	ConfirmedAt      time.Time       `json:"confirmed_at"`
}

// HTTPProvider queries a gateway's confirmed-transaction endpoint over a
// retrying HTTP client with bounded timeouts.
type HTTPProvider struct {
	name    string
	method  types.PaymentMethod
	baseURL string
	apiKey  string
	client  *retryablehttp.Client
	logger  *logger.Logger
}

// NewMobileMoneyProvider creates the mobile-money channel provider
func NewMobileMoneyProvider(cfg config.GatewayConfig, log *logger.Logger) *HTTPProvider {
	return newHTTPProvider("mobile_money", types.PaymentMethodMobileMoney, cfg, log)
}

// NewBankProvider creates the bank-transfer channel provider
func NewBankProvider(cfg config.GatewayConfig, log *logger.Logger) *HTTPProvider {
	return newHTTPProvider("bank", types.PaymentMethodBankTransfer, cfg, log)
}

func newHTTPProvider(name string, method types.PaymentMethod, cfg config.GatewayConfig, log *logger.Logger) *HTTPProvider {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = cfg.Timeout
	if client.HTTPClient.Timeout <= 0 {
		client.HTTPClient.Timeout = 15 * time.Second
	}
	client.Logger = nil

	return &HTTPProvider{
		name:    name,
		method:  method,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  client,
		logger:  log,
	}
}

func (p *HTTPProvider) Name() string {
	return p.name
}

func (p *HTTPProvider) ListConfirmedTransactions(ctx context.Context, since time.Time) ([]*payment.GatewayTransaction, error) {
	endpoint := fmt.Sprintf("%s/v1/transactions?%s", p.baseURL, url.Values{
		"status": {"confirmed"},
		"since":  {since.UTC().Format(time.RFC3339)},
	}.Encode())

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to build gateway request").
			Mark(ierr.ErrHTTPClient)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Gateway query failed").
			WithReportableDetails(map[string]interface{}{
				"provider": p.name,
			}).
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ierr.NewErrorf("gateway returned status %d", resp.StatusCode).
			WithReportableDetails(map[string]interface{}{
				"provider": p.name,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	var envelope transactionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode gateway response").
			Mark(ierr.ErrHTTPClient)
	}

	txns := make([]*payment.GatewayTransaction, 0, len(envelope.Transactions))
	for _, t := range envelope.Transactions {
		txns = append(txns, &payment.GatewayTransaction{
			Reference:        t.Reference,
			ClientID:         t.ClientID,
			Amount:           t.Amount,
			Method:           p.method,
			BillingReference: t.BillingReference,
			ConfirmedAt:      t.ConfirmedAt,
		})
	}

	p.logger.Debugw("polled gateway",
		"provider", p.name,
		"since", since,
		"count", len(txns))
	return txns, nil
}
