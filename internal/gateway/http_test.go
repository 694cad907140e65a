package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halonet/billing-engine/internal/config"
	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/logger"
	"github.com/halonet/billing-engine/internal/types"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*HTTPProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewMobileMoneyProvider(config.GatewayConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	}, logger.GetLogger())
	return p, srv
}

func TestListConfirmedTransactions(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions", r.URL.Path)
		assert.Equal(t, "confirmed", r.URL.Query().Get("status"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.URL.Query().Get("since"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"transactions": [
				{
					"reference": "MM-001",
					"client_id": "client_01",
					"amount": "250.00",
					"billing_reference": "",
					"confirmed_at": "2024-06-01T11:58:00Z"
				},
				{
					"reference": "MM-002",
					"client_id": "client_02",
					"amount": "5000",
					"billing_reference": "INST-2024-0001",
					"confirmed_at": "2024-06-01T11:59:00Z"
				}
			]
		}`))
	})

	txns, err := p.ListConfirmedTransactions(context.Background(), time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, "MM-001", txns[0].Reference)
	assert.Equal(t, "250.00", txns[0].Amount.StringFixed(2))
	assert.Equal(t, types.PaymentMethodMobileMoney, txns[0].Method)
	assert.Equal(t, types.PaymentIntentWalletTopUp, txns[0].Intent())
	assert.Equal(t, types.PaymentIntentInstallation, txns[1].Intent())
}

func TestListConfirmedTransactionsEmpty(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"transactions": []}`))
	})

	txns, err := p.ListConfirmedTransactions(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestListConfirmedTransactionsServerError(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := p.ListConfirmedTransactions(context.Background(), time.Now())
	require.Error(t, err)
	assert.True(t, ierr.IsHTTPClient(err))
}

func TestListConfirmedTransactionsMalformedBody(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"transactions": [`))
	})

	_, err := p.ListConfirmedTransactions(context.Background(), time.Now())
	require.Error(t, err)
	assert.True(t, ierr.IsHTTPClient(err))
}
