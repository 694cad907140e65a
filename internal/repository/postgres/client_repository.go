package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/halonet/billing-engine/internal/domain/client"
	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/logger"
	"github.com/halonet/billing-engine/internal/postgres"
	"github.com/halonet/billing-engine/internal/types"
	"github.com/shopspring/decimal"
)

type clientRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewClientRepository creates a postgres-backed client repository
func NewClientRepository(db postgres.IClient, log *logger.Logger) client.Repository {
	return &clientRepository{db: db, logger: log}
}

const clientColumns = `
	id, name, phone, service_package_name, monthly_rate, wallet_balance,
	subscription_end_date, client_status, status, created_at, updated_at`

func (r *clientRepository) scan(row interface{ Scan(...interface{}) error }) (*client.Client, error) {
	var c client.Client
	var endDate sql.NullTime
	var rate, balance string

	err := row.Scan(
		&c.ID, &c.Name, &c.Phone, &c.ServicePackageName, &rate, &balance,
		&endDate, &c.ClientStatus, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if c.MonthlyRate, err = decimal.NewFromString(rate); err != nil {
		return nil, err
	}
	if c.WalletBalance, err = decimal.NewFromString(balance); err != nil {
		return nil, err
	}
	if endDate.Valid {
		t := endDate.Time.UTC()
		c.SubscriptionEndDate = &t
	}
	return &c, nil
}

func (r *clientRepository) Get(ctx context.Context, id string) (*client.Client, error) {
	row := r.db.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE id = $1 AND status = $2`,
		id, types.StatusPublished)

	c, err := r.scan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("client not found").
				WithReportableDetails(map[string]interface{}{"client_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to read client").
			Mark(ierr.ErrDatabase)
	}
	return c, nil
}

func (r *clientRepository) Create(ctx context.Context, c *client.Client) error {
	if err := c.Validate(); err != nil {
		return err
	}

	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.Name, c.Phone, c.ServicePackageName,
		c.MonthlyRate.String(), c.WalletBalance.String(),
		nullTime(c.SubscriptionEndDate), c.ClientStatus,
		c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create client").
			WithReportableDetails(map[string]interface{}{"client_id": c.ID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *clientRepository) ListActiveWithExpiryBetween(ctx context.Context, from, to time.Time) ([]*client.Client, error) {
	rows, err := r.db.Querier(ctx).QueryContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE client_status = $1
		  AND status = $2
		  AND subscription_end_date IS NOT NULL
		  AND subscription_end_date BETWEEN $3 AND $4
		ORDER BY subscription_end_date ASC`,
		types.ClientStatusActive, types.StatusPublished, from, to)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list clients by expiry window").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var clients []*client.Client
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan client row").
				Mark(ierr.ErrDatabase)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return clients, nil
}

// CreditBalance increments the balance in the datastore, never
// read-then-write in the application layer.
func (r *clientRepository) CreditBalance(ctx context.Context, clientID string, amount decimal.Decimal) error {
	res, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE clients
		SET wallet_balance = wallet_balance + $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		amount.String(), time.Now().UTC(), clientID, types.StatusPublished)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to credit wallet balance").
			WithReportableDetails(map[string]interface{}{
				"client_id": clientID,
				"amount":    amount,
			}).
			Mark(ierr.ErrDatabase)
	}
	return r.requireOneRow(res, clientID)
}

// DebitBalance decrements the balance only when it covers the amount; the
// WHERE guard keeps the non-negative invariant inside the datastore.
func (r *clientRepository) DebitBalance(ctx context.Context, clientID string, amount decimal.Decimal) error {
	res, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE clients
		SET wallet_balance = wallet_balance - $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND wallet_balance >= $1`,
		amount.String(), time.Now().UTC(), clientID, types.StatusPublished)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to debit wallet balance").
			WithReportableDetails(map[string]interface{}{
				"client_id": clientID,
				"amount":    amount,
			}).
			Mark(ierr.ErrDatabase)
	}
	return r.requireOneRow(res, clientID)
}

func (r *clientRepository) ApplyRenewal(ctx context.Context, update client.RenewalUpdate) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if err := r.db.LockKey(ctx, postgres.WalletLockKey(update.ClientID), 0); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to lock wallet for renewal").
				Mark(ierr.ErrDatabase)
		}

		res, err := r.db.Querier(ctx).ExecContext(ctx, `
			UPDATE clients
			SET wallet_balance = wallet_balance - $1,
			    subscription_end_date = $2,
			    client_status = $3,
			    updated_at = $4
			WHERE id = $5 AND status = $6 AND wallet_balance >= $1`,
			update.DebitAmount.String(), update.NewEndDate,
			update.NewStatus, time.Now().UTC(),
			update.ClientID, types.StatusPublished)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to apply renewal update").
				WithReportableDetails(map[string]interface{}{
					"client_id": update.ClientID,
					"debit":     update.DebitAmount,
				}).
				Mark(ierr.ErrDatabase)
		}
		return r.requireOneRow(res, update.ClientID)
	})
}

func (r *clientRepository) UpdateStatus(ctx context.Context, clientID string, status types.ClientStatus) error {
	res, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE clients
		SET client_status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		status, time.Now().UTC(), clientID, types.StatusPublished)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update client status").
			WithReportableDetails(map[string]interface{}{
				"client_id": clientID,
				"to_status": status,
			}).
			Mark(ierr.ErrDatabase)
	}
	return r.requireOneRow(res, clientID)
}

func (r *clientRepository) requireOneRow(res sql.Result, clientID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	if n == 0 {
		return ierr.NewError("client not found or balance insufficient").
			WithReportableDetails(map[string]interface{}{"client_id": clientID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
