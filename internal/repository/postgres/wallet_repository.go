package postgres

import (
	"context"
	"database/sql"

	"github.com/halonet/billing-engine/internal/domain/wallet"
	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/logger"
	"github.com/halonet/billing-engine/internal/postgres"
	"github.com/shopspring/decimal"
)

type walletRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewWalletRepository creates a postgres-backed wallet ledger repository
func NewWalletRepository(db postgres.IClient, log *logger.Logger) wallet.Repository {
	return &walletRepository{db: db, logger: log}
}

func (r *walletRepository) Create(ctx context.Context, txn *wallet.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}

	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		INSERT INTO wallet_transactions (
			id, client_id, type, amount, balance_before, balance_after,
			reason, description, external_reference, payment_method,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		txn.ID, txn.ClientID, txn.Type,
		txn.Amount.String(), txn.BalanceBefore.String(), txn.BalanceAfter.String(),
		txn.Reason, txn.Description, txn.ExternalReference, txn.PaymentMethod,
		txn.Status, txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to append wallet transaction").
			WithReportableDetails(map[string]interface{}{
				"transaction_id": txn.ID,
				"client_id":      txn.ClientID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *walletRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]*wallet.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Querier(ctx).QueryContext(ctx, `
		SELECT id, client_id, type, amount, balance_before, balance_after,
		       reason, description, external_reference, payment_method,
		       status, created_at, updated_at
		FROM wallet_transactions
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		clientID, limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list wallet transactions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var txns []*wallet.Transaction
	for rows.Next() {
		var t wallet.Transaction
		var amount, before, after string
		var ref sql.NullString

		err := rows.Scan(
			&t.ID, &t.ClientID, &t.Type, &amount, &before, &after,
			&t.Reason, &t.Description, &ref, &t.PaymentMethod,
			&t.Status, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
		}

		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
		}
		if t.BalanceBefore, err = decimal.NewFromString(before); err != nil {
			return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
		}
		if t.BalanceAfter, err = decimal.NewFromString(after); err != nil {
			return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
		}
		if ref.Valid {
			t.ExternalReference = &ref.String
		}
		txns = append(txns, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return txns, nil
}

func (r *walletRepository) HasExternalReference(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.db.Querier(ctx).QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM wallet_transactions WHERE external_reference = $1
		)`, reference).Scan(&exists)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check external reference").
			Mark(ierr.ErrDatabase)
	}
	return exists, nil
}
