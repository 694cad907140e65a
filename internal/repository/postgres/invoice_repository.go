package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/halonet/billing-engine/internal/domain/invoice"
	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/logger"
	"github.com/halonet/billing-engine/internal/postgres"
	"github.com/halonet/billing-engine/internal/types"
	"github.com/shopspring/decimal"
)

type invoiceRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewInvoiceRepository creates a postgres-backed installation invoice repository
func NewInvoiceRepository(db postgres.IClient, log *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: log}
}

const invoiceColumns = `
	id, client_id, amount, invoice_status, billing_reference,
	payment_method, payment_reference, paid_at, status, created_at, updated_at`

func (r *invoiceRepository) scan(row interface{ Scan(...interface{}) error }) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	var amount string
	var method, payRef sql.NullString
	var paidAt sql.NullTime

	err := row.Scan(
		&inv.ID, &inv.ClientID, &amount, &inv.InvoiceStatus, &inv.BillingReference,
		&method, &payRef, &paidAt, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if inv.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	if method.Valid {
		inv.PaymentMethod = types.PaymentMethod(method.String)
	}
	if payRef.Valid {
		inv.PaymentReference = &payRef.String
	}
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		inv.PaidAt = &t
	}
	return &inv, nil
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	if err := inv.Validate(); err != nil {
		return err
	}

	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		INSERT INTO installation_invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		inv.ID, inv.ClientID, inv.Amount.String(), inv.InvoiceStatus,
		inv.BillingReference, nullString(string(inv.PaymentMethod)),
		inv.PaymentReference, nullTime(inv.PaidAt),
		inv.Status, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create installation invoice").
			WithReportableDetails(map[string]interface{}{"invoice_id": inv.ID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	row := r.db.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM installation_invoices
		WHERE id = $1`, id)

	inv, err := r.scan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("invoice not found").
				WithReportableDetails(map[string]interface{}{"invoice_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return inv, nil
}

func (r *invoiceRepository) GetPendingByBillingReference(ctx context.Context, billingReference string) (*invoice.Invoice, error) {
	row := r.db.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM installation_invoices
		WHERE billing_reference = $1 AND invoice_status = $2
		ORDER BY created_at ASC
		LIMIT 1`,
		billingReference, types.InvoiceStatusPending)

	inv, err := r.scan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("no pending invoice for billing reference").
				WithReportableDetails(map[string]interface{}{
					"billing_reference": billingReference,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return inv, nil
}

func (r *invoiceRepository) MarkPaid(ctx context.Context, params invoice.MarkPaidParams) error {
	res, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE installation_invoices
		SET invoice_status = $1, payment_method = $2, payment_reference = $3,
		    paid_at = $4, updated_at = $5
		WHERE id = $6 AND invoice_status = $7`,
		types.InvoiceStatusPaid, params.PaymentMethod, params.PaymentReference,
		params.PaidAt, time.Now().UTC(),
		params.InvoiceID, types.InvoiceStatusPending)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark invoice paid").
			WithReportableDetails(map[string]interface{}{"invoice_id": params.InvoiceID}).
			Mark(ierr.ErrDatabase)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	if n == 0 {
		return ierr.NewError("invoice is not pending").
			WithReportableDetails(map[string]interface{}{"invoice_id": params.InvoiceID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
