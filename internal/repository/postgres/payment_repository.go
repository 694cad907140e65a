package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"

	"github.com/halonet/billing-engine/internal/domain/payment"
	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/logger"
	"github.com/halonet/billing-engine/internal/postgres"
)

type paymentRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewPaymentRepository creates a postgres-backed processed-payment repository
func NewPaymentRepository(db postgres.IClient, log *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: log}
}

// MarkProcessed inserts the reference; the unique constraint on reference is
// what enforces exactly-once consumption.
func (r *paymentRepository) MarkProcessed(ctx context.Context, p *payment.ProcessedPayment) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		INSERT INTO processed_payments (
			reference, client_id, amount, method, intent, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.Reference, p.ClientID, p.Amount.String(), p.Method, p.Intent, p.ProcessedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.NewError("payment reference already processed").
				WithReportableDetails(map[string]interface{}{
					"reference": p.Reference,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to record processed payment").
			WithReportableDetails(map[string]interface{}{"reference": p.Reference}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) IsProcessed(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.db.Querier(ctx).QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM processed_payments WHERE reference = $1
		)`, reference).Scan(&exists)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check processed payment").
			Mark(ierr.ErrDatabase)
	}
	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// PostgreSQL error code 23505 = unique_violation
		return pqErr.Code == "23505"
	}
	return false
}
