package postgres

import (
	"context"

	"github.com/halonet/billing-engine/internal/domain/checkpoint"
	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/logger"
	"github.com/halonet/billing-engine/internal/postgres"
)

type checkpointRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewCheckpointRepository creates a postgres-backed fired-checkpoint repository
func NewCheckpointRepository(db postgres.IClient, log *logger.Logger) checkpoint.Repository {
	return &checkpointRepository{db: db, logger: log}
}

// MarkFired inserts the checkpoint record; ON CONFLICT DO NOTHING plus the
// affected-row count yields the already-fired signal in one round trip.
func (r *checkpointRepository) MarkFired(ctx context.Context, fc *checkpoint.FiredCheckpoint) (bool, error) {
	res, err := r.db.Querier(ctx).ExecContext(ctx, `
		INSERT INTO fired_checkpoints (
			idempotency_key, client_id, checkpoint, expiry_date, fired_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		fc.IdempotencyKey, fc.ClientID, fc.Checkpoint, fc.ExpiryDate, fc.FiredAt,
	)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to record fired checkpoint").
			WithReportableDetails(map[string]interface{}{
				"client_id":  fc.ClientID,
				"checkpoint": fc.Checkpoint,
			}).
			Mark(ierr.ErrDatabase)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return n == 0, nil
}

func (r *checkpointRepository) ListByClient(ctx context.Context, clientID string) ([]*checkpoint.FiredCheckpoint, error) {
	rows, err := r.db.Querier(ctx).QueryContext(ctx, `
		SELECT idempotency_key, client_id, checkpoint, expiry_date, fired_at
		FROM fired_checkpoints
		WHERE client_id = $1
		ORDER BY fired_at DESC`, clientID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list fired checkpoints").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var fired []*checkpoint.FiredCheckpoint
	for rows.Next() {
		var fc checkpoint.FiredCheckpoint
		if err := rows.Scan(&fc.IdempotencyKey, &fc.ClientID, &fc.Checkpoint, &fc.ExpiryDate, &fc.FiredAt); err != nil {
			return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
		}
		fired = append(fired, &fc)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return fired, nil
}
