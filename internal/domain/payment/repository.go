package payment

import "context"

// Repository persists the set of processed gateway references. A trailing
// ingestion window observes the same transaction across consecutive ticks,
// so the set is what makes crediting idempotent.
type Repository interface {
	// MarkProcessed records a reference as consumed. Returns ErrAlreadyExists
	// (via ierr) when the reference was consumed before; callers treat that
	// as a no-op, not a failure.
	MarkProcessed(ctx context.Context, p *ProcessedPayment) error

	// IsProcessed reports whether the reference was consumed before
	IsProcessed(ctx context.Context, reference string) (bool, error)
}
