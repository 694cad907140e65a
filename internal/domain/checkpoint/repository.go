package checkpoint

import "context"

// Repository persists fired checkpoints for at-most-once dispatch
type Repository interface {
	// MarkFired records the checkpoint as fired. Returns alreadyFired=true
	// without mutation when the idempotency key was recorded before.
	MarkFired(ctx context.Context, fc *FiredCheckpoint) (alreadyFired bool, err error)

	// ListByClient returns fired checkpoints for a client, newest first
	ListByClient(ctx context.Context, clientID string) ([]*FiredCheckpoint, error)
}
