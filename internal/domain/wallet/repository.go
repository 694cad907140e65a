package wallet

import "context"

// Repository defines persistence operations for the wallet transaction ledger
type Repository interface {
	// Create appends a ledger entry
	Create(ctx context.Context, txn *Transaction) error

	// ListByClient returns ledger entries for a client, newest first
	ListByClient(ctx context.Context, clientID string, limit int) ([]*Transaction, error)

	// HasExternalReference reports whether any ledger entry already carries
	// the given gateway reference. Backstop for payment idempotency on top
	// of the processed-payment set.
	HasExternalReference(ctx context.Context, reference string) (bool, error)
}
