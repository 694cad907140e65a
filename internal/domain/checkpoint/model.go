package checkpoint

import (
	"time"

	"github.com/halonet/billing-engine/internal/types"
)

// FiredCheckpoint records that a checkpoint notification was dispatched for
// a client at a given subscription expiry. The idempotency key is derived
// from (client id, checkpoint type, expiry) so each checkpoint fires at most
// once per monitoring window even under tick jitter; a renewed expiry yields
// a fresh key and a fresh set of checkpoints.
type FiredCheckpoint struct {
	IdempotencyKey string               `db:"idempotency_key" json:"idempotency_key"`
	ClientID       string               `db:"client_id" json:"client_id"`
	Checkpoint     types.CheckpointType `db:"checkpoint" json:"checkpoint"`
	ExpiryDate     time.Time            `db:"expiry_date" json:"expiry_date"`
	FiredAt        time.Time            `db:"fired_at" json:"fired_at"`
}
