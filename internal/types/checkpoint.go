package types

import "time"

// CheckpointType is one of the fixed time offsets before subscription expiry
// at which a reminder or renewal decision is evaluated.
type CheckpointType string

const (
	CheckpointReminder72h CheckpointType = "reminder_72h"
	CheckpointReminder48h CheckpointType = "reminder_48h"
	CheckpointRenewal24h  CheckpointType = "renewal_24h"
	CheckpointExpiry      CheckpointType = "expiry"
)

// CheckpointOffsets maps each checkpoint to its offset before expiry.
// The scheduler evaluates a checkpoint when now falls inside
// [expiry - offset - tolerance, expiry - offset + tolerance].
var CheckpointOffsets = map[CheckpointType]time.Duration{
	CheckpointReminder72h: 72 * time.Hour,
	CheckpointReminder48h: 48 * time.Hour,
	CheckpointRenewal24h:  24 * time.Hour,
	CheckpointExpiry:      0,
}

// AllCheckpoints in evaluation order, earliest offset first
var AllCheckpoints = []CheckpointType{
	CheckpointReminder72h,
	CheckpointReminder48h,
	CheckpointRenewal24h,
	CheckpointExpiry,
}

// TargetTime returns the wall-clock moment this checkpoint fires for the
// given subscription expiry.
func (c CheckpointType) TargetTime(expiry time.Time) time.Time {
	return expiry.Add(-CheckpointOffsets[c])
}

// InWindow reports whether now falls inside the detection window of this
// checkpoint for the given expiry and tolerance.
func (c CheckpointType) InWindow(now, expiry time.Time, tolerance time.Duration) bool {
	target := c.TargetTime(expiry)
	diff := now.Sub(target)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
