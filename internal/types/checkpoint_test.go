package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckpointTargetTime(t *testing.T) {
	expiry := time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, expiry.Add(-72*time.Hour), CheckpointReminder72h.TargetTime(expiry))
	assert.Equal(t, expiry.Add(-48*time.Hour), CheckpointReminder48h.TargetTime(expiry))
	assert.Equal(t, expiry.Add(-24*time.Hour), CheckpointRenewal24h.TargetTime(expiry))
	assert.Equal(t, expiry, CheckpointExpiry.TargetTime(expiry))
}

func TestCheckpointInWindow(t *testing.T) {
	expiry := time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC)
	tolerance := 2 * time.Minute
	target := CheckpointRenewal24h.TargetTime(expiry)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"exactly on target", target, true},
		{"just before tolerance edge", target.Add(-tolerance), true},
		{"just after tolerance edge", target.Add(tolerance), true},
		{"beyond early edge", target.Add(-tolerance - time.Second), false},
		{"beyond late edge", target.Add(tolerance + time.Second), false},
		{"hours away", target.Add(-6 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckpointRenewal24h.InWindow(tt.now, expiry, tolerance))
		})
	}
}

func TestClassifyPaymentIntent(t *testing.T) {
	assert.Equal(t, PaymentIntentInstallation, ClassifyPaymentIntent("INST-2024-0001"))
	assert.Equal(t, PaymentIntentInstallation, ClassifyPaymentIntent("  inst-2024-0001  "))
	assert.Equal(t, PaymentIntentWalletTopUp, ClassifyPaymentIntent("TOPUP-99"))
	assert.Equal(t, PaymentIntentWalletTopUp, ClassifyPaymentIntent(""))
}
