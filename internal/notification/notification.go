package notification

import (
	"context"
	"time"

	"github.com/halonet/billing-engine/internal/types"
	"github.com/shopspring/decimal"
)

// Notification is a dispatch request handed to the delivery collaborator.
// The engine decides what to say and with which numbers; the channel
// (SMS/email/push) is outside its scope.
type Notification struct {
	ID        string                 `json:"id"`
	ClientID  string                 `json:"client_id"`
	Type      types.NotificationType `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Publisher dispatches notification requests to the delivery channel
type Publisher interface {
	Publish(ctx context.Context, n *Notification) error
}

func newNotification(clientID string, nt types.NotificationType, data map[string]interface{}) *Notification {
	return &Notification{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NOTIFICATION),
		ClientID:  clientID,
		Type:      nt,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

// NewPaymentReminder is the standard pre-expiry reminder for clients whose
// wallet covers the upcoming charge.
func NewPaymentReminder(clientID string, hoursRemaining int, amount decimal.Decimal, packageName string) *Notification {
	return newNotification(clientID, types.NotificationPaymentReminder, map[string]interface{}{
		"hours_remaining": hoursRemaining,
		"amount":          amount.StringFixed(2),
		"package_name":    packageName,
	})
}

// NewTopUpReminder is the targeted reminder naming the exact shortfall for
// clients who cannot yet afford renewal.
func NewTopUpReminder(clientID string, hoursRemaining int, shortfall decimal.Decimal, packageName string) *Notification {
	return newNotification(clientID, types.NotificationTopUpReminder, map[string]interface{}{
		"hours_remaining": hoursRemaining,
		"shortfall":       shortfall.StringFixed(2),
		"package_name":    packageName,
	})
}

// NewFinalReminder is the T-24h notification for clients still short,
// carrying the decision engine's recommended action.
func NewFinalReminder(clientID string, shortfall decimal.Decimal, packageName, recommendation string) *Notification {
	return newNotification(clientID, types.NotificationFinalReminder, map[string]interface{}{
		"hours_remaining": 24,
		"shortfall":       shortfall.StringFixed(2),
		"package_name":    packageName,
		"recommendation":  recommendation,
	})
}

// NewUrgentTopUp asks for the exact missing amount with no time cushion left
func NewUrgentTopUp(clientID string, shortfall decimal.Decimal, packageName string) *Notification {
	return newNotification(clientID, types.NotificationUrgentTopUp, map[string]interface{}{
		"shortfall":    shortfall.StringFixed(2),
		"package_name": packageName,
	})
}

// NewRenewalSuccess announces a completed full renewal
func NewRenewalSuccess(clientID string, amount decimal.Decimal, newExpiry time.Time, packageName string) *Notification {
	return newNotification(clientID, types.NotificationRenewalSuccess, map[string]interface{}{
		"amount":       amount.StringFixed(2),
		"new_expiry":   newExpiry.UTC().Format(time.RFC3339),
		"package_name": packageName,
	})
}

// NewPartialRenewal announces a prorated extension and names the remaining
// shortfall toward a full period.
func NewPartialRenewal(clientID string, amount decimal.Decimal, days int, shortfall decimal.Decimal, newExpiry time.Time) *Notification {
	return newNotification(clientID, types.NotificationPartialRenewal, map[string]interface{}{
		"amount":          amount.StringFixed(2),
		"affordable_days": days,
		"shortfall":       shortfall.StringFixed(2),
		"new_expiry":      newExpiry.UTC().Format(time.RFC3339),
	})
}

// NewServiceDisconnected announces suspension at expiry
func NewServiceDisconnected(clientID string, shortfall decimal.Decimal, packageName string) *Notification {
	return newNotification(clientID, types.NotificationServiceDisconnected, map[string]interface{}{
		"shortfall":    shortfall.StringFixed(2),
		"package_name": packageName,
	})
}
