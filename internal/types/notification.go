package types

// NotificationType identifies the message template a dispatch request maps to.
// Delivery channels (SMS/email/push) are an external collaborator concern.
type NotificationType string

const (
	NotificationPaymentReminder     NotificationType = "payment_reminder"
	NotificationFinalReminder       NotificationType = "final_reminder"
	NotificationUrgentTopUp         NotificationType = "urgent_top_up"
	NotificationTopUpReminder       NotificationType = "top_up_reminder"
	NotificationRenewalSuccess      NotificationType = "renewal_success"
	NotificationPartialRenewal      NotificationType = "partial_renewal"
	NotificationServiceDisconnected NotificationType = "service_disconnected"
)
