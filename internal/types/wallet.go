package types

// TransactionType is the direction of a wallet ledger entry
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// TransactionReason records why a ledger entry was created
type TransactionReason string

const (
	TransactionReasonTopUp            TransactionReason = "wallet_topup"
	TransactionReasonRenewal          TransactionReason = "subscription_renewal"
	TransactionReasonPartialRenewal   TransactionReason = "partial_renewal"
	TransactionReasonManualAdjustment TransactionReason = "manual_adjustment"
)

// RenewalActionType tags the outcome of a renewal decision
type RenewalActionType string

const (
	RenewalActionAutoRenew      RenewalActionType = "auto_renew"
	RenewalActionPartialPayment RenewalActionType = "partial_payment"
	RenewalActionTopUpRequired  RenewalActionType = "top_up_required"
	RenewalActionSuspendService RenewalActionType = "suspend_service"
)
