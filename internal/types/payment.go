package types

import "strings"

// PaymentMethod is the external channel a payment was confirmed on
type PaymentMethod string

const (
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// PaymentIntent classifies what an ingested payment is for
type PaymentIntent string

const (
	PaymentIntentInstallation PaymentIntent = "installation"
	PaymentIntentWalletTopUp  PaymentIntent = "wallet_topup"
)

// InstallationReferencePrefix is the billing-reference prefix installation
// invoices are issued with. Everything else defaults to a wallet top-up.
const InstallationReferencePrefix = "INST-"

// ClassifyPaymentIntent derives the intent of a gateway transaction from its
// billing reference. The classification is deliberately lenient: anything
// that does not match a pending installation invoice credits the wallet.
func ClassifyPaymentIntent(billingReference string) PaymentIntent {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(billingReference)), InstallationReferencePrefix) {
		return PaymentIntentInstallation
	}
	return PaymentIntentWalletTopUp
}

// InvoiceStatus is the payment state of an installation invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusVoid    InvoiceStatus = "void"
)
