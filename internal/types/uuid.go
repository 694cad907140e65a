package types

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_CLIENT             = "client"
	UUID_PREFIX_WALLET_TRANSACTION = "txn"
	UUID_PREFIX_INVOICE            = "inv"
	UUID_PREFIX_PAYMENT            = "pay"
	UUID_PREFIX_CHECKPOINT         = "chkpt"
	UUID_PREFIX_NOTIFICATION       = "notif"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return strings.ToLower(ulid.Make().String())
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a given prefix ex client_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}
