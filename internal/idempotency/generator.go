package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Scope represents the functional area an idempotency key belongs to
type Scope string

const (
	// ScopePayment dedupes ingested gateway payments by external reference
	ScopePayment Scope = "payment"
	// ScopeCheckpoint dedupes checkpoint notifications per client and expiry
	ScopeCheckpoint Scope = "checkpoint"
	// ScopeNotification dedupes outbound notification dispatches
	ScopeNotification Scope = "notification"
)

// Generator produces deterministic idempotency keys from scoped parameters.
// The same scope and params always yield the same key regardless of map
// iteration order.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateKey builds a key of the form <scope>:<sha256 hex> over the sorted
// key=value representation of params.
func (g *Generator) GenerateKey(scope Scope, params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s:%s", scope, hex.EncodeToString(sum[:]))
}
